// Package decoderadapter turns the byte-oriented PCM decoders under
// pkg/decoders into a lazy sequence of normalized float32 frames, one
// frame per sample instant across all channels. It is the seam between a
// file on disk and the audio engine's per-channel senders.
package decoderadapter

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/drgolem/gramophone/pkg/decoders"
	"github.com/drgolem/gramophone/pkg/types"
)

const chunkSamples = 4096

// Source decodes one file into a stream of frames, each frame holding one
// sample per channel.
type Source struct {
	dec types.AudioDecoder

	rate, channels, bits, bytesPerSample int

	chunk      []byte
	chunkLen   int // number of decoded sample-frames currently in chunk
	pos        int // cursor into chunk, in sample-frames
	pendingErr error
}

// Open resolves uri to a local path (a bare path, or a file:// URI) and
// opens it with the decoder matching its extension.
func Open(uri string) (*Source, error) {
	path := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		path = u.Path
	}

	dec, err := decoders.NewDecoder(path)
	if err != nil {
		return nil, err
	}

	rate, channels, bits := dec.GetFormat()
	if channels <= 0 {
		dec.Close()
		return nil, fmt.Errorf("decoderadapter: %s: decoder reported %d channels", uri, channels)
	}
	bytesPerSample := bits / 8
	if bytesPerSample <= 0 {
		dec.Close()
		return nil, fmt.Errorf("decoderadapter: %s: decoder reported %d bits per sample", uri, bits)
	}

	return &Source{
		dec:            dec,
		rate:           rate,
		channels:       channels,
		bits:           bits,
		bytesPerSample: bytesPerSample,
		chunk:          make([]byte, chunkSamples*channels*bytesPerSample),
	}, nil
}

// SampleRate is the file's native sample rate.
func (s *Source) SampleRate() int { return s.rate }

// Channels is the file's channel count.
func (s *Source) Channels() int { return s.channels }

// Close releases the underlying decoder.
func (s *Source) Close() error { return s.dec.Close() }

// ErrDecodeFrame wraps a non-fatal decode error: the caller should log it
// and continue to the next frame rather than treat it as end of stream.
var ErrDecodeFrame = errors.New("decoderadapter: frame decode error")

// NextFrame returns the next sample-frame (one float32 per channel,
// normalized to [-1, 1]). It returns io.EOF once the decoder is
// exhausted. Any other error is wrapped in ErrDecodeFrame and is
// non-fatal: the caller should log it and call NextFrame again.
func (s *Source) NextFrame() ([]float32, error) {
	if s.pendingErr != nil {
		err := s.pendingErr
		s.pendingErr = nil
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrDecodeFrame, err)
	}

	if s.pos >= s.chunkLen {
		if err := s.refill(); err != nil {
			return nil, err
		}
		if s.chunkLen == 0 {
			return nil, io.EOF
		}
	}

	frame := make([]float32, s.channels)
	for ch := 0; ch < s.channels; ch++ {
		offset := (s.pos*s.channels + ch) * s.bytesPerSample
		frame[ch] = decodeSample(s.chunk[offset:offset+s.bytesPerSample], s.bits)
	}
	s.pos++
	return frame, nil
}

func (s *Source) refill() error {
	n, err := s.dec.DecodeSamples(chunkSamples, s.chunk)
	s.pos = 0
	s.chunkLen = n
	if err != nil {
		if n == 0 {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("%w: %v", ErrDecodeFrame, err)
		}
		// Partial chunk with a trailing error: play what we have, then
		// surface the error on the next call.
		s.pendingErr = err
	}
	return nil
}

func decodeSample(raw []byte, bits int) float32 {
	switch bits {
	case 8:
		return (float32(raw[0]) - 128) / 128
	case 16:
		v := int16(uint16(raw[0]) | uint16(raw[1])<<8)
		return float32(v) / 32768
	case 24:
		v := int32(uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16)
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return float32(v) / 8388608
	case 32:
		v := int32(uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24)
		return float32(v) / 2147483648
	default:
		return 0
	}
}
