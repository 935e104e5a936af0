package audioengine

import (
	"fmt"

	"github.com/drgolem/go-portaudio/portaudio"
)

// PortAudioBackend drives a real PortAudio output stream. It is adapted
// from pkg/audioplayer.Player's initStream/consumer pair, generalized from
// one decoder's ring buffer to the engine's single mixed N-channel frame,
// and narrowed to 16-bit output since the mixer already works in
// normalized float32.
type PortAudioBackend struct {
	deviceIndex     int
	framesPerBuffer int

	stream  *portaudio.PaStream
	scratch []byte
}

// NewPortAudioBackend builds a backend bound to the given output device.
// framesPerBuffer controls PortAudio's internal buffering, mirroring
// audioplayer.Config.FramesPerBuffer.
func NewPortAudioBackend(deviceIndex, framesPerBuffer int) *PortAudioBackend {
	return &PortAudioBackend{deviceIndex: deviceIndex, framesPerBuffer: framesPerBuffer}
}

// Start implements Backend.
func (b *PortAudioBackend) Start(sampleRate, channels int) error {
	outParams := portaudio.PaStreamParameters{
		DeviceIndex:  b.deviceIndex,
		ChannelCount: channels,
		SampleFormat: portaudio.SampleFmtInt16,
	}

	stream, err := portaudio.NewStream(outParams, float64(sampleRate))
	if err != nil {
		return fmt.Errorf("audioengine: creating portaudio stream: %w", err)
	}
	if err := stream.Open(b.framesPerBuffer); err != nil {
		return fmt.Errorf("audioengine: opening portaudio stream: %w", err)
	}
	if err := stream.StartStream(); err != nil {
		return fmt.Errorf("audioengine: starting portaudio stream: %w", err)
	}

	b.stream = stream
	b.scratch = make([]byte, channels*2)
	return nil
}

// Write narrows one interleaved float32 mix frame to int16 PCM and blocks
// until PortAudio accepts it, the same blocking-Write idiom
// audioplayer.Player.consumer uses.
func (b *PortAudioBackend) Write(frame []float32) error {
	need := len(frame) * 2
	if len(b.scratch) < need {
		b.scratch = make([]byte, need)
	}
	for i, sample := range frame {
		v := int16(clampSample(sample) * 32767)
		b.scratch[i*2] = byte(v)
		b.scratch[i*2+1] = byte(v >> 8)
	}
	return b.stream.Write(1, b.scratch[:need])
}

// Stop implements Backend.
func (b *PortAudioBackend) Stop() error {
	if b.stream == nil {
		return nil
	}
	if err := b.stream.StopStream(); err != nil {
		return err
	}
	return b.stream.Close()
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
