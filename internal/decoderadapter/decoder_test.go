package decoderadapter

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gowav "github.com/youpy/go-wav"
)

func writeTestWav(t *testing.T, path string, samples []int16) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(uint16(s) & 0xFF)
		data[i*2+1] = byte(uint16(s) >> 8)
	}

	writer := gowav.NewWriter(f, uint32(len(samples)), 1, 44100, 16)
	_, err = writer.Write(data)
	require.NoError(t, err)
}

func TestSourceDecodesMonoFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWav(t, path, []int16{0, 16384, -16384, 32767})

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	var got []float32
	for {
		frame, err := src.NextFrame()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, frame, 1)
		got = append(got, frame[0])
	}

	require.Len(t, got, 4)
	assert.InDelta(t, 0, got[0], 1e-6)
	assert.InDelta(t, 0.5, got[1], 0.01)
	assert.InDelta(t, -0.5, got[2], 0.01)
	assert.InDelta(t, 1.0, got[3], 0.01)
}

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.xyz")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestDecodeSample(t *testing.T) {
	assert.InDelta(t, 0.0, float64(decodeSample([]byte{128}, 8)), 1e-9)
	assert.InDelta(t, 0.0, float64(decodeSample([]byte{0, 0}, 16)), 1e-9)
	assert.InDelta(t, -1.0, float64(decodeSample([]byte{0x00, 0x80}, 16)), 0.001)
}
