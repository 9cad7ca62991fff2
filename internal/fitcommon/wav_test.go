package fitcommon

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTripIsNormalized(t *testing.T) {
	const sr = 48000
	st := make([]float32, 2*4800)
	for i := 0; i < 4800; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/sr))
		st[2*i] = v
		st[2*i+1] = v
	}
	path := filepath.Join(t.TempDir(), "out", "tone.wav")
	require.NoError(t, WriteStereoInterleavedWAV(path, st, sr))

	mono, rate, err := ReadWAVMono(path)
	require.NoError(t, err)
	assert.Equal(t, sr, rate)
	require.Len(t, mono, 4800)

	peak := 0.0
	for _, v := range mono {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.Greater(t, peak, 0.1)
	assert.LessOrEqual(t, peak, 1.0)
}

func TestWriteClipsOutOfRangeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, WriteMonoWAV(path, []float32{2, -3, 0.25}, 8000))

	mono, _, err := ReadWAVMono(path)
	require.NoError(t, err)
	require.Len(t, mono, 3)
	require.Greater(t, mono[0], 0.0)
	assert.LessOrEqual(t, mono[0], 1.0)
	assert.InDelta(t, -mono[0], mono[1], 0.01*mono[0])
	assert.InDelta(t, 0.25*mono[0], mono[2], 0.01*mono[0])
}

func TestReadWAVMonoRejectsGarbage(t *testing.T) {
	_, _, err := ReadWAVMono(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out, err := ResampleInterleaved(in, 48000, 48000)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResampleInterleavedHalvesLength(t *testing.T) {
	in := make([]float32, 2*9600)
	out, err := ResampleInterleaved(in, 48000, 24000)
	require.NoError(t, err)
	assert.InDelta(t, 9600, len(out), 200)
	assert.Equal(t, 0, len(out)%2)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.25, Clamp(0.25, 0, 1))
}

func TestPeak(t *testing.T) {
	assert.Equal(t, 0.75, Peak([]float32{0.1, -0.75, 0.5}))
}

func TestPeak64(t *testing.T) {
	assert.Equal(t, 0.9, Peak64([]float64{0.2, -0.9, 0.3}))
	assert.Equal(t, 0.0, Peak64(nil))
}
