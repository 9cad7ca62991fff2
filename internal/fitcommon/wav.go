package fitcommon

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadWAVMono reads a PCM WAV file, folds it to mono and scales samples to
// [-1, 1] according to the file bit depth.
func ReadWAVMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	depth := int(dec.BitDepth)
	if depth <= 0 || depth > 32 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch) * scale
	}
	return out, buf.Format.SampleRate, nil
}

// ResampleIfNeeded converts in from fromRate to toRate.
func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// ResampleInterleaved resamples stereo interleaved samples channel by channel.
func ResampleInterleaved(in []float32, fromRate int, toRate int) ([]float32, error) {
	if fromRate == toRate {
		return in, nil
	}
	n := len(in) / 2
	left := make([]float64, n)
	right := make([]float64, n)
	for i := 0; i < n; i++ {
		left[i] = float64(in[2*i])
		right[i] = float64(in[2*i+1])
	}
	l, err := ResampleIfNeeded(left, fromRate, toRate)
	if err != nil {
		return nil, err
	}
	r, err := ResampleIfNeeded(right, fromRate, toRate)
	if err != nil {
		return nil, err
	}
	m := min(len(l), len(r))
	out := make([]float32, 2*m)
	for i := 0; i < m; i++ {
		out[2*i] = float32(l[i])
		out[2*i+1] = float32(r[i])
	}
	return out, nil
}

// WriteStereoInterleavedWAV writes 16-bit stereo PCM.
func WriteStereoInterleavedWAV(path string, samples []float32, sampleRate int) error {
	return writeWAV(path, samples, sampleRate, 2)
}

// WriteMonoWAV writes 16-bit mono PCM.
func WriteMonoWAV(path string, data []float32, sampleRate int) error {
	return writeWAV(path, data, sampleRate, 1)
}

func writeWAV(path string, samples []float32, sampleRate int, channels int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           clipped(samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return enc.Close()
}

func clipped(samples []float32) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(Clamp(float64(s), -1, 1))
	}
	return out
}

// StereoToMono64 folds stereo interleaved samples to mono.
func StereoToMono64(st []float32) []float64 {
	n := len(st) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.5 * (float64(st[i*2]) + float64(st[i*2+1]))
	}
	return out
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		peak = max(peak, float64(max(s, -s)))
	}
	return peak
}
