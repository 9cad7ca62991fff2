package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/internal/score"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

func main() {
	scorePath := flag.String("score", "", "Event script to render (default: a single note)")
	note := flag.Int("note", 69, "MIDI note number when no score is given (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (1-127)")
	releaseAfter := flag.Float64("release-after", 1.0, "Send NoteOff after this many seconds when no score is given")
	tail := flag.Float64("tail", 1.0, "Seconds rendered after the last event")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	outRate := flag.Int("out-rate", 0, "Output sample rate in Hz (default: render rate)")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	waveform := flag.String("waveform", "", "Waveform override: sine|square|sawtooth|triangle")
	output := flag.String("output", "output.wav", "Output WAV file path")
	debug := flag.Bool("debug", false, "Log every engine decision")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	p := preset.Default()
	if *presetPath != "" {
		loaded, err := preset.LoadJSON(*presetPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		p = loaded
	}
	if *waveform != "" {
		w, ok := piano.ParseWaveform(*waveform)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown waveform %q\n", *waveform)
			os.Exit(1)
		}
		p.ADSR.Waveform = w
	}

	var sc *score.Score
	if *scorePath != "" {
		var err error
		sc, err = score.ParseFile(*scorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading score: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendering %s (%d events, %.2fs) at %d Hz, waveform %s...\n", *scorePath, len(sc.Events), sc.Duration().Seconds(), *sampleRate, p.ADSR.Waveform)
	} else {
		sc = score.SingleNote(*note, *velocity, seconds(*releaseAfter))
		fmt.Printf("Rendering note %d, velocity %d, released after %.2fs at %d Hz, waveform %s...\n", *note, *velocity, *releaseAfter, *sampleRate, p.ADSR.Waveform)
	}

	samples, err := score.Render(sc, p.ADSR, score.RenderConfig{
		SampleRate: *sampleRate,
		OutputGain: p.OutputGain,
		Tail:       seconds(*tail),
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}

	rate := *sampleRate
	if *outRate > 0 && *outRate != rate {
		samples, err = fitcommon.ResampleInterleaved(samples, rate, *outRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resampling: %v\n", err)
			os.Exit(1)
		}
		rate = *outRate
	}
	if peak := fitcommon.Peak(samples); peak > 1 {
		fmt.Fprintf(os.Stderr, "Warning: output clips (peak %.2f); lower output_gain in the preset\n", peak)
	}

	if err := fitcommon.WriteStereoInterleavedWAV(*output, samples, rate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames at %d Hz)\n", *output, len(samples)/2, rate)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
