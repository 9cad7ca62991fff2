package piano

import (
	"errors"
	"math"
	"testing"
)

func newRenderedEngine(sampleRate int) (*Engine, *Renderer) {
	r := NewRenderer(sampleRate, 0.5)
	return NewEngine(r.Clock(), WithScheduler(r)), r
}

func TestRendererProducesNoteFrequency(t *testing.T) {
	const sampleRate = 48000
	e, r := newRenderedEngine(sampleRate)
	if err := e.KeyDown(69); err != nil {
		t.Fatalf("key down: %v", err)
	}

	out := r.Process(sampleRate / 2)
	freq := measureFundamentalFreq(leftChannel(out), sampleRate)
	if math.Abs(float64(freq)-440) > 8 {
		t.Fatalf("expected ~440Hz, got %f", freq)
	}
	if peakAbs(out) > 0.5+1e-6 {
		t.Fatalf("expected output bounded by the output gain, got peak %f", peakAbs(out))
	}
}

func TestRendererWaveformsAreAudible(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Sawtooth, Triangle} {
		e, r := newRenderedEngine(48000)
		a := DefaultADSR()
		a.Waveform = w
		e.Settings().Store(a)
		e.KeyDown(60)
		if rms := stereoRMS(r.Process(4800)); rms < 0.05 {
			t.Fatalf("%s: expected audible output, got RMS %f", w, rms)
		}
	}
}

func TestRendererSilentAfterStop(t *testing.T) {
	const sampleRate = 48000
	e, r := newRenderedEngine(sampleRate)
	e.KeyDown(60)
	_ = r.Process(4800)
	if r.Voices() != 1 {
		t.Fatalf("expected one oscillator, got %d", r.Voices())
	}

	// default release is 300ms, stop follows 50ms later
	e.KeyUp(60)
	for i := 0; i < 40; i++ {
		_ = r.Process(480)
	}
	if r.Voices() != 0 {
		t.Fatalf("expected the oscillator discarded after its stop, got %d", r.Voices())
	}
	if rms := stereoRMS(r.Process(480)); rms != 0 {
		t.Fatalf("expected silence after stop, got RMS %f", rms)
	}
}

func TestRendererReleaseFadesOut(t *testing.T) {
	e, r := newRenderedEngine(48000)
	e.KeyDown(60)
	_ = r.Process(9600)
	held := stereoRMS(r.Process(960))

	e.KeyUp(60)
	_ = r.Process(9600)
	fading := stereoRMS(r.Process(960))
	if fading >= held*0.5 {
		t.Fatalf("expected release to reduce level: held=%f fading=%f", held, fading)
	}
}

func TestRendererRetriggerLeavesOneOscillator(t *testing.T) {
	e, r := newRenderedEngine(48000)
	e.KeyDown(60)
	_ = r.Process(480)
	e.KeyDown(60)
	_ = r.Process(480)
	if r.Voices() != 2 {
		t.Fatalf("expected the old voice still in its short tail, got %d oscillators", r.Voices())
	}

	_ = r.Process(2880)
	if r.Voices() != 1 {
		t.Fatalf("expected exactly one oscillator after the retrigger tail, got %d", r.Voices())
	}
}

func TestRendererRejectsAfterClose(t *testing.T) {
	r := NewRenderer(48000, 0)
	r.Close()
	if err := r.Submit(Command{Kind: CmdStart, Voice: 1}); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestRendererAdvancesClock(t *testing.T) {
	r := NewRenderer(48000, 0)
	_ = r.Process(480)
	if got := r.Clock().Now(); got != ms(10) {
		t.Fatalf("expected 10ms after 480 frames, got %v", got)
	}
}
