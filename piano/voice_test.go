package piano

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestVoiceEnvelopeFollowsADSR(t *testing.T) {
	v, cmds := newVoice(1, 60, 127, DefaultADSR(), 0)

	if len(cmds) != 4 || cmds[0].Kind != CmdStart {
		t.Fatalf("expected start plus three automation points, got %d commands", len(cmds))
	}
	cases := []struct {
		at   int
		want float64
	}{
		{0, 0},
		{5, 0.5},
		{10, 1.0},
		{60, 0.85},
		{110, 0.7},
		{1000, 0.7},
	}
	for _, tc := range cases {
		if got := v.Gain(ms(tc.at)); !approxEqual(got, tc.want, 1e-9) {
			t.Fatalf("gain at %dms: got=%f want=%f", tc.at, got, tc.want)
		}
	}
}

func TestVoiceSustainIsRelativeToVelocity(t *testing.T) {
	adsr := DefaultADSR()
	adsr.Sustain = 0.5
	v, _ := newVoice(1, 60, 64, adsr, 0)

	want := 64.0 / 127.0 * 0.5
	if got := v.Gain(ms(500)); !approxEqual(got, want, 1e-9) {
		t.Fatalf("expected sustain %f of peak, got %f", want, got)
	}
}

func TestVoiceStages(t *testing.T) {
	v, _ := newVoice(1, 60, 100, DefaultADSR(), ms(100))

	checks := []struct {
		at   int
		want Stage
	}{
		{100, StageAttack},
		{109, StageAttack},
		{110, StageDecay},
		{209, StageDecay},
		{210, StageSustain},
	}
	for _, c := range checks {
		if got := v.Stage(ms(c.at)); got != c.want {
			t.Fatalf("stage at %dms: got=%s want=%s", c.at, got, c.want)
		}
	}

	v.release(ms(300), v.ReleaseTime())
	if got := v.Stage(ms(300)); got != StageReleasing {
		t.Fatalf("expected releasing after release, got %s", got)
	}
}

func TestVoiceReleaseRampsFromHeldValue(t *testing.T) {
	v, _ := newVoice(1, 60, 127, DefaultADSR(), 0)

	cmds := v.release(ms(200), ms(300))
	if len(cmds) != 4 {
		t.Fatalf("expected cancel, hold, ramp and stop, got %d commands", len(cmds))
	}
	if cmds[0].Kind != CmdCancel || cmds[3].Kind != CmdStop {
		t.Fatalf("unexpected release command order: %v", []CommandKind{cmds[0].Kind, cmds[1].Kind, cmds[2].Kind, cmds[3].Kind})
	}
	if !approxEqual(cmds[1].Point.Value, 0.7, 1e-9) {
		t.Fatalf("expected held value 0.7, got %f", cmds[1].Point.Value)
	}

	if got := v.Gain(ms(350)); !approxEqual(got, 0.35, 1e-9) {
		t.Fatalf("expected half-way release gain 0.35, got %f", got)
	}
	if got := v.Gain(ms(500)); got != 0 {
		t.Fatalf("expected zero gain at end of release, got %f", got)
	}

	stop, ok := v.StopAt()
	if !ok || stop != ms(550) {
		t.Fatalf("expected stop at 550ms, got %v (scheduled=%v)", stop, ok)
	}
	if v.Done(ms(549)) {
		t.Fatalf("voice must still sound inside the guard interval")
	}
	if !v.Done(ms(550)) {
		t.Fatalf("voice must be done at its stop time")
	}
}

func TestVoiceReleaseDuringAttackStartsFromCurrentGain(t *testing.T) {
	v, _ := newVoice(1, 60, 127, DefaultADSR(), 0)

	v.release(ms(5), ms(100))
	if got := v.Gain(ms(5)); !approxEqual(got, 0.5, 1e-9) {
		t.Fatalf("expected release to hold attack value 0.5, got %f", got)
	}
	if got := v.Gain(ms(55)); !approxEqual(got, 0.25, 1e-9) {
		t.Fatalf("expected 0.25 half-way through release, got %f", got)
	}
	// the attack peak scheduled at 10ms must be gone
	if got := v.Gain(ms(10)); got >= 0.5 {
		t.Fatalf("expected cancelled attack, got gain %f at 10ms", got)
	}
}

func TestMidiNoteToFreq(t *testing.T) {
	cases := []struct {
		note int
		want float64
	}{
		{69, 440},
		{57, 220},
		{81, 880},
		{60, 261.6256},
	}
	for _, c := range cases {
		got := float64(midiNoteToFreq(c.note))
		if math.Abs(got-c.want)/c.want > 0.01 {
			t.Fatalf("note %d: got=%f want=%f", c.note, got, c.want)
		}
	}
}
