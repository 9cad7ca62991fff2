package piano

import "testing"

func TestEventNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Event
		want Event
		ok   bool
	}{
		{"note on", NoteOnEvent(60, 100), NoteOnEvent(60, 100), true},
		{"velocity zero", NoteOnEvent(60, 0), NoteOffEvent(60), true},
		{"note off velocity dropped", Event{Kind: NoteOff, Note: 60, Value: 64}, NoteOffEvent(60), true},
		{"sustain", ControlEvent(SustainPedal, 127), ControlEvent(SustainPedal, 127), true},
		{"all notes off", ControlEvent(AllNotesOff, 0), ControlEvent(AllNotesOff, 0), true},
		{"note too high", NoteOnEvent(128, 1), Event{}, false},
		{"negative note", NoteOffEvent(-3), Event{}, false},
		{"value too high", NoteOnEvent(60, 128), Event{}, false},
		{"unknown controller", ControlEvent(1, 10), Event{}, false},
		{"zero kind", Event{Note: 60, Value: 10}, Event{}, false},
	}
	for _, c := range cases {
		got, ok := c.in.Normalize()
		if ok != c.ok {
			t.Fatalf("%s: ok=%v want %v", c.name, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("%s: got %+v want %+v", c.name, got, c.want)
		}
	}
}

func TestADSRSanitizeFallsBackPerField(t *testing.T) {
	def := DefaultADSR()
	got := ADSR{Attack: -1, Decay: ms(20), Sustain: 1.5, Release: ms(80), Waveform: Waveform(9)}.Sanitize()
	if got.Attack != def.Attack || got.Sustain != def.Sustain || got.Waveform != def.Waveform {
		t.Fatalf("expected invalid fields replaced, got %+v", got)
	}
	if got.Decay != ms(20) || got.Release != ms(80) {
		t.Fatalf("expected valid fields kept, got %+v", got)
	}

	zero := ADSR{Sustain: 0}.Sanitize()
	if zero.Sustain != 0 || zero.Attack != 0 {
		t.Fatalf("zero is a valid sustain level and attack, got %+v", zero)
	}
}

func TestParseWaveform(t *testing.T) {
	for _, name := range []string{"sine", "Square", " sawtooth ", "TRIANGLE"} {
		if _, ok := ParseWaveform(name); !ok {
			t.Fatalf("expected %q to parse", name)
		}
	}
	if _, ok := ParseWaveform("noise"); ok {
		t.Fatalf("expected unknown waveform to fail")
	}
}
