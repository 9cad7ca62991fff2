package piano

import (
	"time"

	"github.com/cwbudde/algo-keys/automation"
)

// Stage is the envelope stage of a voice at a given time.
type Stage int

const (
	StageAttack Stage = iota
	StageDecay
	StageSustain
	StageReleasing
)

func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageReleasing:
		return "releasing"
	default:
		return "unknown"
	}
}

const (
	// Guard keeps the oscillator running briefly past the end of the release
	// ramp so it never stops on a non-zero sample.
	Guard = 50 * time.Millisecond
	// RetriggerRelease is the abbreviated release applied to a voice that is
	// replaced by a new note-on for the same note.
	RetriggerRelease = 5 * time.Millisecond
)

// Voice represents one sounding note: an oscillator, its gain automation and
// the time the oscillator is scheduled to stop. Only the control timeline
// touches a Voice.
type Voice struct {
	id         uint64
	note       int
	velocity   int
	startedAt  time.Duration
	adsr       ADSR
	freq       float32
	gain       *automation.Curve
	released   bool
	releasedAt time.Duration
	stopAt     time.Duration
}

// newVoice programs the attack and decay of a new voice starting at now and
// returns the instructions that start it on the renderer.
func newVoice(id uint64, note, velocity int, adsr ADSR, now time.Duration) (*Voice, []Command) {
	v := &Voice{
		id:        id,
		note:      note,
		velocity:  velocity,
		startedAt: now,
		adsr:      adsr,
		freq:      midiNoteToFreq(note),
		gain:      automation.New(0),
	}

	peak := velocityGain(velocity)
	points := []automation.Point{
		{Time: now, Value: 0, Ramp: automation.Set},
		{Time: now + adsr.Attack, Value: peak, Ramp: automation.Linear},
		{Time: now + adsr.Attack + adsr.Decay, Value: peak * adsr.Sustain, Ramp: automation.Linear},
	}

	cmds := make([]Command, 0, 1+len(points))
	cmds = append(cmds, Command{
		Kind:     CmdStart,
		Voice:    id,
		Time:     now,
		Freq:     v.freq,
		Waveform: adsr.Waveform,
	})
	for _, p := range points {
		v.gain.Apply(p)
		cmds = append(cmds, Command{Kind: CmdPoint, Voice: id, Time: p.Time, Point: p})
	}
	return v, cmds
}

// release freezes the gain at its current value, ramps it to zero over length
// and stops the oscillator Guard later.
func (v *Voice) release(now, length time.Duration) []Command {
	held := v.gain.HoldAt(now)
	end := now + length
	v.gain.LinearRampTo(0, end)
	v.released = true
	v.releasedAt = now
	v.stopAt = end + Guard

	return []Command{
		{Kind: CmdCancel, Voice: v.id, Time: now},
		{Kind: CmdPoint, Voice: v.id, Time: now, Point: automation.Point{Time: now, Value: held, Ramp: automation.Set}},
		{Kind: CmdPoint, Voice: v.id, Time: end, Point: automation.Point{Time: end, Value: 0, Ramp: automation.Linear}},
		{Kind: CmdStop, Voice: v.id, Time: v.stopAt},
	}
}

// ID returns the renderer handle of the voice.
func (v *Voice) ID() uint64 { return v.id }

func (v *Voice) Note() int { return v.note }

func (v *Voice) Velocity() int { return v.velocity }

func (v *Voice) StartedAt() time.Duration { return v.startedAt }

// ReleaseTime is the release length the voice was created with.
func (v *Voice) ReleaseTime() time.Duration { return v.adsr.Release }

func (v *Voice) Waveform() Waveform { return v.adsr.Waveform }

// Frequency is the oscillator frequency in Hz.
func (v *Voice) Frequency() float32 { return v.freq }

// Gain evaluates the gain automation at t.
func (v *Voice) Gain(t time.Duration) float64 { return v.gain.ValueAt(t) }

// Automation returns a copy of the scheduled gain points.
func (v *Voice) Automation() []automation.Point { return v.gain.Points() }

// Released reports whether a stop has been scheduled.
func (v *Voice) Released() bool { return v.released }

// StopAt returns the scheduled oscillator stop time, if any.
func (v *Voice) StopAt() (time.Duration, bool) {
	return v.stopAt, v.released
}

// Stage returns the envelope stage at t.
func (v *Voice) Stage(t time.Duration) Stage {
	switch {
	case v.released:
		return StageReleasing
	case t < v.startedAt+v.adsr.Attack:
		return StageAttack
	case t < v.startedAt+v.adsr.Attack+v.adsr.Decay:
		return StageDecay
	default:
		return StageSustain
	}
}

// Done reports whether the release tail has completed at t.
func (v *Voice) Done(t time.Duration) bool {
	return v.released && t >= v.stopAt
}
