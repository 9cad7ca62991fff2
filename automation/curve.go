// Package automation models parameter automation as a list of time-stamped
// points, the shape both the control timeline and the audio renderer agree on.
package automation

import (
	"sort"
	"time"
)

// Ramp selects how a point is approached.
type Ramp int

const (
	// Set jumps to the point value at the point time.
	Set Ramp = iota
	// Linear ramps linearly from the previous point and reaches the value at
	// the point time.
	Linear
)

func (r Ramp) String() string {
	switch r {
	case Set:
		return "set"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// Point is one automation instruction.
type Point struct {
	Time  time.Duration
	Value float64
	Ramp  Ramp
}

// Curve is an ordered list of automation points. It is not safe for
// concurrent use; each timeline keeps its own replica.
type Curve struct {
	initial float64
	points  []Point
}

// New returns an empty curve that evaluates to initial until the first point.
func New(initial float64) *Curve {
	return &Curve{initial: initial}
}

// Apply inserts p keeping points ordered by time. Points sharing a time keep
// their insertion order.
func (c *Curve) Apply(p Point) {
	i := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time > p.Time
	})
	c.points = append(c.points, Point{})
	copy(c.points[i+1:], c.points[i:])
	c.points[i] = p
}

// SetValueAt schedules a step to v at t.
func (c *Curve) SetValueAt(v float64, t time.Duration) {
	c.Apply(Point{Time: t, Value: v, Ramp: Set})
}

// LinearRampTo schedules a linear ramp from the previous point reaching v at t.
func (c *Curve) LinearRampTo(v float64, t time.Duration) {
	c.Apply(Point{Time: t, Value: v, Ramp: Linear})
}

// CancelFrom removes every point scheduled at or after t.
func (c *Curve) CancelFrom(t time.Duration) {
	i := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time >= t
	})
	c.points = c.points[:i]
}

// HoldAt freezes the curve at its current value: it evaluates the curve at t,
// drops everything scheduled from t on and pins the evaluated value at t.
// Cancelling a ramp in flight without the pin would snap back to the value of
// the point before it.
func (c *Curve) HoldAt(t time.Duration) float64 {
	v := c.ValueAt(t)
	c.CancelFrom(t)
	c.SetValueAt(v, t)
	return v
}

// ValueAt evaluates the curve at t.
func (c *Curve) ValueAt(t time.Duration) float64 {
	idx := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time > t
	}) - 1

	next := idx + 1
	if next < len(c.points) && c.points[next].Ramp == Linear {
		fromT := time.Duration(0)
		fromV := c.initial
		if idx >= 0 {
			fromT = c.points[idx].Time
			fromV = c.points[idx].Value
		}
		to := c.points[next]
		span := to.Time - fromT
		if span <= 0 {
			return to.Value
		}
		frac := float64(t-fromT) / float64(span)
		if frac < 0 {
			frac = 0
		}
		return fromV + (to.Value-fromV)*frac
	}
	if idx >= 0 {
		return c.points[idx].Value
	}
	return c.initial
}

// End returns the time of the last scheduled point, or zero for an empty curve.
func (c *Curve) End() time.Duration {
	if len(c.points) == 0 {
		return 0
	}
	return c.points[len(c.points)-1].Time
}

// Len returns the number of scheduled points.
func (c *Curve) Len() int {
	return len(c.points)
}

// Points returns a copy of the scheduled points.
func (c *Curve) Points() []Point {
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}

// Compact drops points that can no longer influence values at or after t,
// replacing them with a single Set point carrying the value at t. Renderers
// call it once per block to keep long-held notes from accumulating history.
func (c *Curve) Compact(t time.Duration) {
	idx := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time > t
	}) - 1
	if idx < 1 {
		return
	}
	// points[idx] anchors any ramp in flight, so it stays.
	anchor := c.points[idx]
	c.points = append(c.points[:0:0], c.points[idx:]...)
	c.points[0] = Point{Time: anchor.Time, Value: anchor.Value, Ramp: Set}
}
