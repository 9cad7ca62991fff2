package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const ms = time.Millisecond

func TestLinearRampInterpolatesFromPreviousPoint(t *testing.T) {
	c := New(0)
	c.SetValueAt(0, 100*ms)
	c.LinearRampTo(1, 110*ms)
	c.LinearRampTo(0.5, 210*ms)

	require.Equal(t, 0.0, c.ValueAt(50*ms))
	require.InDelta(t, 0.5, c.ValueAt(105*ms), 1e-9)
	require.InDelta(t, 1.0, c.ValueAt(110*ms), 1e-9)
	require.InDelta(t, 0.75, c.ValueAt(160*ms), 1e-9)
	require.InDelta(t, 0.5, c.ValueAt(time.Second), 1e-9)
}

func TestZeroLengthRampJumps(t *testing.T) {
	c := New(0)
	c.SetValueAt(0, 10*ms)
	c.LinearRampTo(0.8, 10*ms)
	require.InDelta(t, 0.8, c.ValueAt(10*ms), 1e-9)
}

func TestHoldAtPinsValueOfRampInFlight(t *testing.T) {
	c := New(0)
	c.SetValueAt(0, 0)
	c.LinearRampTo(1, 100*ms)

	v := c.HoldAt(50 * ms)
	require.InDelta(t, 0.5, v, 1e-9)
	require.InDelta(t, 0.5, c.ValueAt(80*ms), 1e-9)

	c.LinearRampTo(0, 150*ms)
	require.InDelta(t, 0.25, c.ValueAt(100*ms), 1e-9)
	require.InDelta(t, 0.0, c.ValueAt(150*ms), 1e-9)
}

func TestCancelFromDropsPointsAtAndAfterTime(t *testing.T) {
	c := New(0)
	c.SetValueAt(1, 10*ms)
	c.SetValueAt(2, 20*ms)
	c.SetValueAt(3, 30*ms)
	c.CancelFrom(20 * ms)
	require.Equal(t, 1, c.Len())
	require.Equal(t, 10*ms, c.End())
}

func TestApplyKeepsEqualTimesInInsertionOrder(t *testing.T) {
	c := New(0)
	c.Apply(Point{Time: 5 * ms, Value: 1, Ramp: Set})
	c.Apply(Point{Time: 1 * ms, Value: 2, Ramp: Set})
	c.Apply(Point{Time: 5 * ms, Value: 3, Ramp: Linear})

	pts := c.Points()
	require.Len(t, pts, 3)
	require.Equal(t, 2.0, pts[0].Value)
	require.Equal(t, 1.0, pts[1].Value)
	require.Equal(t, 3.0, pts[2].Value)
}

func TestCompactPreservesFutureValues(t *testing.T) {
	c := New(0)
	c.SetValueAt(0, 0)
	c.LinearRampTo(1, 10*ms)
	c.LinearRampTo(0.7, 110*ms)
	c.LinearRampTo(0, 400*ms)

	probe := []time.Duration{60 * ms, 110 * ms, 200 * ms, 399 * ms, time.Second}
	want := make([]float64, len(probe))
	for i, p := range probe {
		want[i] = c.ValueAt(p)
	}

	c.Compact(60 * ms)
	require.Less(t, c.Len(), 4)
	for i, p := range probe {
		require.InDelta(t, want[i], c.ValueAt(p), 1e-9, "at %v", p)
	}
}
