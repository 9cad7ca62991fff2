package roll

import (
	"sync"
	"testing"
	"time"
)

const ms = time.Millisecond

func TestNoteOffClosesWithDuration(t *testing.T) {
	l := NewLog()
	l.OnNoteOn(60, 100*ms)
	if !l.OnNoteOff(60, 150*ms) {
		t.Fatalf("expected note-off to close the open event")
	}

	evs := l.Snapshot()
	if len(evs) != 1 {
		t.Fatalf("expected one event, got %d", len(evs))
	}
	if evs[0].Open || evs[0].Duration != 50*ms {
		t.Fatalf("expected closed event of 50ms, got %+v", evs[0])
	}
}

func TestNoteOffWithoutOpenEventIsNoop(t *testing.T) {
	l := NewLog()
	if l.OnNoteOff(60, time.Second) {
		t.Fatalf("expected no-op on an empty log")
	}

	l.OnNoteOn(61, 0)
	if l.OnNoteOff(60, time.Second) {
		t.Fatalf("expected no-op for a note without an open event")
	}
	if !l.Snapshot()[0].Open {
		t.Fatalf("expected the unrelated event to stay open")
	}
}

func TestRetriggeredNoteClosesMostRecentFirst(t *testing.T) {
	l := NewLog()
	first := l.OnNoteOn(60, 0)
	second := l.OnNoteOn(60, 40*ms)
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %d", first.ID)
	}

	if !l.OnNoteOff(60, 100*ms) {
		t.Fatalf("expected first note-off to close an event")
	}
	evs := l.Snapshot()
	if !evs[0].Open || evs[1].Open || evs[1].Duration != 60*ms {
		t.Fatalf("expected newest event closed after 60ms, got %+v", evs)
	}

	if !l.OnNoteOff(60, 200*ms) {
		t.Fatalf("expected second note-off to close an event")
	}
	evs = l.Snapshot()
	if evs[0].Open || evs[0].Duration != 200*ms {
		t.Fatalf("expected oldest event closed after 200ms, got %+v", evs[0])
	}
	if evs[1].Duration != 60*ms {
		t.Fatalf("closed events are immutable, got %v", evs[1].Duration)
	}
}

func TestPruneBoundary(t *testing.T) {
	l := NewLog()
	l.OnNoteOn(60, 0)
	l.OnNoteOn(62, 1*ms)
	l.OnNoteOn(64, 2*ms)
	l.OnNoteOff(62, 5*ms)

	now := 10*time.Second + 1*ms
	// events with now-start >= window go, open or closed
	if dropped := l.Prune(now, 10*time.Second); dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}

	evs := l.Snapshot()
	if len(evs) != 1 || evs[0].Note != 64 || !evs[0].Open {
		t.Fatalf("expected only the open 64 to remain, got %+v", evs)
	}
}

func TestPruneDropsStuckOpenEvents(t *testing.T) {
	l := NewLog()
	l.OnNoteOn(60, 0)
	if n := l.Prune(9*time.Second, DefaultWindow); n != 0 {
		t.Fatalf("expected nothing pruned inside the window, got %d", n)
	}
	if n := l.Prune(DefaultWindow, DefaultWindow); n != 1 {
		t.Fatalf("expected the stuck event pruned, got %d", n)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty log, got %d", l.Len())
	}
}

func TestSnapshotIsStableAcrossMutation(t *testing.T) {
	l := NewLog()
	l.OnNoteOn(60, 0)
	snap := l.Snapshot()

	l.OnNoteOff(60, 20*ms)
	l.OnNoteOn(61, 30*ms)

	if len(snap) != 1 || !snap[0].Open {
		t.Fatalf("expected the old snapshot unchanged, got %+v", snap)
	}
	if n := len(l.Snapshot()); n != 2 {
		t.Fatalf("expected 2 events in a fresh snapshot, got %d", n)
	}
}

func TestCloseAllClosesOpenEventsOnly(t *testing.T) {
	l := NewLog()
	l.OnNoteOn(60, 0)
	l.OnNoteOn(62, 0)
	l.OnNoteOff(62, 10*ms)

	if n := l.CloseAll(30 * ms); n != 1 {
		t.Fatalf("expected 1 closed, got %d", n)
	}
	evs := l.Snapshot()
	if evs[0].Duration != 30*ms || evs[1].Duration != 10*ms {
		t.Fatalf("expected durations 30ms and 10ms, got %v and %v", evs[0].Duration, evs[1].Duration)
	}
}

func TestElapsedAndVisible(t *testing.T) {
	l := NewLog()
	l.OnNoteOn(60, 0)
	l.OnNoteOn(62, 6*time.Second)
	l.OnNoteOff(62, 6500*ms)

	now := 7 * time.Second
	vis := l.Visible(now, 5*time.Second)
	if len(vis) != 1 || vis[0].Note != 62 {
		t.Fatalf("expected only 62 visible, got %+v", vis)
	}
	if got := vis[0].Elapsed(now); got != 500*ms {
		t.Fatalf("expected closed elapsed 500ms, got %v", got)
	}

	if got := l.Snapshot()[0].Elapsed(now); got != 7*time.Second {
		t.Fatalf("expected open elapsed 7s, got %v", got)
	}
}

func TestConcurrentPruneAndAppend(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			l.OnNoteOn(i%128, time.Duration(i)*ms)
			l.OnNoteOff(i%128, time.Duration(i+1)*ms)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			l.Prune(time.Duration(i)*ms, 100*ms)
			_ = l.Snapshot()
		}
	}()
	wg.Wait()

	for _, ev := range l.Snapshot() {
		if ev.Open {
			t.Fatalf("expected every event closed, got %+v", ev)
		}
	}
}
