package systems

import (
	"testing"
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"go.uber.org/zap"
)

func TestDeferredSystemRunsDueCallbacksInOrder(t *testing.T) {
	sched := tick.NewScheduler()
	clock := tick.NewClock()
	d := NewDeferredSystem(sched, clock, zap.NewNop())

	var got []int
	sched.Schedule(1, func() { got = append(got, 1) })
	sched.Schedule(2, func() { got = append(got, 2) })
	sched.Schedule(1, func() { got = append(got, 3) })

	d.Update(time.Millisecond) // tick 1
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("after tick 1: got %v, want [1 3]", got)
	}

	d.Update(time.Millisecond) // tick 2
	if len(got) != 3 || got[2] != 2 {
		t.Fatalf("after tick 2: got %v, want [1 3 2]", got)
	}
	if clock.Current() != 2 {
		t.Fatalf("clock = %d, want 2", clock.Current())
	}
}

func TestDeferredSystemSurvivesPanickingCallback(t *testing.T) {
	sched := tick.NewScheduler()
	clock := tick.NewClock()
	d := NewDeferredSystem(sched, clock, zap.NewNop())

	var ran bool
	sched.Schedule(1, func() { panic("boom") })
	sched.Schedule(1, func() { ran = true })

	d.Update(time.Millisecond)
	if !ran {
		t.Fatal("callback after panicking one did not run")
	}
	if sched.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", sched.Pending())
	}
}
