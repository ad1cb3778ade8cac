package tick

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
)

// runAll invokes every collected callback; the scheduler itself never does.
func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func TestCollectDueEmptyStore(t *testing.T) {
	s := NewScheduler()
	if got := s.CollectDue(0); len(got) != 0 {
		t.Fatalf("CollectDue(0) on empty store returned %d callbacks, want 0", len(got))
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", s.Pending())
	}
}

func TestDuePartitionScenario(t *testing.T) {
	// Ticks {5, 10, 10, 15}: drain at 10 releases three, retains one.
	s := NewScheduler()
	var fired []int
	for _, due := range []int64{5, 10, 10, 15} {
		due := due
		s.Schedule(due, func() { fired = append(fired, int(due)) })
	}

	got := s.CollectDue(10)
	if len(got) != 3 {
		t.Fatalf("CollectDue(10) returned %d callbacks, want 3", len(got))
	}
	runAll(got)
	if fired[0] != 5 || fired[1] != 10 || fired[2] != 10 {
		t.Fatalf("unexpected drain set: %v", fired)
	}
	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d after drain, want 1", s.Pending())
	}

	got = s.CollectDue(15)
	if len(got) != 1 {
		t.Fatalf("CollectDue(15) returned %d callbacks, want 1", len(got))
	}
	runAll(got)
	if fired[3] != 15 {
		t.Fatalf("tick-15 callback not delivered, fired=%v", fired)
	}

	if got := s.CollectDue(100); len(got) != 0 {
		t.Fatalf("CollectDue(100) returned %d callbacks after full drain, want 0", len(got))
	}
}

func TestPastDueReleasedOnNextDrain(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.Schedule(-3, func() { ran = true }) // already overdue
	runAll(s.CollectDue(0))
	if !ran {
		t.Fatal("overdue callback not released on next drain")
	}
}

func TestAtMostOnceDelivery(t *testing.T) {
	s := NewScheduler()
	var count int
	s.Schedule(1, func() { count++ })
	for i := 0; i < 5; i++ {
		runAll(s.CollectDue(1))
		runAll(s.CollectDue(10))
	}
	if count != 1 {
		t.Fatalf("callback delivered %d times, want exactly 1", count)
	}
}

func TestNotDueTasksUnchanged(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.Schedule(20, func() { order = append(order, "a") })
	s.Schedule(30, func() { order = append(order, "b") })

	// Repeated early drains must be no-ops on the stored set.
	for i := int64(0); i < 10; i++ {
		if got := s.CollectDue(i); len(got) != 0 {
			t.Fatalf("CollectDue(%d) released %d callbacks early", i, len(got))
		}
	}
	if s.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", s.Pending())
	}

	runAll(s.CollectDue(30))
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("retained tasks corrupted by early drains: %v", order)
	}
}

func TestMonotonicDrainUnion(t *testing.T) {
	// Draining with non-decreasing ticks yields every task <= the final
	// tick exactly once.
	s := NewScheduler()
	const n = 200
	seen := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		s.Schedule(int64(i%50), func() { seen[i]++ })
	}
	for cur := int64(0); cur <= 50; cur += 7 {
		runAll(s.CollectDue(cur))
	}
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("task %d delivered %d times, want 1", i, c)
		}
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d after monotonic drain, want 0", s.Pending())
	}
}

func TestConcurrentProducersStress(t *testing.T) {
	const (
		producers   = 8
		perProducer = 500
		maxDue      = 100
	)
	s := NewScheduler()

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < perProducer; i++ {
				s.Schedule(int64(rng.Intn(maxDue)), func() { delivered.Add(1) })
			}
		}(int64(p))
	}

	// Consumer drains with an increasing tick while producers run.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for cur := int64(0); cur < maxDue; cur++ {
			runAll(s.CollectDue(cur))
		}
	}()

	wg.Wait()
	<-done

	// Producers finished; drain past every possible due tick.
	runAll(s.CollectDue(maxDue))

	if got := delivered.Load(); got != producers*perProducer {
		t.Fatalf("delivered %d callbacks, want %d", got, producers*perProducer)
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d after final drain, want 0", s.Pending())
	}
}

func TestScheduleDuringDrainNotLost(t *testing.T) {
	// A task scheduled from inside a returned callback (the consumer
	// re-arming itself) must surface on a later drain.
	s := NewScheduler()
	var chain int
	s.Schedule(1, func() {
		chain++
		s.Schedule(2, func() { chain++ })
	})
	runAll(s.CollectDue(1))
	runAll(s.CollectDue(2))
	if chain != 2 {
		t.Fatalf("re-armed callback chain ran %d times, want 2", chain)
	}
}

func TestClock(t *testing.T) {
	c := NewClock()
	if c.Current() != 0 {
		t.Fatalf("new clock at tick %d, want 0", c.Current())
	}
	if got := c.Advance(); got != 1 {
		t.Fatalf("Advance() = %d, want 1", got)
	}
	c.Advance()
	if c.Current() != 2 {
		t.Fatalf("Current() = %d, want 2", c.Current())
	}
}
