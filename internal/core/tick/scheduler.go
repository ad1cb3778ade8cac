// Package tick provides the deferred-execution primitives of the game loop:
// a logical clock and a scheduler that buffers callbacks until their target
// tick arrives.
package tick

import "sync"

type task struct {
	due int64
	fn  func()
}

// Scheduler buffers callbacks keyed by a target tick and releases them to
// the game loop once that tick has arrived or passed.
//
// Any number of goroutines may call Schedule concurrently with each other
// and with CollectDue. CollectDue must only be called from the single
// consumer (the game loop); that precondition is not enforced.
//
// The scheduler never invokes a callback itself. Ownership of a callback
// transfers to the caller when CollectDue returns it, and any error or panic
// raised while running it is the caller's to handle. Likewise, if a callback
// captures state shared across goroutines, synchronizing that state is the
// scheduling caller's responsibility.
type Scheduler struct {
	mu      sync.Mutex
	pending []task
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make([]task, 0, 64)}
}

// Schedule registers fn to be released by the first CollectDue call whose
// currentTick is at or past due. A due tick at or before the current tick is
// released on the very next drain. Never blocks on the consumer.
func (s *Scheduler) Schedule(due int64, fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, task{due: due, fn: fn})
	s.mu.Unlock()
}

// CollectDue removes and returns every callback whose target tick is
// <= currentTick, in insertion order. Callbacks with a later target tick
// stay buffered, unchanged, for a future call. Each callback is returned
// exactly once, ever.
//
// Callbacks racing with the drain (Schedule concurrent with CollectDue)
// land in this result or a later one — never lost, never duplicated.
//
// Single consumer only: the game loop is the one drain point.
func (s *Scheduler) CollectDue(currentTick int64) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []func()
	kept := s.pending[:0]
	for _, t := range s.pending {
		if t.due <= currentTick {
			due = append(due, t.fn)
		} else {
			kept = append(kept, t)
		}
	}
	// Zero the tail so released callbacks don't linger behind len(kept).
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = task{}
	}
	s.pending = kept
	return due
}

// Pending reports how many callbacks are currently buffered. It is a
// read-only diagnostic for tests and introspection; Schedule and CollectDue
// remain the only operations that move callbacks through the scheduler.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
