package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: accept sessions, drain packet queues
	PhaseUpdate                  // 1: deferred callbacks, game logic
	PhasePostUpdate              // 2: event dispatch, housekeeping
	PhaseOutput                  // 3: flush buffered packets
	PhasePersist                 // 4: batch save
)

// System is the interface every per-tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
