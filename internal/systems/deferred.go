package systems

import (
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/core/system"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"go.uber.org/zap"
)

// DeferredSystem advances the tick clock and runs every deferred callback
// that has come due. It is the scheduler's single consumer: no other code
// calls CollectDue. Callbacks run on the game loop goroutine, in the order
// they were scheduled, each wrapped in panic recovery so one bad callback
// cannot take down the tick.
type DeferredSystem struct {
	sched *tick.Scheduler
	clock *tick.Clock
	log   *zap.Logger
}

func NewDeferredSystem(sched *tick.Scheduler, clock *tick.Clock, log *zap.Logger) *DeferredSystem {
	return &DeferredSystem{sched: sched, clock: clock, log: log}
}

func (d *DeferredSystem) Phase() system.Phase {
	return system.PhaseUpdate
}

func (d *DeferredSystem) Update(dt time.Duration) {
	cur := d.clock.Advance()
	due := d.sched.CollectDue(cur)
	if len(due) == 0 {
		return
	}
	d.log.Debug("running deferred callbacks", zap.Int64("tick", cur), zap.Int("count", len(due)))
	for _, fn := range due {
		d.runOne(cur, fn)
	}
}

func (d *DeferredSystem) runOne(cur int64, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("deferred callback panic recovered",
				zap.Int64("tick", cur),
				zap.Any("panic", rec),
			)
		}
	}()
	fn()
}
