package systems

import (
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/core/system"
	"github.com/2vg/CounterStrikeSharp/internal/net"
)

// OutputSystem flushes every session's buffered packets to its writer
// goroutine at the end of the tick.
type OutputSystem struct {
	sessions *SessionTable
}

func NewOutputSystem(sessions *SessionTable) *OutputSystem {
	return &OutputSystem{sessions: sessions}
}

func (o *OutputSystem) Phase() system.Phase {
	return system.PhaseOutput
}

func (o *OutputSystem) Update(dt time.Duration) {
	o.sessions.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
