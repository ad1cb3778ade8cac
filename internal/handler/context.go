// Package handler implements the client packet handlers. Handlers run on
// the game loop goroutine, dispatched by InputSystem through the opcode
// registry, so they may touch world state freely and schedule deferred
// work on the tick scheduler.
package handler

import (
	"github.com/2vg/CounterStrikeSharp/internal/config"
	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"github.com/2vg/CounterStrikeSharp/internal/persist"
	"github.com/2vg/CounterStrikeSharp/internal/systems"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	"go.uber.org/zap"
)

// Deps bundles everything handlers need. One instance is shared by all
// handlers for the lifetime of the process.
type Deps struct {
	Cfg      *config.Config
	World    *world.State
	Accounts *persist.AccountRepo
	Players  *persist.PlayerRepo
	Sessions *systems.SessionTable
	Sched    *tick.Scheduler
	Clock    *tick.Clock
	Bus      *event.Bus
	Log      *zap.Logger
}
