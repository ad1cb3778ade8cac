package systems

import (
	"context"
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/core/system"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"github.com/2vg/CounterStrikeSharp/internal/persist"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	"go.uber.org/zap"
)

// PersistenceSystem batch-saves dirty players on a fixed tick interval.
// Runs last in the tick so it sees the final state of the frame.
type PersistenceSystem struct {
	world    *world.State
	players  *persist.PlayerRepo
	clock    *tick.Clock
	interval int64
	log      *zap.Logger
}

func NewPersistenceSystem(ws *world.State, players *persist.PlayerRepo, clock *tick.Clock, interval int64, log *zap.Logger) *PersistenceSystem {
	if interval <= 0 {
		interval = 1
	}
	return &PersistenceSystem{
		world:    ws,
		players:  players,
		clock:    clock,
		interval: interval,
		log:      log,
	}
}

func (ps *PersistenceSystem) Phase() system.Phase {
	return system.PhasePersist
}

func (ps *PersistenceSystem) Update(dt time.Duration) {
	cur := ps.clock.Current()
	if cur == 0 || cur%ps.interval != 0 {
		return
	}
	saved := ps.saveDirty()
	if saved > 0 {
		ps.log.Info("batch save complete", zap.Int64("tick", cur), zap.Int("players", saved))
	}
}

func (ps *PersistenceSystem) saveDirty() int {
	ctx, cancel := context.WithTimeout(context.Background(), dbOpTimeout)
	defer cancel()

	saved := 0
	ps.world.AllPlayers(func(p *world.Player) {
		if !p.Dirty {
			return
		}
		if err := ps.savePlayer(ctx, p); err != nil {
			ps.log.Error("batch save failed", zap.String("player", p.Name), zap.Error(err))
			return
		}
		p.Dirty = false
		saved++
	})
	return saved
}

// SaveAll persists every connected player regardless of the dirty flag.
// Called once on shutdown.
func (ps *PersistenceSystem) SaveAll(ctx context.Context) {
	ps.world.AllPlayers(func(p *world.Player) {
		if err := ps.savePlayer(ctx, p); err != nil {
			ps.log.Error("shutdown save failed", zap.String("player", p.Name), zap.Error(err))
			return
		}
		p.Dirty = false
	})
}

func (ps *PersistenceSystem) savePlayer(ctx context.Context, p *world.Player) error {
	return ps.players.Save(ctx, &persist.PlayerRow{
		Name:     p.Name,
		Health:   p.Health,
		Score:    p.Score,
		Deaths:   p.Deaths,
		LastSlot: p.Slot,
	})
}
