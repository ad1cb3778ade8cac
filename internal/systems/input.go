package systems

import (
	"context"
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	"github.com/2vg/CounterStrikeSharp/internal/core/system"
	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
	"github.com/2vg/CounterStrikeSharp/internal/persist"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	"go.uber.org/zap"
)

const dbOpTimeout = 5 * time.Second

// InputSystem is the bridge between the network goroutines and the game
// loop. Each tick it admits new sessions, reaps dead ones, and drains a
// bounded number of packets per session into the handler registry.
type InputSystem struct {
	server   *net.Server
	sessions *SessionTable
	registry *packet.Registry
	world    *world.State
	bus      *event.Bus

	players  *persist.PlayerRepo
	accounts *persist.AccountRepo

	maxPacketsPerTick int

	log *zap.Logger
}

func NewInputSystem(
	server *net.Server,
	sessions *SessionTable,
	registry *packet.Registry,
	ws *world.State,
	bus *event.Bus,
	players *persist.PlayerRepo,
	accounts *persist.AccountRepo,
	maxPacketsPerTick int,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		server:            server,
		sessions:          sessions,
		registry:          registry,
		world:             ws,
		bus:               bus,
		players:           players,
		accounts:          accounts,
		maxPacketsPerTick: maxPacketsPerTick,
		log:               log,
	}
}

func (in *InputSystem) Phase() system.Phase {
	return system.PhaseInput
}

func (in *InputSystem) Update(dt time.Duration) {
	in.admitNew()
	in.reapDead()
	in.drainPackets()
}

// admitNew pulls freshly accepted sessions into the table.
func (in *InputSystem) admitNew() {
	for {
		select {
		case sess := <-in.server.NewSessions():
			in.sessions.Add(sess)
		default:
			return
		}
	}
}

// reapDead removes sessions reported dead plus any whose I/O goroutines
// closed them since last tick.
func (in *InputSystem) reapDead() {
	for {
		select {
		case id := <-in.server.DeadSessions():
			if sess := in.sessions.Get(id); sess != nil {
				in.disconnect(sess)
			}
		default:
			in.sessions.ForEach(func(sess *net.Session) {
				if sess.IsClosed() {
					in.disconnect(sess)
				}
			})
			return
		}
	}
}

// drainPackets dispatches up to maxPacketsPerTick packets per session.
// The cap keeps one chatty client from monopolizing the tick.
func (in *InputSystem) drainPackets() {
	in.sessions.ForEach(func(sess *net.Session) {
		for i := 0; i < in.maxPacketsPerTick; i++ {
			select {
			case data := <-sess.InQueue:
				if err := in.registry.Dispatch(sess, sess.State(), data); err != nil {
					in.log.Warn("dispatch failed, dropping session",
						zap.Uint64("session", sess.ID),
						zap.Error(err),
					)
					sess.Close()
					in.server.NotifyDead(sess.ID)
					return
				}
			default:
				return
			}
		}
	})
}

// disconnect tears a session down on the game loop side: the player leaves
// the world, its state is saved, and the account is marked offline.
func (in *InputSystem) disconnect(sess *net.Session) {
	sess.Close()
	in.sessions.Remove(sess.ID)

	p := in.world.RemovePlayer(sess.ID)
	if p == nil {
		in.log.Info("session closed before login", zap.Uint64("session", sess.ID))
		return
	}

	event.Emit(in.bus, event.PlayerDisconnected{Slot: p.Slot, Name: p.Name})

	ctx, cancel := context.WithTimeout(context.Background(), dbOpTimeout)
	defer cancel()
	if err := in.players.Save(ctx, &persist.PlayerRow{
		Name:     p.Name,
		Health:   p.Health,
		Score:    p.Score,
		Deaths:   p.Deaths,
		LastSlot: p.Slot,
	}); err != nil {
		in.log.Error("save on disconnect failed", zap.String("player", p.Name), zap.Error(err))
	}
	if err := in.accounts.SetOnline(ctx, p.Account, false); err != nil {
		in.log.Error("mark offline failed", zap.String("account", p.Account), zap.Error(err))
	}

	in.log.Info("player disconnected",
		zap.String("player", p.Name),
		zap.Int("slot", p.Slot),
		zap.Int("online", in.world.PlayerCount()),
	)
}
