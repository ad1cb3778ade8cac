package handler

import (
	gonet "net"
	"testing"

	"github.com/2vg/CounterStrikeSharp/internal/config"
	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
	"github.com/2vg/CounterStrikeSharp/internal/systems"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	"go.uber.org/zap"
)

type chatFixture struct {
	deps  *Deps
	sched *tick.Scheduler
	clock *tick.Clock
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	return &chatFixture{
		deps: &Deps{
			Cfg:      &config.Config{},
			World:    world.NewState(8),
			Sessions: systems.NewSessionTable(),
			Sched:    tick.NewScheduler(),
			Clock:    tick.NewClock(),
			Bus:      event.NewBus(),
			Log:      zap.NewNop(),
		},
	}
}

// newTestSession builds a session over a pipe without starting its I/O
// goroutines; Send/FlushOutput work fine without them.
func newTestSession(t *testing.T, id uint64) *net.Session {
	t.Helper()
	client, server := gonet.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return net.NewSession(server, id, 8, 8, nil, 0, zap.NewNop())
}

func (f *chatFixture) join(t *testing.T, sess *net.Session, name string) {
	t.Helper()
	sess.SetState(packet.StateInGame)
	f.deps.Sessions.Add(sess)
	if !f.deps.World.AddPlayer(&world.Player{SessionID: sess.ID, Session: sess, Name: name}) {
		t.Fatalf("join %s: server full", name)
	}
}

func chatPayload(msg string) []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_CHAT)
	w.WriteS(msg)
	return w.Bytes()
}

func flushOne(t *testing.T, sess *net.Session) []byte {
	t.Helper()
	sess.FlushOutput()
	select {
	case data := <-sess.OutQueue:
		return data
	default:
		t.Fatal("no packet queued")
		return nil
	}
}

func TestChatBroadcastReachesInGameSessionsOnly(t *testing.T) {
	f := newChatFixture(t)
	alice := newTestSession(t, 1)
	bob := newTestSession(t, 2)
	lobby := newTestSession(t, 3) // connected but not logged in
	f.deps.Sessions.Add(lobby)
	f.join(t, alice, "alice")
	f.join(t, bob, "bob")

	deps := f.deps
	deps.handleChat(alice, packet.NewReader(chatPayload("hello")))

	for _, sess := range []*net.Session{alice, bob} {
		data := flushOne(t, sess)
		r := packet.NewReader(data)
		if r.Opcode() != packet.S_OPCODE_CHAT {
			t.Fatalf("opcode = %#x, want S_OPCODE_CHAT", r.Opcode())
		}
		if slot := r.ReadD(); slot != 0 {
			t.Fatalf("slot = %d, want 0", slot)
		}
		if name := r.ReadS(); name != "alice" {
			t.Fatalf("name = %q", name)
		}
		if msg := r.ReadS(); msg != "hello" {
			t.Fatalf("msg = %q", msg)
		}
	}

	lobby.FlushOutput()
	select {
	case <-lobby.OutQueue:
		t.Fatal("lobby session received chat before login")
	default:
	}
}

func TestDelayCommandFiresAtDueTick(t *testing.T) {
	f := newChatFixture(t)
	alice := newTestSession(t, 1)
	f.join(t, alice, "alice")

	f.deps.handleChat(alice, packet.NewReader(chatPayload("/delay 3 later")))

	// Immediate ack only.
	data := flushOne(t, alice)
	r := packet.NewReader(data)
	if r.Opcode() != packet.S_OPCODE_SERVER_MESSAGE {
		t.Fatalf("ack opcode = %#x", r.Opcode())
	}

	for tickNo := int64(1); tickNo <= 3; tickNo++ {
		for _, fn := range f.deps.Sched.CollectDue(f.deps.Clock.Advance()) {
			fn()
		}
	}

	data = flushOne(t, alice)
	r = packet.NewReader(data)
	if r.Opcode() != packet.S_OPCODE_SERVER_MESSAGE {
		t.Fatalf("opcode = %#x", r.Opcode())
	}
	if msg := r.ReadS(); msg != "later" {
		t.Fatalf("msg = %q, want later", msg)
	}
	if f.deps.Sched.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", f.deps.Sched.Pending())
	}
}

func TestDelayCommandDroppedForGoneSession(t *testing.T) {
	f := newChatFixture(t)
	alice := newTestSession(t, 1)
	f.join(t, alice, "alice")

	f.deps.handleChat(alice, packet.NewReader(chatPayload("/delay 2 ghost")))
	f.deps.Sessions.Remove(alice.ID)

	for tickNo := int64(1); tickNo <= 2; tickNo++ {
		for _, fn := range f.deps.Sched.CollectDue(f.deps.Clock.Advance()) {
			fn()
		}
	}
	// Only the ack should be buffered; the deferred echo found no session.
	alice.FlushOutput()
	<-alice.OutQueue
	select {
	case <-alice.OutQueue:
		t.Fatal("deferred echo sent to removed session")
	default:
	}
}
