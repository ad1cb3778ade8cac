package systems

import (
	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
)

// SessionTable tracks live sessions by ID. It is owned by the game loop
// goroutine: InputSystem adds and removes entries, OutputSystem flushes
// them, handlers broadcast through it. No locking needed.
type SessionTable struct {
	sessions map[uint64]*net.Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[uint64]*net.Session)}
}

func (t *SessionTable) Add(s *net.Session) {
	t.sessions[s.ID] = s
}

func (t *SessionTable) Remove(id uint64) {
	delete(t.sessions, id)
}

func (t *SessionTable) Get(id uint64) *net.Session {
	return t.sessions[id]
}

func (t *SessionTable) Count() int {
	return len(t.sessions)
}

func (t *SessionTable) ForEach(fn func(*net.Session)) {
	for _, s := range t.sessions {
		fn(s)
	}
}

// BroadcastMessage buffers a server message packet for every in-game session.
func (t *SessionTable) BroadcastMessage(msg string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SERVER_MESSAGE)
	w.WriteS(msg)
	data := w.Bytes()
	for _, s := range t.sessions {
		if s.State() == packet.StateInGame {
			s.Send(data)
		}
	}
}
