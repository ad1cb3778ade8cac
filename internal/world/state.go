package world

import (
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/net"
)

// Player holds in-memory data for a player currently connected.
// Accessed only from the game loop goroutine — no locks needed.
type Player struct {
	Slot      int
	SessionID uint64
	Session   *net.Session
	Account   string
	Name      string

	Health int32
	Score  int32
	Deaths int32

	ConnectedAt time.Time

	// Dirty marks state changes since the last save. PersistenceSystem only
	// saves dirty players and resets the flag after each successful save.
	Dirty bool
}

// State tracks all connected players, indexed by session, slot and name.
// Slots are assigned lowest-free-first and freed on removal.
type State struct {
	bySession map[uint64]*Player
	byName    map[string]*Player
	slots     []*Player
}

func NewState(maxPlayers int) *State {
	return &State{
		bySession: make(map[uint64]*Player),
		byName:    make(map[string]*Player),
		slots:     make([]*Player, maxPlayers),
	}
}

// AddPlayer places p into the lowest free slot and indexes it.
// Returns false when the server is full; p is not registered in that case.
func (s *State) AddPlayer(p *Player) bool {
	for i, occupant := range s.slots {
		if occupant == nil {
			p.Slot = i
			s.slots[i] = p
			s.bySession[p.SessionID] = p
			s.byName[p.Name] = p
			return true
		}
	}
	return false
}

// RemovePlayer unregisters the player owning sessionID and frees its slot.
// Returns the removed player, or nil if the session had no player.
func (s *State) RemovePlayer(sessionID uint64) *Player {
	p, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(s.bySession, sessionID)
	delete(s.byName, p.Name)
	if p.Slot >= 0 && p.Slot < len(s.slots) && s.slots[p.Slot] == p {
		s.slots[p.Slot] = nil
	}
	return p
}

func (s *State) GetBySession(sessionID uint64) *Player {
	return s.bySession[sessionID]
}

func (s *State) GetBySlot(slot int) *Player {
	if slot < 0 || slot >= len(s.slots) {
		return nil
	}
	return s.slots[slot]
}

func (s *State) GetByName(name string) *Player {
	return s.byName[name]
}

// PlayerCount returns the number of connected players.
func (s *State) PlayerCount() int {
	return len(s.bySession)
}

// MaxPlayers returns the slot capacity.
func (s *State) MaxPlayers() int {
	return len(s.slots)
}

// AllPlayers visits every connected player in slot order.
func (s *State) AllPlayers(fn func(*Player)) {
	for _, p := range s.slots {
		if p != nil {
			fn(p)
		}
	}
}

// ConnectedIterator walks a snapshot of the players connected at creation
// time. Mutating the state afterwards does not affect an open iterator,
// so scripts can disconnect players mid-iteration safely.
type ConnectedIterator struct {
	players []*Player
	idx     int
}

// ConnectedPlayers returns a fresh iterator over the current players,
// in slot order.
func (s *State) ConnectedPlayers() *ConnectedIterator {
	snapshot := make([]*Player, 0, len(s.bySession))
	for _, p := range s.slots {
		if p != nil {
			snapshot = append(snapshot, p)
		}
	}
	return &ConnectedIterator{players: snapshot}
}

// HasNext reports whether the iterator has a current element.
func (it *ConnectedIterator) HasNext() bool {
	return it.idx < len(it.players)
}

// Current returns the player at the cursor, or nil when exhausted.
func (it *ConnectedIterator) Current() *Player {
	if !it.HasNext() {
		return nil
	}
	return it.players[it.idx]
}

// CurrentSlot returns the slot at the cursor, or -1 when exhausted.
func (it *ConnectedIterator) CurrentSlot() int {
	if p := it.Current(); p != nil {
		return p.Slot
	}
	return -1
}

// MoveNext advances the cursor by one element.
func (it *ConnectedIterator) MoveNext() {
	if it.idx < len(it.players) {
		it.idx++
	}
}
