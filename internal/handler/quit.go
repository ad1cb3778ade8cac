package handler

import (
	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
)

// handleQuit acknowledges a clean disconnect. The close itself is deferred
// one tick so OutputSystem can flush the goodbye packet first; InputSystem
// reaps the session once it is closed.
func (d *Deps) handleQuit(raw any, r *packet.Reader) {
	sess := raw.(*net.Session)

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_DISCONNECT)
	w.WriteC(0)
	sess.Send(w.Bytes())

	id := sess.ID
	d.Sched.Schedule(d.Clock.Current()+1, func() {
		if s := d.Sessions.Get(id); s != nil {
			s.Close()
		}
	})
}
