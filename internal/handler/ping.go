package handler

import (
	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
)

// handlePing echoes the client's timestamp and reports the current tick.
func (d *Deps) handlePing(raw any, r *packet.Reader) {
	sess := raw.(*net.Session)
	clientStamp := r.ReadD()

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PONG)
	w.WriteD(clientStamp)
	w.WriteQ(d.Clock.Current())
	sess.Send(w.Bytes())
}
