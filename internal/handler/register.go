package handler

import "github.com/2vg/CounterStrikeSharp/internal/net/packet"

// RegisterAll wires every client opcode into the registry with its allowed
// session states.
func RegisterAll(reg *packet.Registry, d *Deps) {
	reg.Register(packet.C_OPCODE_LOGIN,
		[]packet.SessionState{packet.StateConnected}, d.handleLogin)
	reg.Register(packet.C_OPCODE_CHAT,
		[]packet.SessionState{packet.StateInGame}, d.handleChat)
	reg.Register(packet.C_OPCODE_PING,
		[]packet.SessionState{packet.StateConnected, packet.StateInGame}, d.handlePing)
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateConnected, packet.StateInGame}, d.handleQuit)
}
