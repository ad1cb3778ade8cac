package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
)

const (
	maxChatRunes = 256

	// /delay is capped at one hour at 64 ticks per second.
	maxDelayTicks = 64 * 3600
)

// handleChat broadcasts a chat line to every in-game session. Lines
// starting with '/' are commands.
func (d *Deps) handleChat(raw any, r *packet.Reader) {
	sess := raw.(*net.Session)
	msg := strings.TrimSpace(r.ReadS())
	if msg == "" {
		return
	}

	p := d.World.GetBySession(sess.ID)
	if p == nil {
		return
	}

	if strings.HasPrefix(msg, "/delay ") {
		d.delayCommand(sess, msg)
		return
	}

	runes := []rune(msg)
	if len(runes) > maxChatRunes {
		msg = string(runes[:maxChatRunes])
	}

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CHAT)
	w.WriteD(int32(p.Slot))
	w.WriteS(p.Name)
	w.WriteS(msg)
	data := w.Bytes()

	d.Sessions.ForEach(func(s *net.Session) {
		if s.State() == packet.StateInGame {
			s.Send(data)
		}
	})
}

// delayCommand arms a deferred echo: "/delay <ticks> <text>" sends text
// back to the issuer once the given number of ticks has elapsed. If the
// session is gone when the callback fires, it does nothing.
func (d *Deps) delayCommand(sess *net.Session, msg string) {
	parts := strings.SplitN(msg, " ", 3)
	if len(parts) < 3 {
		sendServerMessage(sess, "usage: /delay <ticks> <text>")
		return
	}
	ticks, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || ticks < 1 || ticks > maxDelayTicks {
		sendServerMessage(sess, "usage: /delay <ticks> <text>")
		return
	}
	text := parts[2]

	id := sess.ID
	d.Sched.Schedule(d.Clock.Current()+ticks, func() {
		s := d.Sessions.Get(id)
		if s == nil || s.IsClosed() {
			return
		}
		sendServerMessage(s, text)
	})
	sendServerMessage(sess, fmt.Sprintf("delayed %d ticks", ticks))
}

func sendServerMessage(sess *net.Session, msg string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SERVER_MESSAGE)
	w.WriteS(msg)
	sess.Send(w.Bytes())
}
