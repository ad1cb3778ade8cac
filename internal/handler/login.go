package handler

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	"github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	loginOK            byte = 0
	loginBadPassword   byte = 1
	loginBanned        byte = 2
	loginAlreadyOnline byte = 3
	loginServerFull    byte = 4
	loginInvalidName   byte = 5
	loginTryAgain      byte = 6
)

const (
	minNameRunes = 3
	maxNameRunes = 16
	dbOpTimeout  = 5 * time.Second

	defaultHealth = 100
)

// handleLogin authenticates a session. Unknown names are registered on the
// spot with the supplied password, the way most community game servers do.
func (d *Deps) handleLogin(raw any, r *packet.Reader) {
	sess := raw.(*net.Session)
	name := norm.NFC.String(strings.TrimSpace(r.ReadS()))
	password := r.ReadS()

	if !validName(name) {
		sendLoginResult(sess, loginInvalidName, -1, d.Cfg.Server.Name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbOpTimeout)
	defer cancel()

	acct, err := d.Accounts.Load(ctx, name)
	if err != nil {
		d.Log.Error("account load failed", zap.String("account", name), zap.Error(err))
		sendLoginResult(sess, loginTryAgain, -1, d.Cfg.Server.Name)
		return
	}
	if acct == nil {
		acct, err = d.Accounts.Create(ctx, name, password, sess.IP)
		if err != nil {
			d.Log.Error("account create failed", zap.String("account", name), zap.Error(err))
			sendLoginResult(sess, loginTryAgain, -1, d.Cfg.Server.Name)
			return
		}
		d.Log.Info("account created", zap.String("account", name), zap.String("ip", sess.IP))
	} else if !d.Accounts.ValidatePassword(acct.PasswordHash, password) {
		d.Log.Warn("bad password", zap.String("account", name), zap.String("ip", sess.IP))
		sendLoginResult(sess, loginBadPassword, -1, d.Cfg.Server.Name)
		return
	}

	if acct.Banned {
		sendLoginResult(sess, loginBanned, -1, d.Cfg.Server.Name)
		return
	}
	if d.World.GetByName(name) != nil {
		sendLoginResult(sess, loginAlreadyOnline, -1, d.Cfg.Server.Name)
		return
	}

	p := &world.Player{
		SessionID:   sess.ID,
		Session:     sess,
		Account:     name,
		Name:        name,
		Health:      defaultHealth,
		ConnectedAt: time.Now(),
		Dirty:       true,
	}
	if row, err := d.Players.Load(ctx, name); err != nil {
		d.Log.Error("player load failed", zap.String("player", name), zap.Error(err))
	} else if row != nil {
		p.Health = row.Health
		p.Score = row.Score
		p.Deaths = row.Deaths
	}

	if !d.World.AddPlayer(p) {
		sendLoginResult(sess, loginServerFull, -1, d.Cfg.Server.Name)
		return
	}

	sess.Account = name
	sess.PlayerName = name
	sess.SetState(packet.StateInGame)

	if err := d.Accounts.SetOnline(ctx, name, true); err != nil {
		d.Log.Error("mark online failed", zap.String("account", name), zap.Error(err))
	}
	if err := d.Accounts.UpdateLastActive(ctx, name, sess.IP); err != nil {
		d.Log.Error("update last active failed", zap.String("account", name), zap.Error(err))
	}

	event.Emit(d.Bus, event.PlayerConnected{Slot: p.Slot, Name: p.Name})
	sendLoginResult(sess, loginOK, p.Slot, d.Cfg.Server.Name)

	d.Log.Info("player joined",
		zap.String("player", p.Name),
		zap.Int("slot", p.Slot),
		zap.Int("online", d.World.PlayerCount()),
	)
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < minNameRunes || n > maxNameRunes {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n\x00")
}

func sendLoginResult(sess *net.Session, code byte, slot int, serverName string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOGIN_RESULT)
	w.WriteC(code)
	w.WriteD(int32(slot))
	w.WriteS(serverName)
	sess.Send(w.Bytes())
}
