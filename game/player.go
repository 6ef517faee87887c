// SPDX-License-Identifier: GPL-2.0-or-later

package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"goquake2/cbuf"
	"goquake2/info"
	qmath "goquake2/math"
	"goquake2/math/vec"
	"goquake2/pmove"
	"goquake2/protocol"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
)

type player struct {
	name      string
	skin      string
	fov       float32
	spectator bool
	frags     int

	inGame bool
	ps     svc.PlayerState
	// the origin was set outside of pmove
	snap bool
	// angles of the last usercmd, needed to turn the view on respawn
	cmdAngles [3]int16
}

func (g *Game) entity(slot int) *svc.EntityState {
	return g.ents[slot+1]
}

// ClientConnect checks the password and accepts everybody else.
func (g *Game) ClientConnect(slot int, userinfo string) (string, bool) {
	if pw := g.password.String(); pw != "" && pw != "none" {
		if info.ValueForKey(userinfo, "password") != pw {
			return info.SetValueForKey(userinfo, "rejmsg", "Password required or incorrect."), false
		}
	}
	g.players[slot] = player{}
	g.ClientUserinfoChanged(slot, userinfo)
	log.Info().Str("ctx", "game").Int("slot", slot).Str("name", g.players[slot].name).Msg("client connected")
	return userinfo, true
}

func (g *Game) ClientUserinfoChanged(slot int, userinfo string) {
	p := &g.players[slot]
	p.name = info.ValueForKey(userinfo, "name")
	if p.name == "" {
		p.name = "badinfo"
	}
	p.skin = info.ValueForKey(userinfo, "skin")
	if p.skin == "" {
		p.skin = "male/grunt"
	}
	g.api.ConfigString(protocol.CsPlayerSkins+slot, p.name+"\\"+p.skin)

	p.fov = 90
	if f, err := strconv.ParseFloat(info.ValueForKey(userinfo, "fov"), 32); err == nil {
		p.fov = qmath.Clamp(1, float32(f), 160)
	}
	p.ps.Fov = p.fov

	sp := info.ValueForKey(userinfo, "spectator")
	p.spectator = sp != "" && sp != "0"
	if p.inGame {
		g.setMoveType(p)
	}
}

func (g *Game) setMoveType(p *player) {
	if p.spectator {
		p.ps.Pmove.Type = svc.PmSpectator
	} else {
		p.ps.Pmove.Type = svc.PmNormal
	}
}

// ClientBegin puts the player into the world at the spawn spot.
func (g *Game) ClientBegin(slot int) {
	p := &g.players[slot]
	p.inGame = true
	p.frags = 0
	g.putInServer(slot)
	g.api.BroadcastPrintf(protocol.PrintHigh, "%s entered the game\n", p.name)
}

func (g *Game) putInServer(slot int) {
	p := &g.players[slot]
	spot := g.spot
	// players that come in together would stand in each other
	spot.origin.X += float32(slot%8) * 40

	e := g.entity(slot)
	if e == nil {
		e = &svc.EntityState{Number: slot + 1}
		g.ents[slot+1] = e
	}
	e.Origin = spot.origin
	e.OldOrigin = spot.origin
	e.Angles = vec.Vec3{Y: spot.yaw}
	e.Model = [4]int{255}
	e.Skin = uint32(slot)
	e.Event = protocol.EvPlayerTeleport
	e.Solid = 16 | 16<<5 | 32<<10

	ps := svc.PlayerState{Fov: p.fov, Stats: p.ps.Stats}
	ps.Pmove.Gravity = int16(g.gravity.Int())
	for i, v := range [3]float32{spot.origin.X, spot.origin.Y, spot.origin.Z} {
		ps.Pmove.Origin[i] = int16(v * 8)
	}
	// hold in place briefly
	ps.Pmove.Flags = svc.PmfTimeTeleport
	ps.Pmove.Time = 14
	angles := [3]float32{0, spot.yaw, 0}
	for i := range angles {
		ps.Pmove.DeltaAngles[i] = qmath.AngleToShort(angles[i] - qmath.ShortToAngle(p.cmdAngles[i]))
	}
	ps.ViewAngles = vec.Vec3{Y: spot.yaw}
	ps.ViewOffset = vec.Vec3{Z: 22}
	p.ps = ps
	g.setMoveType(p)
	p.snap = true
}

// ClientThink runs the movement of one usercmd.
func (g *Game) ClientThink(slot int, cmd *clc.UserCmd) {
	p := &g.players[slot]
	p.cmdAngles = cmd.Angles
	e := g.entity(slot)
	if !p.inGame || e == nil {
		return
	}
	wasOnGround := p.ps.Pmove.Flags&svc.PmfOnGround != 0
	oldVelocity := float32(p.ps.Pmove.Velocity[2]) * 0.125

	pm := pmove.Pmove{
		State:         p.ps.Pmove,
		Cmd:           *cmd,
		SnapInitial:   p.snap,
		Trace:         world,
		AirAccelerate: g.airAccel.Value(),
	}
	pm.State.Gravity = int16(g.gravity.Int())
	pmove.Move(&pm)
	p.snap = false

	p.ps.Pmove = pm.State
	p.ps.ViewAngles = pm.ViewAngles
	p.ps.ViewOffset.Z = pm.ViewHeight
	e.Origin = vec.Vec3{
		X: float32(pm.State.Origin[0]) * 0.125,
		Y: float32(pm.State.Origin[1]) * 0.125,
		Z: float32(pm.State.Origin[2]) * 0.125,
	}
	e.Angles = vec.Vec3{Y: pm.ViewAngles.Y}

	if !wasOnGround && pm.GroundEntity != -1 {
		if ev := fallEvent(oldVelocity); ev != protocol.EvNone {
			e.Event = ev
		}
	}
}

// fallEvent picks the landing sound for a fall at velocity.
func fallEvent(velocity float32) int {
	if velocity >= 0 {
		return protocol.EvNone
	}
	delta := velocity * velocity * 0.0001
	switch {
	case delta < 1:
		return protocol.EvNone
	case delta < 15:
		return protocol.EvFallShort
	case delta < 30:
		return protocol.EvMaleFall
	}
	return protocol.EvFallFar
}

// ClientCommand handles the commands the server does not know itself.
func (g *Game) ClientCommand(slot int, args cbuf.Arguments) {
	p := &g.players[slot]
	switch strings.ToLower(args.Argv(0).String()) {
	case "say":
		g.say(p, args.ArgumentString())
	case "say_team":
		g.say(p, args.ArgumentString())
	case "kill":
		if !p.inGame || p.spectator {
			return
		}
		p.frags--
		g.api.BroadcastPrintf(protocol.PrintMedium, "%s suicides.\n", p.name)
		g.putInServer(slot)
	case "players":
		var b strings.Builder
		n := 0
		for i := range g.players {
			o := &g.players[i]
			if !o.inGame {
				continue
			}
			fmt.Fprintf(&b, "%3d %s\n", o.frags, o.name)
			n++
		}
		fmt.Fprintf(&b, "\n%d players\n", n)
		g.api.ClientPrintf(slot, protocol.PrintHigh, "%s", b.String())
	default:
		// anything else is chat
		g.say(p, args.Full())
	}
}

func (g *Game) say(p *player, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > 150 {
		text = text[:150]
	}
	g.api.BroadcastPrintf(protocol.PrintChat, "%s: %s\n", p.name, text)
}

func (g *Game) ClientDisconnect(slot int) {
	p := &g.players[slot]
	if p.inGame {
		g.api.BroadcastPrintf(protocol.PrintHigh, "%s disconnected\n", p.name)
	}
	if slot+1 < len(g.ents) {
		g.ents[slot+1] = nil
	}
	g.players[slot] = player{}
	g.api.ConfigString(protocol.CsPlayerSkins+slot, "")
}
