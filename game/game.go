// SPDX-License-Identifier: GPL-2.0-or-later

// Package game is a small deathmatch sandbox the server can run: an open
// room with a lift, a rotating item and a laser. Players move with pmove.
package game

import (
	"strconv"

	"github.com/chewxy/math32"
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
	"goquake2/cvar"
	"goquake2/math/vec"
	"goquake2/pmove"
	"goquake2/protocol"
	svc "goquake2/protocol/server"
	"goquake2/server"
)

// the room everything happens in
var world = pmove.Room{
	Mins: vec.Vec3{X: -1024, Y: -1024, Z: 0},
	Maxs: vec.Vec3{X: 1024, Y: 1024, Z: 512},
}

// World returns the collision model of the room. Clients predict against
// it.
func World() pmove.Tracer { return world }

type spawnSpot struct {
	origin vec.Vec3
	yaw    float32
}

var spawnSpots = map[string]spawnSpot{
	"":      {origin: vec.Vec3{Z: 24}},
	"north": {origin: vec.Vec3{Y: 768, Z: 24}, yaw: 270},
	"south": {origin: vec.Vec3{Y: -768, Z: 24}, yaw: 90},
	"east":  {origin: vec.Vec3{X: 768, Z: 24}, yaw: 180},
	"west":  {origin: vec.Vec3{X: -768, Z: 24}, yaw: 0},
}

const (
	liftBase   = 64
	liftHeight = 96
	// msec for one full lift cycle
	liftPeriod = 4000
)

// Game implements server.Game.
type Game struct {
	api server.API

	gravity  *cvar.Cvar
	password *cvar.Cvar
	airAccel *cvar.Cvar

	ents    []*svc.EntityState
	players []player
	spot    spawnSpot

	lift, item, laser *svc.EntityState
}

func New(cvars *cvar.Registry) *Game {
	return &Game{
		gravity:  cvars.MustGet("sv_gravity", "800", cvar.NONE),
		password: cvars.MustGet("password", "", cvar.NONE),
		airAccel: cvars.MustGet("sv_airaccelerate", "0", cvar.NONE),
	}
}

func (g *Game) Init(api server.API) {
	g.api = api
	g.players = make([]player, api.MaxClients())
	log.Debug().Str("ctx", "game").Int("maxclients", api.MaxClients()).Msg("game initialized")
}

func (g *Game) Shutdown() {
	g.ents = nil
	g.players = nil
}

// SpawnEntities fills the entity table. Player entities stay empty until
// their client begins.
func (g *Game) SpawnEntities(mapName, spawnPoint string) {
	maxClients := g.api.MaxClients()
	for i := range g.players {
		g.players[i] = player{}
	}
	spot, ok := spawnSpots[spawnPoint]
	if !ok {
		conlog.Printf("Couldn't find spawn point %s\n", spawnPoint)
		spot = spawnSpots[""]
	}
	g.spot = spot

	g.ents = make([]*svc.EntityState, maxClients+4)
	g.ents[0] = &svc.EntityState{}
	n := maxClients + 1
	g.lift = &svc.EntityState{
		Number: n,
		Origin: vec.Vec3{X: 256, Y: 256, Z: liftBase},
		Model:  [4]int{g.api.ModelIndex("models/objects/lift/tris.md2")},
		Solid:  31 | 31<<5 | 8<<10,
	}
	g.item = &svc.EntityState{
		Number:  n + 1,
		Origin:  vec.Vec3{X: -256, Y: 256, Z: 16},
		Model:   [4]int{g.api.ModelIndex("models/items/armor/body/tris.md2")},
		Effects: protocol.EfRotate,
	}
	// beams use OldOrigin as the far end
	g.laser = &svc.EntityState{
		Number:    n + 2,
		Origin:    vec.Vec3{X: -512, Y: -512, Z: 32},
		OldOrigin: vec.Vec3{X: 512, Y: -512, Z: 32},
		Model:     [4]int{1},
		Frame:     4,
		Skin:      0xf2f2f0f0,
		RenderFx:  protocol.RfBeam | protocol.RfTranslucent,
	}
	g.ents[g.lift.Number] = g.lift
	g.ents[g.item.Number] = g.item
	g.ents[g.laser.Number] = g.laser

	g.api.ModelIndex("players/male/tris.md2")
	g.api.SoundIndex("world/lift.wav")
	g.api.ImageIndex("i_health")
	g.api.ConfigString(protocol.CsSky, "unit1_")
	g.api.ConfigString(protocol.CsMaxClients, strconv.Itoa(maxClients))
	log.Debug().Str("ctx", "game").Str("map", mapName).Str("spawnpoint", spawnPoint).Msg("entities spawned")
}

// RunFrame advances the world by one server frame.
func (g *Game) RunFrame() {
	for _, e := range g.ents {
		if e == nil {
			continue
		}
		e.Event = 0
		if e.RenderFx&protocol.RfBeam == 0 {
			e.OldOrigin = e.Origin
		}
	}
	g.lift.Origin.Z = liftZ(g.api.Time())

	for i := range g.players {
		p := &g.players[i]
		if !p.inGame {
			continue
		}
		p.ps.Stats[protocol.StatHealthIcon] = int16(g.api.ImageIndex("i_health"))
		p.ps.Stats[protocol.StatHealth] = 100
		p.ps.Stats[protocol.StatFrags] = int16(p.frags)
		p.ps.Pmove.Gravity = int16(g.gravity.Int())
	}
}

func (g *Game) Entities() []*svc.EntityState {
	return g.ents
}

func (g *Game) PlayerState(slot int) *svc.PlayerState {
	if slot < 0 || slot >= len(g.players) {
		return nil
	}
	return &g.players[slot].ps
}

func (g *Game) Frags(slot int) int {
	if slot < 0 || slot >= len(g.players) {
		return 0
	}
	return g.players[slot].frags
}

// height of the lift at time t in msec
func liftZ(t int) float32 {
	f := float32(t%liftPeriod) / liftPeriod
	return liftBase + liftHeight*(0.5-0.5*math32.Cos(2*math32.Pi*f))
}
