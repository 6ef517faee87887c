// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"goquake2/cbuf"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
)

// Game is the game logic the server runs. Client slots are 0 based, the
// entity of slot n is n+1.
type Game interface {
	Init(api API)
	Shutdown()
	// SpawnEntities populates a new level, spawnPoint names the start spot
	// or is empty.
	SpawnEntities(mapName, spawnPoint string)

	// ClientConnect may reject a connection by returning false, a "rejmsg"
	// key in the returned userinfo is sent as the reason.
	ClientConnect(slot int, userinfo string) (string, bool)
	ClientUserinfoChanged(slot int, userinfo string)
	ClientBegin(slot int)
	ClientCommand(slot int, args cbuf.Arguments)
	ClientThink(slot int, cmd *clc.UserCmd)
	ClientDisconnect(slot int)
	RunFrame()

	// Entities returns the entity table indexed by entity number. Unused
	// entries are nil.
	Entities() []*svc.EntityState
	// PlayerState returns the state sent to the client in slot, nil if the
	// slot has no player.
	PlayerState(slot int) *svc.PlayerState
	// Frags is shown by status replies.
	Frags(slot int) int
}

// API is what the server offers to the game.
type API interface {
	MaxClients() int
	// Time is the server time in msec.
	Time() int
	ConfigString(index int, value string)
	ModelIndex(name string) int
	SoundIndex(name string) int
	ImageIndex(name string) int
	ClientPrintf(slot, level int, format string, v ...interface{})
	BroadcastPrintf(level int, format string, v ...interface{})
	CenterPrintf(slot int, format string, v ...interface{})
	// Multicast appends data to every client in the game, reliable data
	// also reaches clients that are still loading.
	Multicast(data []byte, reliable bool)
}
