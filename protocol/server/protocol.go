// SPDX-License-Identifier: GPL-2.0-or-later

package server

const (
	//
	// server to client
	//
	Bad         = 0
	MuzzleFlash = 1
	// [short] entity [byte] flash
	MuzzleFlash2 = 2
	TempEntity   = 3
	Layout       = 4
	Inventory    = 5
	Nop          = 6
	Disconnect   = 7
	Reconnect    = 8
	// <see code>
	Sound = 9
	// [byte] id [string] null terminated string
	Print = 10
	// [string] stuffed into client's console buffer
	// the string should be \n terminated
	StuffText = 11
	// [long] protocol ...
	ServerData = 12
	// [short] [string]
	ConfigString  = 13
	SpawnBaseline = 14
	// [string] to put in center of the screen
	CenterPrint = 15
	Download    = 16
	// variable
	PlayerInfo = 17
	// [...]
	PacketEntities      = 18
	DeltaPacketEntities = 19
	Frame               = 20
)
