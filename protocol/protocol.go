// SPDX-License-Identifier: GPL-2.0-or-later

package protocol

const (
	Version = 34

	PortServer = 27910
	PortClient = 27901

	// OutOfBand is the sequence value that marks a connectionless packet.
	OutOfBand = -1
)

const (
	// MaxMsgLen is the largest datagram either side sends.
	MaxMsgLen = 1400

	MaxClients       = 256
	MaxEdicts        = 1024
	MaxModels        = 256
	MaxSounds        = 256
	MaxImages        = 256
	MaxLightStyles   = 256
	MaxItems         = 256
	MaxGeneral       = MaxClients * 2
	MaxStringCmds    = 8
	MaxChallenges    = 1024
	MaxQPath         = 64
	MaxStringChars   = 1024
	MaxPacketEntites = 128
	MaxStats         = 32

	// UpdateBackup is the depth of the per client frame history, it must be
	// a power of two.
	UpdateBackup = 16
	UpdateMask   = UpdateBackup - 1

	// CmdBackup is the depth of the client command history, it must be a
	// power of two.
	CmdBackup = 64
	CmdMask   = CmdBackup - 1

	LatencyCounts = 16
)

// configstring indices
const (
	CsName        = 0
	CsCdTrack     = 1
	CsSky         = 2
	CsSkyAxis     = 3
	CsSkyRotate   = 4
	CsStatusBar   = 5
	CsAirAccel    = 29
	CsMaxClients  = 30
	CsMapChecksum = 31

	CsModels      = 32
	CsSounds      = CsModels + MaxModels
	CsImages      = CsSounds + MaxSounds
	CsLights      = CsImages + MaxImages
	CsItems       = CsLights + MaxLightStyles
	CsPlayerSkins = CsItems + MaxItems
	CsGeneral     = CsPlayerSkins + MaxClients

	MaxConfigStrings = CsGeneral + MaxGeneral
)

// print levels
const (
	PrintLow    = 0 // pickup messages
	PrintMedium = 1 // death messages
	PrintHigh   = 2 // critical messages
	PrintChat   = 3 // chat messages
)

// entity render flags
const (
	RfMinLight    = 1
	RfViewerModel = 2
	RfWeaponModel = 4
	RfFullBright  = 8
	RfDepthHack   = 16
	RfTranslucent = 32
	RfFrameLerp   = 64
	RfBeam        = 128
)

// entity effects
const (
	EfRotate = 0x00000001 // rotate (bonus items)
	EfGib    = 0x00000002 // leave a trail
)

// entity events, for effects that take place relative to an existing entity
const (
	EvNone           = 0
	EvItemRespawn    = 1
	EvFootstep       = 2
	EvFallShort      = 3
	EvMaleFall       = 4
	EvFemaleFall     = 5
	EvFallFar        = 6
	EvPlayerTeleport = 7
	EvOtherTeleport  = 8
)

// player_state_t stats
const (
	StatHealthIcon = 0
	StatHealth     = 1
	StatFrags      = 14
)
