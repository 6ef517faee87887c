// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"github.com/pkg/errors"

	"goquake2/math/vec"
	"goquake2/protocol"
	"goquake2/qmsg"
)

// player_state_t delta bits
const (
	PsMType        = 1 << 0
	PsMOrigin      = 1 << 1
	PsMVelocity    = 1 << 2
	PsMTime        = 1 << 3
	PsMFlags       = 1 << 4
	PsMGravity     = 1 << 5
	PsMDeltaAngles = 1 << 6
	PsViewOffset   = 1 << 7
	PsViewAngles   = 1 << 8
	PsKickAngles   = 1 << 9
	PsFov          = 1 << 11
	PsWeaponIndex  = 1 << 12
	PsWeaponFrame  = 1 << 13
	PsRdFlags      = 1 << 14
)

type PmType byte

const (
	PmNormal    PmType = iota // can accelerate and turn
	PmSpectator               // no gravity, no clipping
	PmDead                    // no acceleration or turning
	PmGib                     // different bounding box
	PmFreeze
)

// pmove flags
const (
	PmfDucked        = 1
	PmfJumpHeld      = 2
	PmfOnGround      = 4
	PmfTimeWaterJump = 8  // pm_time is waterjump
	PmfTimeLand      = 16 // pm_time is time before rejump
	PmfTimeTeleport  = 32 // pm_time is non-moving time
	PmfNoPrediction  = 64 // temporarily disables prediction
)

// PmoveState is everything the shared movement code needs to reproduce a
// move on the client. Origin and velocity are in 1/8 units.
type PmoveState struct {
	Type        PmType
	Origin      [3]int16
	Velocity    [3]int16
	Flags       byte
	Time        byte // each unit = 8 ms
	Gravity     int16
	DeltaAngles [3]int16 // added to command angles
}

// PlayerState is the part of a client the server sends every frame.
type PlayerState struct {
	Pmove      PmoveState
	ViewAngles vec.Vec3
	ViewOffset vec.Vec3
	KickAngles vec.Vec3
	GunIndex   int
	GunFrame   int
	Fov        float32
	RdFlags    int
	Stats      [protocol.MaxStats]int16
}

func playerBits(from, to *PlayerState) int {
	bits := 0
	pf, pt := &from.Pmove, &to.Pmove
	if pt.Type != pf.Type {
		bits |= PsMType
	}
	if pt.Origin != pf.Origin {
		bits |= PsMOrigin
	}
	if pt.Velocity != pf.Velocity {
		bits |= PsMVelocity
	}
	if pt.Time != pf.Time {
		bits |= PsMTime
	}
	if pt.Flags != pf.Flags {
		bits |= PsMFlags
	}
	if pt.Gravity != pf.Gravity {
		bits |= PsMGravity
	}
	if pt.DeltaAngles != pf.DeltaAngles {
		bits |= PsMDeltaAngles
	}
	if to.ViewOffset != from.ViewOffset {
		bits |= PsViewOffset
	}
	if to.ViewAngles != from.ViewAngles {
		bits |= PsViewAngles
	}
	if to.KickAngles != from.KickAngles {
		bits |= PsKickAngles
	}
	if to.Fov != from.Fov {
		bits |= PsFov
	}
	if to.RdFlags != from.RdFlags {
		bits |= PsRdFlags
	}
	if to.GunIndex != from.GunIndex {
		bits |= PsWeaponIndex
	}
	if to.GunFrame != from.GunFrame {
		bits |= PsWeaponFrame
	}
	return bits
}

func writeChars(w *qmsg.Writer, v vec.Vec3) {
	w.WriteChar(int(v.X * 4))
	w.WriteChar(int(v.Y * 4))
	w.WriteChar(int(v.Z * 4))
}

// WritePlayerState writes svc_playerinfo with the fields of to that differ
// from from. The stats are always delta compressed against from as well.
func WritePlayerState(w *qmsg.Writer, from, to *PlayerState) {
	bits := playerBits(from, to)
	w.WriteByte(PlayerInfo)
	w.WriteShort(bits)

	if bits&PsMType != 0 {
		w.WriteByte(int(to.Pmove.Type))
	}
	if bits&PsMOrigin != 0 {
		for _, o := range to.Pmove.Origin {
			w.WriteShort(int(o))
		}
	}
	if bits&PsMVelocity != 0 {
		for _, v := range to.Pmove.Velocity {
			w.WriteShort(int(v))
		}
	}
	if bits&PsMTime != 0 {
		w.WriteByte(int(to.Pmove.Time))
	}
	if bits&PsMFlags != 0 {
		w.WriteByte(int(to.Pmove.Flags))
	}
	if bits&PsMGravity != 0 {
		w.WriteShort(int(to.Pmove.Gravity))
	}
	if bits&PsMDeltaAngles != 0 {
		for _, a := range to.Pmove.DeltaAngles {
			w.WriteShort(int(a))
		}
	}
	if bits&PsViewOffset != 0 {
		writeChars(w, to.ViewOffset)
	}
	if bits&PsViewAngles != 0 {
		w.WriteAngle16(to.ViewAngles.X)
		w.WriteAngle16(to.ViewAngles.Y)
		w.WriteAngle16(to.ViewAngles.Z)
	}
	if bits&PsKickAngles != 0 {
		writeChars(w, to.KickAngles)
	}
	if bits&PsWeaponIndex != 0 {
		w.WriteByte(to.GunIndex)
	}
	if bits&PsWeaponFrame != 0 {
		w.WriteByte(to.GunFrame)
	}
	if bits&PsFov != 0 {
		w.WriteByte(int(to.Fov))
	}
	if bits&PsRdFlags != 0 {
		w.WriteByte(to.RdFlags)
	}

	statbits := 0
	for i := range to.Stats {
		if to.Stats[i] != from.Stats[i] {
			statbits |= 1 << i
		}
	}
	w.WriteLong(statbits)
	for i := range to.Stats {
		if statbits&(1<<i) != 0 {
			w.WriteShort(int(to.Stats[i]))
		}
	}
}

// ReadPlayerState parses svc_playerinfo, its opcode already consumed, on
// top of a copy of from.
func ReadPlayerState(r *qmsg.Reader, from *PlayerState) (PlayerState, error) {
	to := *from
	var err error
	byteTo := func(dst *byte) {
		if err == nil {
			*dst, err = r.ReadByte()
		}
	}
	intByteTo := func(dst *int) {
		var b byte
		byteTo(&b)
		*dst = int(b)
	}
	shortTo := func(dst *int16) {
		if err == nil {
			*dst, err = r.ReadShort()
		}
	}
	charsTo := func(dst *vec.Vec3) {
		var c [3]int8
		for i := range c {
			if err == nil {
				c[i], err = r.ReadChar()
			}
		}
		*dst = vec.Vec3{X: float32(c[0]) * 0.25, Y: float32(c[1]) * 0.25, Z: float32(c[2]) * 0.25}
	}
	angle16To := func(dst *float32) {
		if err == nil {
			*dst, err = r.ReadAngle16()
		}
	}

	b16, err := r.ReadShort()
	if err != nil {
		return to, errors.Wrap(err, "playerinfo bits")
	}
	bits := int(uint16(b16))

	if bits&PsMType != 0 {
		var t byte
		byteTo(&t)
		to.Pmove.Type = PmType(t)
	}
	if bits&PsMOrigin != 0 {
		for i := range to.Pmove.Origin {
			shortTo(&to.Pmove.Origin[i])
		}
	}
	if bits&PsMVelocity != 0 {
		for i := range to.Pmove.Velocity {
			shortTo(&to.Pmove.Velocity[i])
		}
	}
	if bits&PsMTime != 0 {
		byteTo(&to.Pmove.Time)
	}
	if bits&PsMFlags != 0 {
		byteTo(&to.Pmove.Flags)
	}
	if bits&PsMGravity != 0 {
		shortTo(&to.Pmove.Gravity)
	}
	if bits&PsMDeltaAngles != 0 {
		for i := range to.Pmove.DeltaAngles {
			shortTo(&to.Pmove.DeltaAngles[i])
		}
	}
	if bits&PsViewOffset != 0 {
		charsTo(&to.ViewOffset)
	}
	if bits&PsViewAngles != 0 {
		angle16To(&to.ViewAngles.X)
		angle16To(&to.ViewAngles.Y)
		angle16To(&to.ViewAngles.Z)
	}
	if bits&PsKickAngles != 0 {
		charsTo(&to.KickAngles)
	}
	if bits&PsWeaponIndex != 0 {
		intByteTo(&to.GunIndex)
	}
	if bits&PsWeaponFrame != 0 {
		intByteTo(&to.GunFrame)
	}
	if bits&PsFov != 0 {
		var f byte
		byteTo(&f)
		to.Fov = float32(f)
	}
	if bits&PsRdFlags != 0 {
		intByteTo(&to.RdFlags)
	}
	if err != nil {
		return to, errors.Wrap(err, "playerinfo")
	}

	statbits, err := r.ReadLong()
	if err != nil {
		return to, errors.Wrap(err, "playerinfo stats")
	}
	for i := range to.Stats {
		if statbits&(1<<i) != 0 {
			if to.Stats[i], err = r.ReadShort(); err != nil {
				return to, errors.Wrap(err, "playerinfo stats")
			}
		}
	}
	return to, nil
}
