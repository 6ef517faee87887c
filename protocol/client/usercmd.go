// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"github.com/pkg/errors"

	"goquake2/qmsg"
)

// usercmd delta bits
const (
	cmAngle1  = 1 << 0
	cmAngle2  = 1 << 1
	cmAngle3  = 1 << 2
	cmForward = 1 << 3
	cmSide    = 1 << 4
	cmUp      = 1 << 5
	cmButtons = 1 << 6
	cmImpulse = 1 << 7
)

const (
	ButtonAttack = 1
	ButtonUse    = 2
	ButtonAny    = 128 // any key whatsoever
)

// UserCmd is one quantized input sample. Angles use the 16 bit wire
// format.
type UserCmd struct {
	Msec       byte
	Buttons    byte
	Angles     [3]int16
	Forward    int16
	Side       int16
	Up         int16
	Impulse    byte // remove?
	LightLevel byte // light level the player is standing on
}

// WriteDeltaUsercmd writes the fields of cmd that differ from from.
func WriteDeltaUsercmd(w *qmsg.Writer, from, cmd *UserCmd) {
	bits := 0
	if cmd.Angles[0] != from.Angles[0] {
		bits |= cmAngle1
	}
	if cmd.Angles[1] != from.Angles[1] {
		bits |= cmAngle2
	}
	if cmd.Angles[2] != from.Angles[2] {
		bits |= cmAngle3
	}
	if cmd.Forward != from.Forward {
		bits |= cmForward
	}
	if cmd.Side != from.Side {
		bits |= cmSide
	}
	if cmd.Up != from.Up {
		bits |= cmUp
	}
	if cmd.Buttons != from.Buttons {
		bits |= cmButtons
	}
	if cmd.Impulse != from.Impulse {
		bits |= cmImpulse
	}

	w.WriteByte(bits)
	for i, b := range []int{cmAngle1, cmAngle2, cmAngle3} {
		if bits&b != 0 {
			w.WriteShort(int(cmd.Angles[i]))
		}
	}
	if bits&cmForward != 0 {
		w.WriteShort(int(cmd.Forward))
	}
	if bits&cmSide != 0 {
		w.WriteShort(int(cmd.Side))
	}
	if bits&cmUp != 0 {
		w.WriteShort(int(cmd.Up))
	}
	if bits&cmButtons != 0 {
		w.WriteByte(int(cmd.Buttons))
	}
	if bits&cmImpulse != 0 {
		w.WriteByte(int(cmd.Impulse))
	}
	w.WriteByte(int(cmd.Msec))
	w.WriteByte(int(cmd.LightLevel))
}

// ReadDeltaUsercmd reads a command written by WriteDeltaUsercmd against the
// same from.
func ReadDeltaUsercmd(r *qmsg.Reader, from *UserCmd) (UserCmd, error) {
	cmd := *from
	bits, err := r.ReadByte()
	if err != nil {
		return cmd, errors.Wrap(err, "usercmd bits")
	}
	readShort := func(dst *int16) {
		if err != nil {
			return
		}
		*dst, err = r.ReadShort()
	}
	readByte := func(dst *byte) {
		if err != nil {
			return
		}
		*dst, err = r.ReadByte()
	}
	for i, b := range []byte{cmAngle1, cmAngle2, cmAngle3} {
		if bits&b != 0 {
			readShort(&cmd.Angles[i])
		}
	}
	if bits&cmForward != 0 {
		readShort(&cmd.Forward)
	}
	if bits&cmSide != 0 {
		readShort(&cmd.Side)
	}
	if bits&cmUp != 0 {
		readShort(&cmd.Up)
	}
	if bits&cmButtons != 0 {
		readByte(&cmd.Buttons)
	}
	if bits&cmImpulse != 0 {
		readByte(&cmd.Impulse)
	}
	readByte(&cmd.Msec)
	readByte(&cmd.LightLevel)
	if err != nil {
		return cmd, errors.Wrap(err, "usercmd")
	}
	return cmd, nil
}
