// SPDX-License-Identifier: GPL-2.0-or-later

// package input handles button event tracking and turns the buttons into
// movement commands
package input

import (
	"github.com/pkg/errors"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/cvar"
	qmath "goquake2/math"
	"goquake2/math/vec"
	clc "goquake2/protocol/client"
)

type button struct {
	// key nums holding it down, can handle 2 keys with the same action
	holdingDown [2]int
	down        bool
	impulseDown bool
	impulseUp   bool
}

func (b button) Down() bool {
	return b.down
}

func (b *button) WentDown() bool {
	// return down + impulse down
	// reset impulse down
	r := b.down || b.impulseDown
	b.impulseDown = false
	return r
}

// Returns 0.25 if a button was pressed and released during the frame,
// 0.5 if it was pressed and held
// 0 if held then released, and
// 1 if held for the entire time
func (b button) GetImpulse() float32 {
	if b.impulseDown && b.impulseUp {
		if b.down {
			return 0.75
		}
		return 0.25
	}
	if !b.impulseDown && !b.impulseUp {
		if b.down {
			return 1
		}
		return 0
	}
	if b.impulseUp && !b.impulseDown {
		return 0
	}
	if b.impulseDown && !b.impulseUp {
		if b.down {
			return 0.5
		}
		return 0
	}
	return 0 // unreachable
}

func (b *button) ResetImpulse() {
	b.impulseDown = false
	b.impulseUp = false
}

func (b *button) ConsumeImpulse() float32 {
	i := b.GetImpulse()
	b.ResetImpulse()
	return i
}

func (b *button) upKey(k int) {
	if b.holdingDown[0] == k {
		b.holdingDown[0] = 0
	} else if b.holdingDown[1] == k {
		b.holdingDown[1] = 0
	} else {
		return
	}
	if b.holdingDown[0] != 0 || b.holdingDown[1] != 0 {
		// some other key is still holding it down
		return
	}
	if !b.down {
		return
	}
	b.down = false
	b.impulseUp = true
}

func (b *button) upCmd() cmd.QFunc {
	return func(a cbuf.Arguments) error {
		k := a.Args()[1:]
		if len(k) == 0 {
			// typed manually
			b.holdingDown[0] = 0
			b.holdingDown[1] = 0
			b.down = false
			b.impulseDown = false
			b.impulseUp = true
		} else {
			b.upKey(k[0].Int())
		}
		return nil
	}
}

func (b *button) downKey(k int) {
	if b.holdingDown[0] == 0 {
		b.holdingDown[0] = k
	} else if b.holdingDown[1] == 0 {
		b.holdingDown[1] = k
	} else {
		// three keys down for a button
		return
	}
	if b.down {
		return
	}
	b.down = true
	b.impulseDown = true
}

func (b *button) downCmd() cmd.QFunc {
	return func(a cbuf.Arguments) error {
		k := a.Args()[1:]
		if len(k) == 0 {
			// typed manually
			b.downKey(-1)
		} else {
			b.downKey(k[0].Int())
		}
		return nil
	}
}

// Buttons is the keyboard state of one client.
type Buttons struct {
	KLook     button
	Left      button
	Right     button
	Forward   button
	Back      button
	LookUp    button
	LookDown  button
	MoveLeft  button
	MoveRight button
	Strafe    button
	Speed     button
	Use       button
	Attack    button
	Up        button
	Down      button

	impulse int

	upSpeed       *cvar.Cvar
	forwardSpeed  *cvar.Cvar
	sideSpeed     *cvar.Cvar
	yawSpeed      *cvar.Cvar
	pitchSpeed    *cvar.Cvar
	angleSpeedKey *cvar.Cvar
	run           *cvar.Cvar
	lightLevel    *cvar.Cvar
}

func New(cvars *cvar.Registry) *Buttons {
	return &Buttons{
		upSpeed:       cvars.MustGet("cl_upspeed", "200", cvar.NONE),
		forwardSpeed:  cvars.MustGet("cl_forwardspeed", "200", cvar.NONE),
		sideSpeed:     cvars.MustGet("cl_sidespeed", "200", cvar.NONE),
		yawSpeed:      cvars.MustGet("cl_yawspeed", "140", cvar.NONE),
		pitchSpeed:    cvars.MustGet("cl_pitchspeed", "150", cvar.NONE),
		angleSpeedKey: cvars.MustGet("cl_anglespeedkey", "1.5", cvar.NONE),
		run:           cvars.MustGet("cl_run", "0", cvar.ARCHIVE),
		lightLevel:    cvars.MustGet("r_lightlevel", "0", cvar.NONE),
	}
}

// Register adds the button commands. Key events issue these commands and
// pass the key number as argument, if no number expect console/cfg input.
func (b *Buttons) Register(c *cmd.Commands) error {
	for _, e := range []struct {
		name string
		b    *button
	}{
		{"moveup", &b.Up},
		{"movedown", &b.Down},
		{"left", &b.Left},
		{"right", &b.Right},
		{"forward", &b.Forward},
		{"back", &b.Back},
		{"lookup", &b.LookUp},
		{"lookdown", &b.LookDown},
		{"strafe", &b.Strafe},
		{"moveleft", &b.MoveLeft},
		{"moveright", &b.MoveRight},
		{"speed", &b.Speed},
		{"attack", &b.Attack},
		{"use", &b.Use},
		{"klook", &b.KLook},
	} {
		if err := c.Add("+"+e.name, e.b.downCmd()); err != nil {
			return errors.Wrap(err, "input commands")
		}
		if err := c.Add("-"+e.name, e.b.upCmd()); err != nil {
			return errors.Wrap(err, "input commands")
		}
	}
	return errors.Wrap(c.Add("impulse", b.impulseCmd), "input commands")
}

func (b *Buttons) impulseCmd(a cbuf.Arguments) error {
	b.impulse = a.Argv(1).Int()
	return nil
}

// adjustAngles moves the local angle positions.
func (b *Buttons) adjustAngles(view *vec.Vec3, frameMsec int) {
	speed := float32(frameMsec) * 0.001
	if b.Speed.Down() {
		speed *= b.angleSpeedKey.Value()
	}

	if !b.Strafe.Down() {
		view.Y -= speed * b.yawSpeed.Value() * b.Right.GetImpulse()
		view.Y += speed * b.yawSpeed.Value() * b.Left.GetImpulse()
		view.Y = qmath.AngleMod(view.Y)
	}
	if b.KLook.Down() {
		view.X -= speed * b.pitchSpeed.Value() * b.Forward.GetImpulse()
		view.X += speed * b.pitchSpeed.Value() * b.Back.GetImpulse()
	}

	view.X -= speed * b.pitchSpeed.Value() * b.LookUp.GetImpulse()
	view.X += speed * b.pitchSpeed.Value() * b.LookDown.GetImpulse()
}

// Move turns view and fills the movement of cmd from the buttons. It
// implements client.Input.
func (b *Buttons) Move(view *vec.Vec3, cmd *clc.UserCmd, frameMsec int) {
	b.adjustAngles(view, frameMsec)

	var side, up, forward float32
	if b.Strafe.Down() {
		side += b.sideSpeed.Value() * b.Right.GetImpulse()
		side -= b.sideSpeed.Value() * b.Left.GetImpulse()
	}
	side += b.sideSpeed.Value() * b.MoveRight.GetImpulse()
	side -= b.sideSpeed.Value() * b.MoveLeft.GetImpulse()

	up += b.upSpeed.Value() * b.Up.GetImpulse()
	up -= b.upSpeed.Value() * b.Down.GetImpulse()

	if !b.KLook.Down() {
		forward += b.forwardSpeed.Value() * b.Forward.GetImpulse()
		forward -= b.forwardSpeed.Value() * b.Back.GetImpulse()
	}

	// adjust for speed key / running
	if b.Speed.Down() != b.run.Bool() {
		forward *= 2
		side *= 2
		up *= 2
	}
	cmd.Forward = int16(forward)
	cmd.Side = int16(side)
	cmd.Up = int16(up)

	// figure button bits
	if b.Attack.WentDown() {
		cmd.Buttons |= clc.ButtonAttack
	}
	if b.Use.WentDown() {
		cmd.Buttons |= clc.ButtonUse
	}
	cmd.Impulse = byte(b.impulse)
	b.impulse = 0
	cmd.LightLevel = byte(b.lightLevel.Int())

	for _, bt := range []*button{
		&b.Left, &b.Right, &b.Forward, &b.Back, &b.LookUp, &b.LookDown,
		&b.MoveLeft, &b.MoveRight, &b.Up, &b.Down,
	} {
		bt.ResetImpulse()
	}
}
