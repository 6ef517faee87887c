// SPDX-License-Identifier: GPL-2.0-or-later

package pmove

import (
	"testing"

	"goquake2/math/vec"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
)

var testRoom = Room{
	Mins: vec.Vec3{X: -512, Y: -512, Z: 0},
	Maxs: vec.Vec3{X: 512, Y: 512, Z: 256},
}

// standing on the floor of testRoom
func standing(x, y int16) svc.PmoveState {
	return svc.PmoveState{
		Origin:  [3]int16{x, y, 24 * 8},
		Gravity: 800,
	}
}

func run(s svc.PmoveState, cmd clc.UserCmd) *Pmove {
	pm := &Pmove{State: s, Cmd: cmd, Trace: testRoom}
	Move(pm)
	return pm
}

func TestStandingStill(t *testing.T) {
	pm := run(standing(0, 0), clc.UserCmd{Msec: 100})
	if pm.State.Origin != [3]int16{0, 0, 192} {
		t.Errorf("Origin=%v, want [0 0 192]", pm.State.Origin)
	}
	if pm.State.Flags&svc.PmfOnGround == 0 {
		t.Errorf("not on ground")
	}
	if pm.GroundEntity != 0 {
		t.Errorf("GroundEntity=%d, want 0", pm.GroundEntity)
	}
	if pm.ViewHeight != 22 {
		t.Errorf("ViewHeight=%v, want 22", pm.ViewHeight)
	}
}

func TestFalling(t *testing.T) {
	s := svc.PmoveState{Origin: [3]int16{0, 0, 100 * 8}, Gravity: 800}
	pm := run(s, clc.UserCmd{Msec: 100})
	if got, want := pm.State.Velocity[2], int16(-80*8); got != want {
		t.Errorf("Velocity.Z=%d, want %d", got, want)
	}
	if got, want := pm.State.Origin[2], int16(92*8); got != want {
		t.Errorf("Origin.Z=%d, want %d", got, want)
	}
	if pm.GroundEntity != -1 {
		t.Errorf("GroundEntity=%d, want -1", pm.GroundEntity)
	}
}

func TestLandsOnFloor(t *testing.T) {
	s := svc.PmoveState{Origin: [3]int16{0, 0, 30 * 8}, Velocity: [3]int16{0, 0, -300 * 8}, Gravity: 800}
	pm := run(s, clc.UserCmd{Msec: 100})
	if got := pm.State.Origin[2]; got != 24*8 {
		t.Errorf("Origin.Z=%d, want %d", got, 24*8)
	}
	if pm.State.Velocity[2] != 0 {
		t.Errorf("Velocity.Z=%d, want 0", pm.State.Velocity[2])
	}
	if pm.State.Flags&svc.PmfOnGround == 0 {
		t.Errorf("not on ground after landing")
	}
}

func TestHardLandingBlocksJump(t *testing.T) {
	// 1/8 unit above the floor and falling fast
	s := svc.PmoveState{Origin: [3]int16{0, 0, 24*8 + 1}, Velocity: [3]int16{0, 0, -300 * 8}, Gravity: 800}
	pm := run(s, clc.UserCmd{Msec: 16})
	if pm.State.Flags&svc.PmfTimeLand == 0 {
		t.Fatalf("Flags=%b, want PmfTimeLand", pm.State.Flags)
	}
	// 18 units of 8 msec minus the 16 msec of this move
	if pm.State.Time != 16 {
		t.Errorf("Time=%d, want 16", pm.State.Time)
	}
	jump := run(pm.State, clc.UserCmd{Msec: 16, Up: 200})
	if jump.State.Velocity[2] > 0 {
		t.Errorf("jumped while landing, Velocity.Z=%d", jump.State.Velocity[2])
	}
}

func TestWalkForward(t *testing.T) {
	pm := run(standing(0, 0), clc.UserCmd{Msec: 100, Forward: 200})
	// 200 units/s for 100 msec
	if got := pm.State.Origin[0]; got < 159 || got > 161 {
		t.Errorf("Origin.X=%d, want 160", got)
	}
	if pm.State.Origin[1] != 0 || pm.State.Origin[2] != 192 {
		t.Errorf("Origin=%v, want movement along x only", pm.State.Origin)
	}
	if got := pm.State.Velocity[0]; got < 1592 || got > 1608 {
		t.Errorf("Velocity.X=%d, want 1600", got)
	}
}

func TestTurnedMovesAlongYaw(t *testing.T) {
	// yaw 90 degrees
	cmd := clc.UserCmd{Msec: 100, Forward: 200, Angles: [3]int16{0, 16384, 0}}
	pm := run(standing(0, 0), cmd)
	if got := pm.State.Origin[1]; got < 159 || got > 161 {
		t.Errorf("Origin.Y=%d, want 160", got)
	}
	if got := pm.State.Origin[0]; got < -1 || got > 1 {
		t.Errorf("Origin.X=%d, want 0", got)
	}
	if pm.ViewAngles.Y != 90 {
		t.Errorf("ViewAngles.Y=%v, want 90", pm.ViewAngles.Y)
	}
}

func TestWallStopsMovement(t *testing.T) {
	s := standing(490*8, 0)
	s.Velocity[0] = 300 * 8
	pm := run(s, clc.UserCmd{Msec: 100, Forward: 300})
	// the box extends 16 units in front of the origin
	if got := pm.State.Origin[0]; got > 496*8 || got < 490*8 {
		t.Errorf("Origin.X=%d, want between %d and %d", got, 490*8, 496*8)
	}
	if pm.State.Velocity[0] != 0 {
		t.Errorf("Velocity.X=%d, want 0", pm.State.Velocity[0])
	}
}

func TestJump(t *testing.T) {
	s := standing(0, 0)
	s.Flags = svc.PmfOnGround
	pm := run(s, clc.UserCmd{Msec: 100, Up: 200})
	if got, want := pm.State.Velocity[2], int16(190*8); got != want {
		t.Errorf("Velocity.Z=%d, want %d", got, want)
	}
	if pm.State.Flags&svc.PmfJumpHeld == 0 {
		t.Errorf("jump not held")
	}
	if pm.State.Flags&svc.PmfOnGround != 0 {
		t.Errorf("still on ground")
	}

	// holding the button does not jump again
	again := run(pm.State, clc.UserCmd{Msec: 100, Up: 200})
	if again.State.Velocity[2] >= pm.State.Velocity[2] {
		t.Errorf("Velocity.Z=%d, want less than %d", again.State.Velocity[2], pm.State.Velocity[2])
	}
}

func TestDuck(t *testing.T) {
	s := standing(0, 0)
	s.Flags = svc.PmfOnGround
	pm := run(s, clc.UserCmd{Msec: 100, Up: -200})
	if pm.State.Flags&svc.PmfDucked == 0 {
		t.Fatalf("not ducked")
	}
	if pm.Maxs.Z != 4 || pm.ViewHeight != -2 {
		t.Errorf("Maxs.Z=%v ViewHeight=%v, want 4 and -2", pm.Maxs.Z, pm.ViewHeight)
	}
	up := run(pm.State, clc.UserCmd{Msec: 100})
	if up.State.Flags&svc.PmfDucked != 0 {
		t.Errorf("still ducked after releasing")
	}
}

func TestSpectatorFlies(t *testing.T) {
	s := svc.PmoveState{Type: svc.PmSpectator, Origin: [3]int16{0, 0, 100 * 8}, Gravity: 800}
	pm := run(s, clc.UserCmd{Msec: 100, Up: 200})
	if got, want := pm.State.Origin[2], int16(120*8); got < want-1 || got > want+1 {
		t.Errorf("Origin.Z=%d, want %d", got, want)
	}
}

func TestFreezeDoesNotMove(t *testing.T) {
	s := svc.PmoveState{Type: svc.PmFreeze, Origin: [3]int16{0, 0, 100 * 8}, Gravity: 800}
	pm := run(s, clc.UserCmd{Msec: 100, Forward: 400})
	if pm.State != s {
		t.Errorf("State=%+v, want %+v", pm.State, s)
	}
}

func TestPitchClamped(t *testing.T) {
	// 100 degrees down
	cmd := clc.UserCmd{Msec: 10, Angles: [3]int16{int16(100 * 65536 / 360), 0, 0}}
	pm := run(standing(0, 0), cmd)
	if pm.ViewAngles.X != 89 {
		t.Errorf("ViewAngles.X=%v, want 89", pm.ViewAngles.X)
	}
}

func TestMoveIsDeterministic(t *testing.T) {
	cmds := []clc.UserCmd{
		{Msec: 16, Forward: 200},
		{Msec: 16, Forward: 200, Up: 200},
		{Msec: 33, Forward: 200, Side: -100, Angles: [3]int16{0, 3000, 0}},
		{Msec: 50, Side: 200},
		{Msec: 100},
	}
	a, b := standing(0, 0), standing(0, 0)
	for _, c := range cmds {
		pa := run(a, c)
		pb := run(b, c)
		a, b = pa.State, pb.State
	}
	if a != b {
		t.Errorf("states differ: %+v and %+v", a, b)
	}
}
