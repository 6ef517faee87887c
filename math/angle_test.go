// SPDX-License-Identifier: GPL-2.0-or-later

package math

import (
	"testing"
)

func TestAngleMod(t *testing.T) {
	for _, tc := range []struct {
		in, want float32
	}{
		{180, 180},
		{66.5, 66.5},
		{180 + 360, 180},
		{180 - 360, 180},
		{0, 0},
		{360, 0},
	} {
		if got := AngleMod(tc.in); got != tc.want {
			t.Errorf("AngleMod(%v) = %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestLerpAngle(t *testing.T) {
	for _, tc := range []struct {
		from, to, frac, want float32
	}{
		{0, 90, 0.5, 45},
		{350, 10, 0.5, 360},
		{10, 350, 0.5, 0},
		{90, 90, 0.3, 90},
	} {
		if got := LerpAngle(tc.from, tc.to, tc.frac); got != tc.want {
			t.Errorf("LerpAngle(%v, %v, %v) = %v want %v", tc.from, tc.to, tc.frac, got, tc.want)
		}
	}
}

func TestShortAngle(t *testing.T) {
	for _, a := range []float32{0, 45, 90, -90} {
		got := ShortToAngle(AngleToShort(a))
		if d := got - a; d > 0.01 || d < -0.01 {
			t.Errorf("ShortToAngle(AngleToShort(%v)) = %v", a, got)
		}
	}
}
