// SPDX-License-Identifier: GPL-2.0-or-later

package math

import "github.com/chewxy/math32"

// AngleMod changes an angle to be within 0-360 degrees
func AngleMod(a float32) float32 {
	return a - math32.Floor(a/360)*360
}

// LerpAngle interpolates from a2 to a1 on the shorter arc.
func LerpAngle(a2, a1, frac float32) float32 {
	if a1-a2 > 180 {
		a1 -= 360
	}
	if a1-a2 < -180 {
		a1 += 360
	}
	return a2 + frac*(a1-a2)
}

// AngleToShort quantizes an angle to the 16 bit wire format.
func AngleToShort(a float32) int16 {
	return int16(int32(a*65536/360) & 65535)
}

// ShortToAngle converts a 16 bit wire angle back to degrees.
func ShortToAngle(s int16) float32 {
	return float32(s) * (360.0 / 65536)
}
