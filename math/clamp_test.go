// SPDX-License-Identifier: GPL-2.0-or-later

package math

import (
	"testing"
)

func TestClamp(t *testing.T) {
	for _, tc := range []struct {
		min, val, max, want int
	}{
		{1, 0, 10, 1},
		{1, 100, 10, 10},
		{1, 5, 10, 5},
	} {
		if got := Clamp(tc.min, tc.val, tc.max); got != tc.want {
			t.Errorf("Clamp(%v,%v,%v) = %v, want %v", tc.min, tc.val, tc.max, got, tc.want)
		}
	}
	if got := Clamp[float32](-100, -250, 0); got != -100 {
		t.Errorf("Clamp(-100,-250,0) = %v", got)
	}
}
