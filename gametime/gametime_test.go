// SPDX-License-Identifier: GPL-2.0-or-later

package gametime

import (
	"testing"

	"goquake2/cvar"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		fixed string
		scale string
		real  int
		want  int
	}{
		{"0", "1", 16, 16},
		{"0", "0.5", 16, 8},
		{"0", "0.01", 16, 1},
		{"0", "0", 16, 16},
		{"100", "0.5", 16, 100},
	}
	for _, tt := range tests {
		cvars := cvar.New()
		f := NewFilter(cvars)
		cvars.Set("fixedtime", tt.fixed)
		cvars.Set("timescale", tt.scale)
		if got := f.Msec(tt.real); got != tt.want {
			t.Errorf("fixedtime %s timescale %s: Msec(%d) = %d, want %d", tt.fixed, tt.scale, tt.real, got, tt.want)
		}
	}
}

func TestThrottle(t *testing.T) {
	cvars := cvar.New()
	th := NewThrottle(cvars)
	cvars.Set("cl_maxfps", "50")

	if _, ok := th.Add(10, false); ok {
		t.Errorf("Add(10) ran a frame above cl_maxfps")
	}
	if got, ok := th.Add(10, false); !ok || got != 20 {
		t.Errorf("Add(10) = %d, %v, want 20, true", got, ok)
	}

	for i := 0; i < 4; i++ {
		if _, ok := th.Add(20, true); ok {
			t.Fatalf("connecting frame %d ran before 100 msec", i)
		}
	}
	if got, ok := th.Add(20, true); !ok || got != 100 {
		t.Errorf("Add(20) = %d, %v, want 100, true", got, ok)
	}

	if got, ok := th.Add(5000, false); !ok || got != 200 {
		t.Errorf("Add(5000) = %d, %v, want 200, true", got, ok)
	}
}
