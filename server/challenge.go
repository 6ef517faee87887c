// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"math"

	"goquake2/net"
	"goquake2/protocol"
	"goquake2/rand"
)

type challenge struct {
	addr      net.Addr
	challenge int
	time      int
	used      bool
}

// challenges binds a future connect to the address that asked for the
// challenge. The ring is large so a flood of spoofed requests can not cycle
// out a legitimate user before it connects.
type challenges struct {
	slots [protocol.MaxChallenges]challenge
	rand  rand.Generator
}

// issue returns the challenge for addr, reusing a slot of the same address
// or else overwriting the oldest one.
func (cs *challenges) issue(addr net.Addr, now int) int {
	oldest := 0
	oldestTime := math.MaxInt
	for i := range cs.slots {
		c := &cs.slots[i]
		if c.used && c.addr.SameBase(addr) {
			return c.challenge
		}
		if !c.used {
			if oldestTime != math.MinInt {
				oldest = i
				oldestTime = math.MinInt
			}
			continue
		}
		if c.time < oldestTime {
			oldestTime = c.time
			oldest = i
		}
	}
	cs.slots[oldest] = challenge{
		addr:      addr,
		challenge: int(cs.rand.Uint32n(0x8000)),
		time:      now,
		used:      true,
	}
	return cs.slots[oldest].challenge
}

type challengeResult int

const (
	challengeOK challengeResult = iota
	challengeBad
	challengeMissing
)

// check validates a connect attempt. A valid challenge is consumed.
func (cs *challenges) check(addr net.Addr, n int) challengeResult {
	for i := range cs.slots {
		c := &cs.slots[i]
		if !c.used || !c.addr.SameBase(addr) {
			continue
		}
		if c.challenge != n {
			return challengeBad
		}
		cs.slots[i] = challenge{}
		return challengeOK
	}
	return challengeMissing
}
