// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquake2/info"
	"goquake2/net"
	"goquake2/protocol"
)

func usedSlots(s *Server) int {
	n := 0
	for _, c := range s.clients {
		if c.state != Free {
			n++
		}
	}
	return n
}

func TestPing(t *testing.T) {
	ts := newTestServer(t, 4)
	ts.conn.oob(udpAddr("10.0.0.5:27901"), "ping")
	ts.readPackets()
	assert.Equal(t, "ack", ts.conn.lastText(t))
}

func TestConnectRejected(t *testing.T) {
	from := udpAddr("10.0.0.5:27901")
	tests := []struct {
		name         string
		getChallenge bool
		connect      func(challenge int) string
		want         string
	}{
		{
			name:         "wrong protocol",
			getChallenge: true,
			connect: func(ch int) string {
				return fmt.Sprintf("connect 33 1000 %d \"\\name\\x\"", ch)
			},
			want: "print\nServer is version 3.21.\n",
		},
		{
			name:         "bad challenge",
			getChallenge: true,
			connect: func(ch int) string {
				return fmt.Sprintf("connect %d 1000 %d \"\\name\\x\"", protocol.Version, ch+1)
			},
			want: "print\nBad challenge.\n",
		},
		{
			name: "no challenge",
			connect: func(int) string {
				return fmt.Sprintf("connect %d 1000 1 \"\\name\\x\"", protocol.Version)
			},
			want: "print\nNo challenge for address.\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, 4)
			ch := 0
			if tc.getChallenge {
				ts.conn.oob(from, "getchallenge")
				ts.readPackets()
				_, err := fmt.Sscanf(ts.conn.lastText(t), "challenge %d", &ch)
				require.NoError(t, err)
			}
			ts.conn.oob(from, tc.connect(ch))
			ts.readPackets()
			assert.Equal(t, tc.want, ts.conn.lastText(t))
			assert.Equal(t, 0, usedSlots(ts.Server))
		})
	}
}

func TestChallengeReusedForAddress(t *testing.T) {
	var cs challenges
	a := udpAddr("10.0.0.5:27901")
	n := cs.issue(a, 0)
	assert.Equal(t, n, cs.issue(udpAddr("10.0.0.5:30000"), 10), "same host keeps its challenge")
	assert.Less(t, n, 0x8000)
	assert.Equal(t, challengeOK, cs.check(a, n))
	assert.Equal(t, challengeMissing, cs.check(a, n), "a challenge is used once")
}

func TestChallengeRingEvictsOldest(t *testing.T) {
	var cs challenges
	for i := 0; i < protocol.MaxChallenges; i++ {
		cs.issue(udpAddr(fmt.Sprintf("10.0.%d.%d:27901", i/256, i%256)), 100+i)
	}
	first := udpAddr("10.0.0.0:27901")
	n := cs.slots[0].challenge
	cs.issue(udpAddr("192.168.1.1:27901"), 5000)
	assert.Equal(t, challengeMissing, cs.check(first, n))
	assert.Equal(t, challengeOK, cs.check(udpAddr("10.0.0.1:27901"), cs.slots[1].challenge))
}

func TestLocalConnectNeedsNoChallenge(t *testing.T) {
	ts := newTestServer(t, 1)
	ts.conn.oob(net.LoopbackAddr, fmt.Sprintf("connect %d 7 0 \"\\name\\local\"", protocol.Version))
	ts.readPackets()
	assert.Equal(t, "client_connect", ts.conn.lastText(t))
	assert.Equal(t, Connected, ts.clients[0].State())
	assert.Equal(t, "local", ts.clients[0].Name())
	assert.Equal(t, "loopback", info.ValueForKey(ts.clients[0].Userinfo(), "ip"))
}

func TestServerFull(t *testing.T) {
	ts := newTestServer(t, 2)
	ts.connect(t, udpAddr("10.0.0.5:27901"), 1, "a")
	ts.connect(t, udpAddr("10.0.0.6:27901"), 2, "b")

	from := udpAddr("10.0.0.7:27901")
	ts.conn.oob(from, "getchallenge")
	ts.readPackets()
	var ch int
	fmt.Sscanf(ts.conn.lastText(t), "challenge %d", &ch)
	ts.conn.oob(from, fmt.Sprintf("connect %d 3 %d \"\\name\\c\"", protocol.Version, ch))
	ts.readPackets()
	assert.Equal(t, "print\nServer is full.\n", ts.conn.lastText(t))
}

func TestGameRejectsConnect(t *testing.T) {
	ts := newTestServer(t, 4)
	ts.game.reject = "Banned."
	from := udpAddr("10.0.0.5:27901")
	ts.conn.oob(from, "getchallenge")
	ts.readPackets()
	var ch int
	fmt.Sscanf(ts.conn.lastText(t), "challenge %d", &ch)
	ts.conn.oob(from, fmt.Sprintf("connect %d 3 %d \"\\name\\c\"", protocol.Version, ch))
	ts.readPackets()
	assert.Equal(t, "print\nBanned.\nConnection refused.\n", ts.conn.lastText(t))
	assert.Equal(t, 0, usedSlots(ts.Server))
}

func TestReconnectReusesSlot(t *testing.T) {
	ts := newTestServer(t, 4)
	from := udpAddr("10.0.0.5:27901")
	p := ts.connect(t, from, 1000, "player")
	first := p.c.Session

	// too soon after the first connect
	ts.realtime = 1000
	ts.conn.oob(from, "getchallenge")
	ts.readPackets()
	var ch int
	fmt.Sscanf(ts.conn.lastText(t), "challenge %d", &ch)
	ts.conn.oob(from, fmt.Sprintf("connect %d 1000 %d \"\\name\\player\"", protocol.Version, ch))
	ts.readPackets()
	assert.Equal(t, first, p.c.Session)

	ts.realtime = 5000
	q := ts.connect(t, from, 1000, "player")
	assert.Same(t, p.c, q.c)
	assert.NotEqual(t, first, q.c.Session)
	assert.Equal(t, 1, usedSlots(ts.Server))
}

func TestInfo(t *testing.T) {
	ts := newTestServer(t, 4)
	ts.cvars.Set("hostname", "box")
	from := udpAddr("10.0.0.9:27901")
	ts.connect(t, udpAddr("10.0.0.5:27901"), 1, "a")

	ts.conn.oob(from, "info 34")
	ts.readPackets()
	assert.Equal(t, "info\n             box    q2dm1  1/ 4\n", ts.conn.lastText(t))

	ts.conn.oob(from, "info 33")
	ts.readPackets()
	assert.Equal(t, "info\nbox: wrong version\n", ts.conn.lastText(t))
}

func TestStatusReply(t *testing.T) {
	ts := newTestServer(t, 4)
	ts.connect(t, udpAddr("10.0.0.5:27901"), 1, "a")
	ts.conn.oob(udpAddr("10.0.0.9:27901"), "status")
	ts.readPackets()
	got := ts.conn.lastText(t)
	assert.Contains(t, got, "\\mapname\\q2dm1")
	assert.Contains(t, got, "\n0 0 \"a\"\n")
}

func TestRcon(t *testing.T) {
	ts := newTestServer(t, 4)
	from := udpAddr("10.0.0.9:27901")

	// an empty password refuses everything
	ts.conn.oob(from, "rcon \"\" status")
	ts.readPackets()
	assert.Equal(t, "print\nBad rcon_password.\n", ts.conn.lastText(t))

	ts.cvars.Set("rcon_password", "secret")
	ts.conn.oob(from, "rcon wrong status")
	ts.readPackets()
	assert.Equal(t, "print\nBad rcon_password.\n", ts.conn.lastText(t))

	ts.conn.oob(from, "rcon secret hostname")
	ts.readPackets()
	assert.Equal(t, "print\n\"hostname\" is \"noname\"\n", ts.conn.lastText(t))
}
