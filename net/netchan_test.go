// SPDX-License-Identifier: GPL-2.0-or-later

package net

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lossy drops packets while drop is set.
type lossy struct {
	PacketConn
	drop bool
}

func (l *lossy) Send(to Addr, data []byte) error {
	if l.drop {
		return nil
	}
	return l.PacketConn.Send(to, data)
}

func channels(t *testing.T) (cl, sv *Netchan, clConn *lossy, svLoop *Loopback) {
	t.Helper()
	c, s := NewLoopback()
	clConn = &lossy{PacketConn: c}
	cl, sv = &Netchan{}, &Netchan{}
	cl.Setup(clConn, ClientSide, LoopbackAddr, 1234, 0)
	sv.Setup(s, ServerSide, LoopbackAddr, 1234, 0)
	return cl, sv, clConn, s
}

func TestPeekQPort(t *testing.T) {
	cl, _, _, s := channels(t)
	require.NoError(t, cl.Transmit(nil, 0))
	p, ok := s.Poll()
	require.True(t, ok)
	q, ok := PeekQPort(p.Data)
	require.True(t, ok)
	assert.Equal(t, 1234, q)
	assert.False(t, IsOutOfBand(p.Data))
}

func TestUnreliablePayload(t *testing.T) {
	cl, sv, _, s := channels(t)
	require.NoError(t, cl.Transmit([]byte{7, 8, 9}, 10))
	p, _ := s.Poll()
	r, ok := sv.Process(p.Data, 20)
	require.True(t, ok)
	got, err := r.ReadData(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 9}, got)
	assert.Equal(t, 0, sv.Dropped)
	assert.Equal(t, 20, sv.LastReceived)
}

func TestDroppedCount(t *testing.T) {
	cl, sv, clConn, s := channels(t)
	require.NoError(t, cl.Transmit(nil, 0))
	clConn.drop = true
	for i := 0; i < 3; i++ {
		require.NoError(t, cl.Transmit(nil, 0))
	}
	clConn.drop = false
	require.NoError(t, cl.Transmit(nil, 0))

	p, _ := s.Poll()
	_, ok := sv.Process(p.Data, 0)
	require.True(t, ok)
	p, _ = s.Poll()
	_, ok = sv.Process(p.Data, 0)
	require.True(t, ok)
	assert.Equal(t, 3, sv.Dropped)
}

func TestDuplicateRejected(t *testing.T) {
	cl, sv, _, s := channels(t)
	require.NoError(t, cl.Transmit(nil, 0))
	p, _ := s.Poll()
	_, ok := sv.Process(p.Data, 0)
	require.True(t, ok)
	_, ok = sv.Process(p.Data, 0)
	assert.False(t, ok)
	_, ok = sv.Process([]byte{1, 2}, 0)
	assert.False(t, ok)
}

func TestReliableResentUntilAcked(t *testing.T) {
	cl, sv, clConn, s := channels(t)
	cl.Message.WriteString("reliable")

	// lost
	clConn.drop = true
	require.NoError(t, cl.Transmit(nil, 0))
	clConn.drop = false
	assert.False(t, cl.CanReliable())

	// the loss is noticed once a later packet is acknowledged
	for i := 0; i < 2; i++ {
		require.NoError(t, cl.Transmit(nil, 0))
		p, ok := s.Poll()
		require.True(t, ok)
		_, ok = sv.Process(p.Data, 0)
		require.True(t, ok)
	}
	require.NoError(t, sv.Transmit(nil, 0))
	p, ok := clConn.PacketConn.Poll()
	require.True(t, ok)
	_, ok = cl.Process(p.Data, 0)
	require.True(t, ok)
	require.True(t, cl.NeedReliable())

	require.NoError(t, cl.Transmit(nil, 0))
	p, _ = s.Poll()
	r, ok := sv.Process(p.Data, 0)
	require.True(t, ok)
	str, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "reliable", str)

	// the ack clears it
	require.NoError(t, sv.Transmit(nil, 0))
	p, _ = clConn.PacketConn.Poll()
	_, ok = cl.Process(p.Data, 0)
	require.True(t, ok)
	assert.True(t, cl.CanReliable())
	assert.False(t, cl.NeedReliable())
}

func TestOutOfBand(t *testing.T) {
	c, s := NewLoopback()
	require.NoError(t, OutOfBandPrint(c, LoopbackAddr, "ping %d", 1))
	p, ok := s.Poll()
	require.True(t, ok)
	assert.True(t, IsOutOfBand(p.Data))
	assert.Equal(t, "ping 1", string(p.Data[4:]))
	assert.True(t, p.From.Loopback)
}

func TestAddr(t *testing.T) {
	a := UDPAddr(netip.MustParseAddrPort("10.0.0.1:27910"))
	b := UDPAddr(netip.MustParseAddrPort("10.0.0.1:27901"))
	c := UDPAddr(netip.MustParseAddrPort("[::ffff:10.0.0.1]:27910"))
	assert.True(t, a.SameBase(b))
	assert.False(t, a == b)
	assert.True(t, a == c)
	assert.False(t, a.SameBase(LoopbackAddr))
	assert.True(t, LoopbackAddr.IsLocal())
	assert.Equal(t, 27910, a.Port())

	p, err := ParseAddr("127.0.0.1", 27910)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:27910", p.String())
	assert.True(t, p.IsLocal())
	p, err = ServerAddr("localhost")
	require.NoError(t, err)
	assert.True(t, p.Loopback)
}

func TestSocketRoutes(t *testing.T) {
	c, s := NewLoopback()
	sock := &Socket{Loop: c}
	require.NoError(t, sock.Send(LoopbackAddr, []byte{1}))
	assert.Error(t, sock.Send(UDPAddr(netip.MustParseAddrPort("10.0.0.1:1")), []byte{1}))
	p, ok := s.Poll()
	require.True(t, ok)
	assert.Equal(t, []byte{1}, p.Data)
	_, ok = sock.Poll()
	assert.False(t, ok)
}
