// SPDX-License-Identifier: GPL-2.0-or-later

package net

import (
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/protocol"
)

const (
	// packets waiting for the next frame, more are dropped
	chanBufLength = 64
	// maxPacket leaves room above MaxMsgLen so oversize packets are seen
	// and can be rejected instead of silently truncated.
	maxPacket = 4 * protocol.MaxMsgLen
)

type Packet struct {
	From Addr
	Data []byte
}

// PacketConn is the datagram transport used by the client and the server.
// Poll never blocks.
type PacketConn interface {
	Send(to Addr, data []byte) error
	Poll() (Packet, bool)
	Close() error
}

// UDP is a PacketConn on a UDP socket. Reads happen on their own goroutine
// and are handed over through a buffered channel.
type UDP struct {
	con *net.UDPConn
	in  <-chan Packet
}

// ListenUDP opens a socket on port, 0 picks any free port.
func ListenUDP(port int) (*UDP, error) {
	con, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, errors.Wrapf(err, "could not listen on port %d", port)
	}
	in := make(chan Packet, chanBufLength)
	go readUDP(con, in)
	return &UDP{con: con, in: in}, nil
}

func readUDP(c *net.UDPConn, out chan<- Packet) {
	defer close(out)
	b := make([]byte, maxPacket)
	for {
		n, addr, err := c.ReadFromUDPAddrPort(b)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Error().Str("ctx", "net").Err(err).Msg("read failed")
			}
			return
		}
		if n > protocol.MaxMsgLen {
			log.Debug().Str("ctx", "net").Str("from", addr.String()).Int("len", n).Msg("oversize packet")
			continue
		}
		// make sure the data moved out is a different slice
		o := make([]byte, n)
		copy(o, b[:n])
		select {
		case out <- Packet{From: UDPAddr(addr), Data: o}:
		default:
			log.Debug().Str("ctx", "net").Msg("receive queue full, packet dropped")
		}
	}
}

func (u *UDP) Port() int {
	return u.con.LocalAddr().(*net.UDPAddr).Port
}

func (u *UDP) Send(to Addr, data []byte) error {
	if to.Loopback {
		return errors.New("UDP.Send: loopback address")
	}
	if _, err := u.con.WriteToUDPAddrPort(data, to.IP); err != nil {
		return errors.Wrapf(err, "send to %v", to)
	}
	return nil
}

func (u *UDP) Poll() (Packet, bool) {
	select {
	case p, ok := <-u.in:
		return p, ok
	default:
		return Packet{}, false
	}
}

func (u *UDP) Close() error {
	return u.con.Close()
}

// Loopback is one end of an in process connection.
type Loopback struct {
	queue []Packet
	peer  *Loopback
}

// NewLoopback returns two connected ends, one for the client and one for the
// server.
func NewLoopback() (client, server *Loopback) {
	client, server = &Loopback{}, &Loopback{}
	client.peer, server.peer = server, client
	return client, server
}

func (l *Loopback) Send(_ Addr, data []byte) error {
	if l.peer == nil {
		return errors.New("loopback closed")
	}
	if len(l.peer.queue) >= chanBufLength {
		return nil // like a lost packet
	}
	o := make([]byte, len(data))
	copy(o, data)
	l.peer.queue = append(l.peer.queue, Packet{From: LoopbackAddr, Data: o})
	return nil
}

func (l *Loopback) Poll() (Packet, bool) {
	if len(l.queue) == 0 {
		return Packet{}, false
	}
	p := l.queue[0]
	l.queue = l.queue[1:]
	return p, true
}

func (l *Loopback) Close() error {
	l.queue = nil
	l.peer = nil
	return nil
}

// Socket routes loopback addresses to the in process connection and
// everything else to UDP. Either may be nil.
type Socket struct {
	Loop *Loopback
	UDP  *UDP
}

func (s *Socket) Send(to Addr, data []byte) error {
	if to.Loopback {
		if s.Loop == nil {
			return errors.New("no loopback connection")
		}
		return s.Loop.Send(to, data)
	}
	if s.UDP == nil {
		return errors.Errorf("no network socket to reach %v", to)
	}
	return s.UDP.Send(to, data)
}

// Poll drains the loopback before the network.
func (s *Socket) Poll() (Packet, bool) {
	if s.Loop != nil {
		if p, ok := s.Loop.Poll(); ok {
			return p, true
		}
	}
	if s.UDP != nil {
		return s.UDP.Poll()
	}
	return Packet{}, false
}

func (s *Socket) Close() error {
	var err error
	if s.Loop != nil {
		err = s.Loop.Close()
	}
	if s.UDP != nil {
		if e := s.UDP.Close(); e != nil {
			err = e
		}
	}
	return err
}
