// SPDX-License-Identifier: GPL-2.0-or-later

package net

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
	"goquake2/protocol"
	"goquake2/qmsg"
)

// Packet header:
//
//	31 sequence
//	1  does this message contain a reliable payload
//	31 acknowledge sequence
//	1  acknowledge receipt of even/odd message
//	16 qport, client to server only
//
// The reliable payload is resent until the ack bit flips. The qport lets
// the server find a client behind a NAT that changed the source port.
const (
	headerSize       = 8
	clientHeaderSize = headerSize + 2
	reliableBit      = 1 << 31
	sequenceMask     = reliableBit - 1
)

type Side int

const (
	ClientSide Side = iota
	ServerSide
)

// Netchan is a sequenced channel with one reliable message in flight.
type Netchan struct {
	conn PacketConn
	side Side

	Remote Addr
	QPort  int

	// Dropped is the number of packets lost before the last one processed.
	Dropped int

	LastReceived int // msec of the last Process
	LastSent     int // msec of the last Transmit

	IncomingSequence             int32
	IncomingAcknowledged         int32
	incomingReliableAcknowledged int32 // single bit
	incomingReliableSequence     int32 // single bit, maintained local

	OutgoingSequence     int32
	reliableSequence     int32 // single bit
	lastReliableSequence int32 // sequence number of last send

	// Message collects the reliable data for the next Transmit.
	Message *qmsg.Writer

	reliable []byte // unacked reliable message
}

// Setup opens a channel to remote. It is called when a connection is
// established and again on reconnect.
func (c *Netchan) Setup(conn PacketConn, side Side, remote Addr, qport, now int) {
	*c = Netchan{
		conn:             conn,
		side:             side,
		Remote:           remote,
		QPort:            qport,
		LastReceived:     now,
		OutgoingSequence: 1,
		Message:          qmsg.NewWriter(protocol.MaxMsgLen - 16),
	}
	c.Message.AllowOverflow = true
}

// CanReliable reports whether no reliable message is waiting for an ack.
func (c *Netchan) CanReliable() bool {
	return len(c.reliable) == 0
}

// NeedReliable reports whether the next Transmit carries a reliable payload.
func (c *Netchan) NeedReliable() bool {
	// if the remote side dropped the last reliable message, resend it
	if c.IncomingAcknowledged > c.lastReliableSequence &&
		c.incomingReliableAcknowledged != c.reliableSequence {
		return true
	}
	// if the reliable transmit buffer is empty, copy the current message out
	return len(c.reliable) == 0 && c.Message.Len() != 0
}

// Transmit sends the reliable payload if needed followed by the unreliable
// data. The unreliable part is dropped if it does not fit.
func (c *Netchan) Transmit(data []byte, now int) error {
	if c.Message.Overflowed() {
		conlog.Printf("%v:Outgoing message overflow\n", c.Remote)
		return errors.Errorf("%v: outgoing message overflow", c.Remote)
	}

	sendReliable := c.NeedReliable()
	if len(c.reliable) == 0 && c.Message.Len() != 0 {
		c.reliable = append([]byte(nil), c.Message.Bytes()...)
		c.Message.Clear()
		c.reliableSequence ^= 1
	}

	w := qmsg.NewWriter(protocol.MaxMsgLen)
	w1 := uint32(c.OutgoingSequence) & sequenceMask
	if sendReliable {
		w1 |= reliableBit
	}
	w2 := uint32(c.IncomingSequence)&sequenceMask | uint32(c.incomingReliableSequence)<<31

	c.OutgoingSequence++
	c.LastSent = now

	w.WriteLong(int(int32(w1)))
	w.WriteLong(int(int32(w2)))
	if c.side == ClientSide {
		w.WriteShort(c.QPort)
	}
	if sendReliable {
		w.Write(c.reliable)
		c.lastReliableSequence = c.OutgoingSequence
	}
	if w.Remaining() >= len(data) {
		w.Write(data)
	} else {
		conlog.Printf("Netchan_Transmit: dumped unreliable\n")
	}
	return c.conn.Send(c.Remote, w.Bytes())
}

// Process validates an incoming sequenced packet and returns a reader
// positioned after the header. Duplicated and out of order packets are
// rejected.
func (c *Netchan) Process(data []byte, now int) (*qmsg.Reader, bool) {
	hs := headerSize
	if c.side == ServerSide {
		hs = clientHeaderSize
	}
	if len(data) < hs {
		return nil, false
	}
	sequence := binary.LittleEndian.Uint32(data)
	ack := binary.LittleEndian.Uint32(data[4:])

	reliableMessage := int32(sequence >> 31)
	reliableAck := int32(ack >> 31)
	seq := int32(sequence & sequenceMask)
	seqAck := int32(ack & sequenceMask)

	// discard stale or duplicated packets
	if seq <= c.IncomingSequence {
		log.Debug().Str("ctx", "netchan").Str("addr", c.Remote.String()).
			Int32("sequence", seq).Int32("incoming", c.IncomingSequence).
			Msg("out of order packet")
		return nil, false
	}

	c.Dropped = int(seq - (c.IncomingSequence + 1))
	if c.Dropped > 0 {
		log.Debug().Str("ctx", "netchan").Str("addr", c.Remote.String()).
			Int("dropped", c.Dropped).Int32("sequence", seq).Msg("dropped packets")
	}

	// if the current outgoing reliable message has been acknowledged
	// clear the buffer to make way for the next
	if reliableAck == c.reliableSequence {
		c.reliable = nil
	}

	c.IncomingSequence = seq
	c.IncomingAcknowledged = seqAck
	c.incomingReliableAcknowledged = reliableAck
	if reliableMessage != 0 {
		c.incomingReliableSequence ^= 1
	}
	c.LastReceived = now

	r := qmsg.NewReader(data)
	// the header was verified above
	r.ReadData(hs)
	return r, true
}

// PeekQPort returns the qport of a client to server packet.
func PeekQPort(data []byte) (int, bool) {
	if len(data) < clientHeaderSize {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(data[headerSize:])), true
}

// IsOutOfBand reports whether data starts with the connectionless marker.
func IsOutOfBand(data []byte) bool {
	return len(data) >= 4 && int32(binary.LittleEndian.Uint32(data)) == protocol.OutOfBand
}

// OutOfBand sends a connectionless packet.
func OutOfBand(conn PacketConn, to Addr, data []byte) error {
	b := make([]byte, 4, 4+len(data))
	binary.LittleEndian.PutUint32(b, uint32(0xffffffff))
	return conn.Send(to, append(b, data...))
}

// OutOfBandPrint sends a formatted connectionless text packet.
func OutOfBandPrint(conn PacketConn, to Addr, format string, v ...interface{}) error {
	return OutOfBand(conn, to, []byte(fmt.Sprintf(format, v...)))
}
