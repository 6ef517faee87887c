// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/cbuf"
	"goquake2/conlog"
	"goquake2/net"
	"goquake2/protocol"
	clc "goquake2/protocol/client"
	"goquake2/qmsg"
)

const (
	// msec between getchallenge requests
	resendTime = 3000
	// connectTime that makes CheckForResend fire immediately
	connectNow = -99999
)

// errDisconnect ends the connection without treating it as a failure.
var errDisconnect = errors.New("Server disconnected")

// ForwardToServer sends the command line to the server. Commands that are
// key bindings (+/-) or that come in before the level is loaded are
// unknown.
func (c *Client) ForwardToServer(a cbuf.Arguments) error {
	name := a.Argv(0).String()
	if c.state <= Connected || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "+") {
		conlog.Printf("Unknown command \"%s\"\n", name)
		return nil
	}
	c.netchan.Message.WriteByte(clc.StringCmd)
	c.netchan.Message.Print(name)
	if a.Argc() > 1 {
		c.netchan.Message.Print(" ")
		c.netchan.Message.Print(a.ArgumentString())
	}
	return nil
}

// forwardToServerCmd is 'cmd', it sends its arguments even while loading.
func (c *Client) forwardToServerCmd(a cbuf.Arguments) error {
	if c.state != Connected && c.state != Active {
		conlog.Printf("Can't \"%s\", not connected\n", a.Argv(0).String())
		return nil
	}
	// don't forward the first argument
	if a.Argc() > 1 {
		c.netchan.Message.WriteByte(clc.StringCmd)
		c.netchan.Message.Print(a.ArgumentString())
	}
	return nil
}

// drop ends the connection after an error. A local server goes down with
// it unless the server ended the connection.
func (c *Client) drop(err error) {
	if c.state == Disconnected {
		return
	}
	conlog.Printf("%v\n", err)
	if !errors.Is(err, errDisconnect) && c.local != nil && c.local.Active() {
		c.local.Shutdown(fmt.Sprintf("Server crashed: %v\n", err), false)
	}
	c.Disconnect()
}

// sendConnectPacket answers a challenge.
func (c *Client) sendConnectPacket() {
	to, err := net.ServerAddr(c.serverName)
	if err != nil {
		conlog.Printf("Bad server address\n")
		c.connectTime = 0
		return
	}
	c.cvars.UserinfoModified = false
	if err := net.OutOfBandPrint(c.conn, to, "connect %d %d %d \"%s\"\n",
		protocol.Version, c.cv.qport.Int(), c.challenge, c.cvars.Userinfo()); err != nil {
		log.Error().Str("ctx", "client").Err(err).Msg("connect")
	}
}

// CheckForResend sends getchallenge until the server answers. A running
// local server is connected to right away, it needs no challenge.
func (c *Client) CheckForResend() {
	if c.state == Disconnected && c.local != nil && c.local.Active() {
		c.state = Connecting
		c.serverName = "localhost"
		c.sendConnectPacket()
		return
	}

	// resend if we haven't gotten a reply yet
	if c.state != Connecting {
		return
	}
	if c.realtime-c.connectTime < resendTime {
		return
	}
	to, err := net.ServerAddr(c.serverName)
	if err != nil {
		conlog.Printf("Bad server address\n")
		c.state = Disconnected
		return
	}
	c.connectTime = c.realtime

	conlog.Printf("Connecting to %s...\n", c.serverName)
	if err := net.OutOfBandPrint(c.conn, to, "getchallenge\n"); err != nil {
		log.Error().Str("ctx", "client").Err(err).Msg("getchallenge")
	}
}

func (c *Client) connectCmd(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("usage: connect <server>\n")
		return nil
	}
	if c.local != nil && c.local.Active() {
		// if running a local server, kill it and reissue
		c.local.Shutdown("Server quit\n", false)
	}
	c.Disconnect()

	c.state = Connecting
	c.serverName = a.Argv(1).String()
	c.connectTime = connectNow
	return nil
}

// rconCmd sends the rest of the command line to the server as an
// unconnected command.
func (c *Client) rconCmd(a cbuf.Arguments) error {
	if c.cv.rconPassword.String() == "" {
		conlog.Printf("You must set 'rcon_password' before\nissuing an rcon command.\n")
		return nil
	}

	var to net.Addr
	if c.state >= Connected {
		to = c.netchan.Remote
	} else {
		if c.cv.rconAddress.String() == "" {
			conlog.Printf("You must either be connected,\nor set the 'rcon_address' cvar\nto issue rcon commands\n")
			return nil
		}
		var err error
		if to, err = net.ServerAddr(c.cv.rconAddress.String()); err != nil {
			conlog.Printf("Bad address\n")
			return nil
		}
	}

	var b strings.Builder
	b.WriteString("rcon ")
	b.WriteString(c.cv.rconPassword.String())
	b.WriteString(" ")
	for _, arg := range a.Args()[1:] {
		b.WriteString(arg.String())
		b.WriteString(" ")
	}
	return net.OutOfBandPrint(c.conn, to, "%s", b.String())
}

// Disconnect tells the server we are gone and wipes the level. It is safe
// to call on errors.
func (c *Client) Disconnect() {
	if c.state == Disconnected {
		return
	}
	c.connectTime = 0

	if c.state >= Connected {
		// send a disconnect message to the server
		final := append([]byte{clc.StringCmd}, "disconnect\x00"...)
		for i := 0; i < 3; i++ {
			if err := c.netchan.Transmit(final, c.realtime); err != nil {
				log.Debug().Str("ctx", "client").Err(err).Msg("disconnect")
			}
		}
	}
	log.Info().Str("ctx", "client").Str("session", c.Session.String()).Str("server", c.serverName).Msg("disconnected")

	c.ClearState()
	c.state = Disconnected
}

func (c *Client) disconnectCmd(_ cbuf.Arguments) error {
	if c.local != nil && c.local.Active() {
		c.local.Shutdown("Server quit\n", false)
	}
	if c.state != Disconnected {
		conlog.Printf("Disconnected from server\n")
	}
	c.Disconnect()
	return nil
}

// changingCmd is a hint from the server that a new map follows.
func (c *Client) changingCmd(_ cbuf.Arguments) error {
	// not active anymore, but not disconnected
	c.state = Connected
	conlog.Printf("\nChanging map...\n")
	return nil
}

// reconnectCmd is sent by the server when it changes levels.
func (c *Client) reconnectCmd(_ cbuf.Arguments) error {
	if c.state == Connected {
		conlog.Printf("reconnecting...\n")
		c.netchan.Message.WriteChar(clc.StringCmd)
		c.netchan.Message.WriteString("new")
		return nil
	}

	if c.serverName != "" {
		if c.state >= Connected {
			c.Disconnect()
			c.connectTime = c.realtime - 1500
		} else {
			c.connectTime = connectNow
		}
		c.state = Connecting
		conlog.Printf("reconnecting...\n")
	}
	return nil
}

// remaining returns the rest of an out of band packet as text.
func remaining(r *qmsg.Reader) string {
	b, _ := r.ReadData(r.Len())
	return strings.TrimRight(string(b), "\x00")
}

// connectionlessPacket handles the out of band replies.
func (c *Client) connectionlessPacket(p net.Packet) {
	r := qmsg.NewReader(p.Data[4:])
	args := cbuf.Parse(r.ReadStringLine())
	name := args.Argv(0).String()

	conlog.Printf("%v: %s\n", p.From, name)

	switch name {
	case "client_connect":
		// server connection
		if c.state == Connected || c.state == Active {
			conlog.Printf("Dup connect received.  Ignored.\n")
			return
		}
		if c.state != Connecting {
			return
		}
		c.Session = uuid.New()
		c.netchan.Setup(c.conn, net.ClientSide, p.From, c.cv.qport.Int(), c.realtime)
		c.netchan.Message.WriteChar(clc.StringCmd)
		c.netchan.Message.WriteString("new")
		c.state = Connected
		log.Info().Str("ctx", "client").Str("session", c.Session.String()).Str("server", p.From.String()).Msg("connected")

	case "info":
		// server responding to a status broadcast
		s := remaining(r)
		conlog.Printf("%s\n", s)

	case "cmd":
		// remote command from gui front end
		if !p.From.IsLocal() {
			conlog.Printf("Command packet from remote host.  Ignored.\n")
			return
		}
		s := remaining(r)
		c.cb.AddText(s)
		c.cb.AddText("\n")

	case "print":
		// print command from somewhere
		s := remaining(r)
		conlog.Printf("%s", s)

	case "ping":
		if err := net.OutOfBandPrint(c.conn, p.From, "ack"); err != nil {
			log.Debug().Str("ctx", "client").Err(err).Msg("ack")
		}

	case "challenge":
		// challenge from the server we are connecting to
		c.challenge = args.Argv(1).Int()
		c.sendConnectPacket()

	case "echo":
		// echo request from server
		if err := net.OutOfBandPrint(c.conn, p.From, "%s", args.Argv(1).String()); err != nil {
			log.Debug().Str("ctx", "client").Err(err).Msg("echo")
		}

	default:
		conlog.Printf("Unknown command.\n")
	}
}

// ReadPackets handles everything that arrived since the last frame and
// checks for a timeout of the connection.
func (c *Client) ReadPackets() {
	for {
		p, ok := c.conn.Poll()
		if !ok {
			break
		}
		// remote command packet
		if net.IsOutOfBand(p.Data) {
			c.connectionlessPacket(p)
			continue
		}
		if c.state == Disconnected || c.state == Connecting {
			continue // dump it if not connected
		}
		if len(p.Data) < 8 {
			conlog.Printf("%v: Runt packet\n", p.From)
			continue
		}
		// packet from server
		if p.From != c.netchan.Remote {
			conlog.DPrintf("%v:sequenced packet without connection\n", p.From)
			continue
		}
		r, ok := c.netchan.Process(p.Data, c.realtime)
		if !ok {
			continue // wasn't accepted for some reason
		}
		if err := c.ParseServerMessage(r); err != nil {
			c.drop(err)
			return
		}
	}

	// check timeout
	if c.state >= Connected && c.realtime-c.netchan.LastReceived > int(c.cv.timeout.Value()*1000) {
		c.cl.timeoutCount++
		if c.cl.timeoutCount > 5 {
			conlog.Printf("\nServer connection timed out.\n")
			c.Disconnect()
			return
		}
	} else {
		c.cl.timeoutCount = 0
	}
}
