// SPDX-License-Identifier: GPL-2.0-or-later

// Package client is the network client: it connects to a server, parses the
// snapshots it receives, sends the user commands and predicts and
// interpolates what is shown.
package client

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
	"goquake2/cvar"
	"goquake2/info"
	qmath "goquake2/math"
	"goquake2/math/vec"
	"goquake2/net"
	"goquake2/pmove"
	"goquake2/protocol"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
	"goquake2/rand"
)

type State int

const (
	Disconnected State = iota // not talking to a server
	Connecting                // sending request packets to the server
	Connected                 // netchan established, waiting for the first frame
	Active                    // game views should be displayed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "active"
}

// maxParseEntities is the size of the ring holding the entities of all
// received frames. Must be a power of two.
const maxParseEntities = 1024

// LocalServer is a server running in the same process.
type LocalServer interface {
	Active() bool
	Shutdown(finalMessage string, reconnect bool)
}

type clientCvars struct {
	timeout   *cvar.Cvar
	predict   *cvar.Cvar
	showClamp *cvar.Cvar
	showMiss  *cvar.Cvar
	noDelta   *cvar.Cvar
	paused    *cvar.Cvar

	rconPassword *cvar.Cvar
	rconAddress  *cvar.Cvar
	qport        *cvar.Cvar
}

// frame is a received server frame.
type frame struct {
	valid       bool // cleared if delta parsing was invalid
	serverFrame int
	serverTime  int // msec
	deltaFrame  int
	areaBits    []byte
	ps          svc.PlayerState
	// entities of this frame in the parse ring
	numEntities   int
	parseEntities int
}

// centity is what the client knows about one entity.
type centity struct {
	baseline svc.EntityState // delta from this if not from a previous frame
	current  svc.EntityState
	prev     svc.EntityState // will always be valid, but might just be a copy of current

	serverFrame int // if not current, this ent isn't in the frame
}

// level is the state wiped on every new map.
type level struct {
	timeoutCount int

	serverCount int // server identification for prespawns
	attractLoop bool
	gameDir     string
	playerNum   int
	levelName   string
	protocol    int

	configStrings [protocol.MaxConfigStrings]string
	layout        string
	inventory     [protocol.MaxItems]int
	surpressCount int

	frame  frame
	frames [protocol.UpdateBackup]frame

	parseEntities   int // index (not anded off) into parseEntityRing
	parseEntityRing [maxParseEntities]svc.EntityState
	entities        [protocol.MaxEdicts]centity

	// time is the msec the view shows, clamped to the last two frames
	time     int
	lerpFrac float32 // between oldframe and frame

	cmds       [protocol.CmdBackup]clc.UserCmd // each message will send several old cmds
	cmdTime    [protocol.CmdBackup]int         // time sent, for calculating pings
	viewAngles vec.Vec3

	predictedOrigins  [protocol.CmdBackup][3]int16 // for debug comparing against server
	predictedOrigin   vec.Vec3                     // generated by PredictMovement
	predictedAngles   vec.Vec3
	predictedStep     float32 // for stair up smoothing
	predictedStepTime int
	predictionError   vec.Vec3

	view View
}

// Client is the connection to one server at a time.
type Client struct {
	// Session identifies one connection in the logs.
	Session uuid.UUID

	state       State
	conn        net.PacketConn
	netchan     net.Netchan
	serverName  string
	connectTime int // for connection retransmits
	challenge   int
	forcePacket bool // send the next packet without waiting
	realtime    int  // msec, always increasing
	frameMsec   int  // length of the current frame

	cvars *cvar.Registry
	cb    *cbuf.CommandBuffer
	cv    clientCvars
	local LocalServer

	input   Input
	refresh Refresh
	world   pmove.Tracer
	rnd     rand.Generator

	cl *level
}

// New creates a disconnected client sending on conn. input and refresh may
// be nil.
func New(cvars *cvar.Registry, cb *cbuf.CommandBuffer, conn net.PacketConn, input Input, refresh Refresh) *Client {
	r := rand.New(uint32(uuid.New().ID()))
	c := &Client{
		state:   Disconnected,
		conn:    conn,
		cvars:   cvars,
		cb:      cb,
		input:   input,
		refresh: refresh,
		rnd:     r,
		cl:      &level{},
	}
	c.cv = clientCvars{
		timeout:      cvars.MustGet("cl_timeout", "120", cvar.NONE),
		predict:      cvars.MustGet("cl_predict", "1", cvar.NONE),
		showClamp:    cvars.MustGet("showclamp", "0", cvar.NONE),
		showMiss:     cvars.MustGet("cl_showmiss", "0", cvar.NONE),
		noDelta:      cvars.MustGet("cl_nodelta", "0", cvar.NONE),
		paused:       cvars.MustGet("paused", "0", cvar.NONE),
		rconPassword: cvars.MustGet("rcon_password", "", cvar.NONE),
		rconAddress:  cvars.MustGet("rcon_address", "", cvar.NONE),
		// pick a port value that should be nice and random
		qport: cvars.MustGet("qport", strconv.Itoa(r.Intn(0xffff)), cvar.NOSET),
	}

	// userinfo
	cvars.MustGet("name", "unnamed", cvar.USERINFO|cvar.ARCHIVE)
	cvars.MustGet("skin", "male/grunt", cvar.USERINFO|cvar.ARCHIVE)
	cvars.MustGet("rate", "8000", cvar.USERINFO|cvar.ARCHIVE)
	cvars.MustGet("msg", "1", cvar.USERINFO|cvar.ARCHIVE)
	cvars.MustGet("hand", "0", cvar.USERINFO|cvar.ARCHIVE)
	cvars.MustGet("fov", "90", cvar.USERINFO|cvar.ARCHIVE)
	cvars.MustGet("password", "", cvar.USERINFO)
	cvars.MustGet("spectator", "0", cvar.USERINFO)
	return c
}

// SetLocalServer makes the client connect to srv whenever it runs.
func (c *Client) SetLocalServer(srv LocalServer) {
	c.local = srv
}

func (c *Client) State() State { return c.state }

// Time is the msec of the displayed view.
func (c *Client) Time() int { return c.cl.time }

// ConfigString returns the configstring the server sent for index.
func (c *Client) ConfigString(index int) string {
	if index < 0 || index >= protocol.MaxConfigStrings {
		return ""
	}
	return c.cl.configStrings[index]
}

// PlayerNum is the slot the server gave us.
func (c *Client) PlayerNum() int { return c.cl.playerNum }

// View returns the view calculated by the last Frame.
func (c *Client) View() View { return c.cl.view }

// Register adds the client commands. Commands only the server knows are
// added without a function so they complete and get forwarded.
func (c *Client) Register(cmds *cmd.Commands) error {
	for _, e := range []struct {
		name string
		f    cmd.QFunc
	}{
		{"cmd", c.forwardToServerCmd},
		{"pause", c.pauseCmd},
		{"userinfo", c.userinfoCmd},
		{"changing", c.changingCmd},
		{"disconnect", c.disconnectCmd},
		{"connect", c.connectCmd},
		{"reconnect", c.reconnectCmd},
		{"rcon", c.rconCmd},
		{"precache", c.precacheCmd},
		{"centerview", c.centerViewCmd},
	} {
		if err := cmds.Add(e.name, e.f); err != nil {
			return errors.Wrap(err, "client commands")
		}
	}
	for _, name := range []string{
		"wave", "inven", "kill", "use", "drop", "say", "say_team", "info",
		"give", "god", "notarget", "noclip", "invuse", "invprev", "invnext",
		"invdrop", "weapnext", "weapprev", "players",
	} {
		if err := cmds.Add(name, nil); err != nil {
			return errors.Wrap(err, "client commands")
		}
	}
	cmds.SetForwarder(c.ForwardToServer)
	return nil
}

// Forwarder is the last command executor: unknown commands go to the
// server.
func (c *Client) Forwarder() cbuf.Efunc {
	return func(_ *cbuf.CommandBuffer, a cbuf.Arguments) (bool, error) {
		return true, c.ForwardToServer(a)
	}
}

// ClearState wipes everything about the current level.
func (c *Client) ClearState() {
	c.cl = &level{}
	if c.netchan.Message != nil {
		c.netchan.Message.Clear()
	}
}

func (c *Client) pauseCmd(_ cbuf.Arguments) error {
	// never pause in multiplayer
	if c.cvars.VariableValue("maxclients") > 1 || c.local == nil || !c.local.Active() {
		c.cv.paused.SetValue(0)
		return nil
	}
	if c.cv.paused.Bool() {
		c.cv.paused.SetValue(0)
	} else {
		c.cv.paused.SetValue(1)
	}
	return nil
}

func (c *Client) userinfoCmd(_ cbuf.Arguments) error {
	conlog.Printf("User info settings:\n")
	info.Print(c.cvars.Userinfo())
	return nil
}

// precacheCmd is sent by the server once all configstrings and baselines
// are in.
func (c *Client) precacheCmd(a cbuf.Arguments) error {
	c.netchan.Message.WriteByte(clc.StringCmd)
	c.netchan.Message.WriteString("begin " + strconv.Itoa(a.Argv(1).Int()) + "\n")
	c.forcePacket = true
	return nil
}

func (c *Client) centerViewCmd(_ cbuf.Arguments) error {
	c.cl.viewAngles.X = -qmath.ShortToAngle(c.cl.frame.ps.Pmove.DeltaAngles[0])
	return nil
}

// Frame runs the client for msec of real time.
func (c *Client) Frame(msec int) {
	c.frameMsec = msec
	c.realtime += msec
	c.cl.time += msec

	c.ReadPackets()
	if err := c.cb.Execute(); err != nil {
		conlog.Printf("%v\n", err)
	}
	c.refreshCmd(msec)

	if c.cvars.UserinfoModified {
		c.forcePacket = true
	}
	c.SendCmd()
	c.CheckForResend()

	c.PredictMovement()
	c.AddEntities()
}
