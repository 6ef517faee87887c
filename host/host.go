// SPDX-License-Identifier: GPL-2.0-or-later

// Package host owns all registries of a process and runs the server and the
// client in one tick driven loop.
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/alias"
	"goquake2/cbuf"
	"goquake2/client"
	"goquake2/cmd"
	"goquake2/commandline"
	"goquake2/config"
	"goquake2/conlog"
	"goquake2/cvar"
	"goquake2/filesystem"
	"goquake2/game"
	"goquake2/gametime"
	"goquake2/history"
	"goquake2/input"
	"goquake2/net"
	"goquake2/server"
)

const (
	// DefaultPort is the UDP port of servers.
	DefaultPort = 27910
	configFile  = "config.cfg"
	// ticks are never shorter than this
	minFrameMsec = 1
	// and dedicated servers sleep at least this long between ticks
	dedicatedFrameMsec = 10
)

// Options are the startup settings given on the command line.
type Options struct {
	BaseDir   string
	Game      string
	Dedicated bool
	// MaxClients of a dedicated server, 0 keeps the default
	MaxClients int
	// Port the server listens on, 0 means no network server unless
	// dedicated
	Port    int
	Profile string
	Connect string
	// Args are the "+cmd args" tokens
	Args []string
	// Offline uses only the in process connection
	Offline bool
}

// Error aborts the current frame. The process keeps running.
type Error struct {
	Msg string
}

func (e Error) Error() string { return e.Msg }

// Errorf aborts the current frame with a formatted message.
func Errorf(format string, v ...interface{}) {
	panic(Error{Msg: fmt.Sprintf(format, v...)})
}

type hostCvars struct {
	developer *cvar.Cvar
	game      *cvar.Cvar
}

// Host is one running process, either a dedicated server or a client with
// an optional listen server.
type Host struct {
	Cvars    *cvar.Registry
	Commands *cmd.Commands
	Aliases  *alias.Aliases
	Cbuf     *cbuf.CommandBuffer
	Server   *server.Server
	// Client, Input and Bindings are nil on a dedicated server
	Client   *client.Client
	Input    *input.Buttons
	Bindings *input.Bindings

	fs        *filesystem.FS
	cv        hostCvars
	time      *gametime.Filter
	throttle  *gametime.Throttle
	dedicated bool
	history   *history.History
	console   *consoleReader
	conns     []net.PacketConn
	realtime  int
	quit      chan struct{}
}

// Init creates all subsystems, runs the config files and queues the
// commands of the command line.
func Init(opts Options) (*Host, error) {
	h := &Host{
		Cvars:     cvar.New(),
		Commands:  cmd.New(),
		Aliases:   alias.New(),
		Cbuf:      &cbuf.CommandBuffer{},
		dedicated: opts.Dedicated,
		history:   &history.History{},
		quit:      make(chan struct{}),
	}
	h.Cvars.SetCommandCheck(h.Commands.Exists)
	h.Cbuf.SetMacroLookup(h.Cvars.VariableString)

	h.cv.developer = h.Cvars.MustGet("developer", "0", cvar.NONE)
	conlog.SetDeveloper(h.cv.developer.Bool)
	h.Cvars.MustGet("dedicated", "0", cvar.NOSET)
	if opts.Dedicated {
		h.Cvars.ForceSet("dedicated", "1")
	}
	h.Cvars.MustGet("basedir", opts.BaseDir, cvar.NOSET)
	h.cv.game = h.Cvars.MustGet("game", opts.Game, cvar.LATCH|cvar.SERVERINFO)
	h.Cvars.MustGet("gamedir", "", cvar.SERVERINFO|cvar.NOSET)
	h.time = gametime.NewFilter(h.Cvars)

	for _, err := range []error{
		h.Commands.Register(),
		h.Cvars.Register(h.Commands),
		h.Aliases.Register(h.Commands),
		h.register(),
	} {
		if err != nil {
			return nil, errors.Wrap(err, "Init")
		}
	}
	h.Cbuf.SetCommandExecutors([]cbuf.Efunc{
		h.Commands.Execute(),
		h.Aliases.Execute(),
		h.Cvars.Execute(),
	})

	// set commands of the command line apply before the config files
	cl := commandline.Parse(opts.Args)
	h.Cbuf.AddText(cl.Early())
	if err := h.Cbuf.Execute(); err != nil {
		conlog.Printf("%v\n", err)
	}

	h.fs = filesystem.New(opts.BaseDir)
	h.setGameDir()

	if err := h.initNetwork(opts); err != nil {
		return nil, err
	}

	// started by dedicated servers without a map on the command line
	h.Aliases.Set("dedicated_start", "map sandbox\n")
	h.Cbuf.AddText("exec default.cfg\n")
	if !h.dedicated {
		h.Cbuf.AddText("exec " + configFile + "\n")
	}
	h.Cbuf.AddText(cl.Early())
	if err := h.Cbuf.Execute(); err != nil {
		conlog.Printf("%v\n", err)
	}

	profileMap := ""
	if opts.Profile != "" {
		p, err := config.Load(opts.Profile)
		if err != nil {
			return nil, err
		}
		if err := p.Apply(h.Cvars); err != nil {
			conlog.Printf("%v\n", err)
		}
		profileMap = p.Map
	}
	if opts.Dedicated && opts.MaxClients > 0 {
		h.Cvars.Set("maxclients", fmt.Sprint(opts.MaxClients))
	}

	if h.dedicated {
		if err := h.history.Load(h.fs.BaseDir()); err != nil {
			log.Warn().Str("ctx", "host").Err(err).Msg("history")
		}
		h.console = newConsoleReader()
	}

	conlog.Printf("====== goquake2 Initialized ======\n\n")
	log.Info().Str("ctx", "host").Bool("dedicated", h.dedicated).Str("server", h.Server.ID.String()).Msg("initialized")

	h.Cbuf.AddText(cl.Late())
	switch {
	case opts.Connect != "":
		h.Cbuf.AddText("connect " + opts.Connect + "\n")
	case profileMap != "" && !cl.HasLate("map"):
		h.Cbuf.AddText("map " + profileMap + "\n")
	case h.dedicated && !cl.HasLate("map"):
		h.Cbuf.AddText("dedicated_start\n")
	}
	return h, nil
}

// initNetwork creates the server, the client and the connections between
// them.
func (h *Host) initNetwork(opts Options) error {
	cliEnd, srvEnd := net.NewLoopback()
	srvConn := &net.Socket{}
	if !h.dedicated {
		srvConn.Loop = srvEnd
	}
	port := opts.Port
	if h.dedicated && port == 0 {
		port = DefaultPort
	}
	if !opts.Offline && port != 0 {
		u, err := net.ListenUDP(port)
		if err != nil {
			return errors.Wrap(err, "server socket")
		}
		srvConn.UDP = u
	}
	h.conns = append(h.conns, srvConn)

	h.Server = server.New(h.Cvars, h.Cbuf, srvConn, game.New(h.Cvars))
	if err := h.Server.Register(h.Commands); err != nil {
		return errors.Wrap(err, "server commands")
	}
	if h.dedicated {
		return nil
	}

	cliConn := &net.Socket{Loop: cliEnd}
	if !opts.Offline {
		u, err := net.ListenUDP(0)
		if err != nil {
			return errors.Wrap(err, "client socket")
		}
		cliConn.UDP = u
	}
	h.conns = append(h.conns, cliConn)

	h.Input = input.New(h.Cvars)
	if err := h.Input.Register(h.Commands); err != nil {
		return err
	}
	h.Bindings = input.NewBindings(h.Cbuf)
	if err := h.Bindings.Register(h.Commands); err != nil {
		return err
	}
	h.throttle = gametime.NewThrottle(h.Cvars)
	h.Client = client.New(h.Cvars, h.Cbuf, cliConn, h.Input, nil)
	if err := h.Client.Register(h.Commands); err != nil {
		return err
	}
	h.Client.SetLocalServer(h.Server)
	h.Client.SetWorld(game.World())
	h.Cbuf.SetCommandExecutors([]cbuf.Efunc{
		h.Commands.Execute(),
		h.Aliases.Execute(),
		h.Cvars.Execute(),
		h.Client.Forwarder(),
	})
	return nil
}

// setGameDir points the search path at the game cvar.
func (h *Host) setGameDir() {
	if err := h.fs.SetGameDir(h.cv.game.String()); err != nil {
		conlog.Printf("%v\n", err)
		h.Cvars.ForceSet("game", "")
		h.fs.SetGameDir("")
	}
	h.Cvars.ForceSet("gamedir", h.cv.game.String())
	h.cv.game.ClearModified()
}

// Realtime is the msec run since Init.
func (h *Host) Realtime() int { return h.realtime }

// Frame runs one tick of msec. A panic inside the tick aborts it, the
// process continues with the next one.
func (h *Host) Frame(msec int) {
	defer h.recoverFrame()

	msec = h.time.Msec(msec)
	h.realtime += msec
	h.consoleCommands()
	if err := h.Cbuf.Execute(); err != nil {
		conlog.Printf("%v\n", err)
	}
	if h.cv.game.Modified() {
		h.setGameDir()
		if !h.dedicated {
			h.Cbuf.AddText("exec " + configFile + "\n")
		}
	}

	h.Server.Frame(msec)
	if h.Client != nil {
		if cmsec, ok := h.throttle.Add(msec, h.Client.State() == client.Connected); ok {
			h.Client.Frame(cmsec)
		}
	}
}

// recoverFrame is the abort boundary of one tick. A client caused failure
// drops the client, anything else takes the server down.
func (h *Host) recoverFrame() {
	r := recover()
	if r == nil {
		return
	}
	if ce, ok := r.(server.ClientError); ok {
		log.Warn().Str("ctx", "host").Int("slot", ce.Slot).Interface("cause", ce.Cause).Msg("client dropped")
		conlog.Printf("%v\n", ce)
		h.Server.DropSlot(ce.Slot)
		return
	}

	msg := fmt.Sprint(r)
	if e, ok := r.(Error); ok {
		msg = e.Msg
	}
	log.Error().Str("ctx", "host").Str("error", msg).Msg("frame aborted")
	conlog.Printf("Error: %s\n", msg)
	h.Cbuf.Clear()
	if h.Server.Active() || h.Server.Initialized() {
		h.Server.Shutdown(fmt.Sprintf("Server crashed: %s\n", msg), false)
	}
	if h.Client != nil {
		h.Client.Disconnect()
	}
}

// Quit makes Run return after the current frame.
func (h *Host) Quit() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
}

// Run calls Frame with the elapsed real time until Quit is called or ctx
// is done. The host is shut down on return.
func (h *Host) Run(ctx context.Context) error {
	minWait := time.Duration(minFrameMsec) * time.Millisecond
	if h.dedicated {
		minWait = time.Duration(dedicatedFrameMsec) * time.Millisecond
	}
	oldtime := time.Now()
	for {
		select {
		case <-ctx.Done():
			return h.Shutdown()
		case <-h.quit:
			return h.Shutdown()
		default:
			time.Sleep(minWait - time.Since(oldtime))
			msec := int(time.Since(oldtime) / time.Millisecond)
			if msec < minFrameMsec {
				continue
			}
			// keep the remainder for the next frame
			oldtime = oldtime.Add(time.Duration(msec) * time.Millisecond)
			h.Frame(msec)
		}
	}
}

// Shutdown stops the server, disconnects the client and writes the state
// that survives a restart.
func (h *Host) Shutdown() error {
	var result error
	if h.Server.Initialized() {
		h.Server.Shutdown("Server quit\n", false)
	}
	if h.Client != nil {
		h.Client.Disconnect()
		if err := h.WriteConfiguration(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if h.dedicated {
		if err := h.history.Save(h.fs.BaseDir()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, c := range h.conns {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	log.Info().Str("ctx", "host").Msg("shut down")
	if result != nil {
		return multierror.Prefix(result, "Shutdown:")
	}
	return nil
}
