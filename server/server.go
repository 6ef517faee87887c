// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/cbuf"
	"goquake2/conlog"
	"goquake2/cvar"
	"goquake2/net"
	"goquake2/protocol"
	svc "goquake2/protocol/server"
	"goquake2/qmsg"
	"goquake2/rand"
)

type ServerState int

const (
	StateDead      ServerState = iota // no map loaded
	StateLoading                      // spawning level edicts
	StateGame                         // actively running
	StateCinematic                    // playing a cinematic, no game runs
	StatePic                          // showing a picture, no game runs
)

// frameMsec is the length of one server frame.
const frameMsec = 100

// commandMsecBudget is the amount of movement a client may use every 16
// frames.
const commandMsecBudget = 1800

type serverCvars struct {
	maxClients     *cvar.Cvar
	timeout        *cvar.Cvar
	zombieTime     *cvar.Cvar
	enforceTime    *cvar.Cvar
	paused         *cvar.Cvar
	rconPassword   *cvar.Cvar
	hostname       *cvar.Cvar
	showClamp      *cvar.Cvar
	reconnectLimit *cvar.Cvar
	airAccelerate  *cvar.Cvar
	dedicated      *cvar.Cvar
	deathmatch     *cvar.Cvar
	coop           *cvar.Cvar
	gameDir        *cvar.Cvar
}

// Server owns the client slots and the running level. It is driven by
// Frame from a single goroutine.
type Server struct {
	// ID identifies this server process in log lines.
	ID uuid.UUID

	cvars *cvar.Registry
	cbuf  *cbuf.CommandBuffer
	conn  net.PacketConn
	game  Game
	cv    serverCvars
	rand  rand.Generator

	// persistent across levels
	initialized bool
	realtime    int // always increasing, no clamping, etc
	spawnCount  int // incremented each server start, used to check late spawns
	clients     []*Client
	challenges  challenges

	// circular store of entities sent in client frames
	clientEntities     []svc.EntityState
	nextClientEntities int

	// per level
	state         ServerState
	attractLoop   bool // running cinematics and demos for the local system only
	name          string
	frameNum      int
	time          int
	configStrings [protocol.MaxConfigStrings]string
	baselines     [protocol.MaxEdicts]svc.EntityState
}

// New creates a server on top of the shared registries. No level is loaded
// until the first map command.
func New(cvars *cvar.Registry, cb *cbuf.CommandBuffer, conn net.PacketConn, game Game) *Server {
	seed := uint32(time.Now().UnixNano())
	s := &Server{
		ID:    uuid.New(),
		cvars: cvars,
		cbuf:  cb,
		conn:  conn,
		game:  game,
		rand:  rand.New(seed),
	}
	s.challenges.rand = rand.New(seed ^ 0x5bd1e995)
	s.cv = serverCvars{
		maxClients:     cvars.MustGet("maxclients", "1", cvar.SERVERINFO|cvar.LATCH),
		timeout:        cvars.MustGet("timeout", "125", cvar.NONE),
		zombieTime:     cvars.MustGet("zombietime", "2", cvar.NONE),
		enforceTime:    cvars.MustGet("sv_enforcetime", "0", cvar.NONE),
		paused:         cvars.MustGet("paused", "0", cvar.NONE),
		rconPassword:   cvars.MustGet("rcon_password", "", cvar.NONE),
		hostname:       cvars.MustGet("hostname", "noname", cvar.SERVERINFO|cvar.ARCHIVE),
		showClamp:      cvars.MustGet("showclamp", "0", cvar.NONE),
		reconnectLimit: cvars.MustGet("sv_reconnect_limit", "3", cvar.ARCHIVE),
		airAccelerate:  cvars.MustGet("sv_airaccelerate", "0", cvar.LATCH),
		dedicated:      cvars.MustGet("dedicated", "0", cvar.NOSET),
		deathmatch:     cvars.MustGet("deathmatch", "0", cvar.SERVERINFO|cvar.LATCH),
		coop:           cvars.MustGet("coop", "0", cvar.SERVERINFO|cvar.LATCH),
		gameDir:        cvars.MustGet("gamedir", "", cvar.SERVERINFO|cvar.NOSET),
	}
	cvars.MustGet("protocol", strconv.Itoa(protocol.Version), cvar.SERVERINFO|cvar.NOSET)
	cvars.MustGet("nextserver", "", cvar.NONE)
	cvars.SetServerActive(s.Active)
	return s
}

// Active reports whether a level is loaded.
func (s *Server) Active() bool {
	return s.state != StateDead
}

func (s *Server) State() ServerState { return s.state }
func (s *Server) Initialized() bool  { return s.initialized }
func (s *Server) MapName() string    { return s.name }
func (s *Server) FrameNum() int      { return s.frameNum }
func (s *Server) Realtime() int      { return s.realtime }
func (s *Server) SpawnCount() int    { return s.spawnCount }
func (s *Server) Clients() []*Client { return s.clients }

// Frame advances the server by msec of real time. At most one game frame is
// run per call.
func (s *Server) Frame(msec int) {
	if !s.initialized {
		return
	}
	s.realtime += msec

	// check timeouts
	s.checkTimeouts()

	// get packets from clients
	s.readPackets()

	// move autonomous things around if enough time has passed
	if s.realtime < s.time {
		// never let the time get too far off
		if s.time-s.realtime > frameMsec {
			if s.cv.showClamp.Bool() {
				conlog.Printf("sv lowclamp\n")
			}
			s.realtime = s.time - frameMsec
		}
		return
	}

	// update ping based on the last known frame from all clients
	s.calcPings()

	// give the clients some timeslices
	s.giveMsec()

	// let everything in the world think and move
	s.runGameFrame()

	// send messages back to the clients that had packets read this frame
	s.SendClientMessages()

	// clear teleport flags, etc for next frame
	s.prepWorldFrame()
}

// checkTimeouts drops clients that have not sent a packet in timeout
// seconds and frees zombies after zombietime seconds.
func (s *Server) checkTimeouts() {
	droppoint := s.realtime - int(1000*s.cv.timeout.Value())
	zombiepoint := s.realtime - int(1000*s.cv.zombieTime.Value())

	for _, c := range s.clients {
		// message times may be wrong across a changelevel
		if c.lastMessage > s.realtime {
			c.lastMessage = s.realtime
		}

		if c.state == Zombie && c.lastMessage < zombiepoint {
			c.state = Free // can now be reused
			continue
		}
		if (c.state == Connected || c.state == Spawned) && c.lastMessage < droppoint {
			s.BroadcastPrintf(protocol.PrintHigh, "%s timed out\n", c.name)
			s.DropClient(c)
			c.state = Free // don't bother with zombie state
		}
	}
}

// readPackets dispatches all waiting packets.
func (s *Server) readPackets() {
	for {
		p, ok := s.conn.Poll()
		if !ok {
			return
		}
		// check for connectionless packet first
		if net.IsOutOfBand(p.Data) {
			s.connectionless(p)
			continue
		}

		// read the qport out of the message so we can fix up
		// stupid address translating routers
		qport, ok := net.PeekQPort(p.Data)
		if !ok {
			continue
		}

		// check for packets from connected clients
		for _, c := range s.clients {
			if c.state == Free {
				continue
			}
			if !c.netchan.Remote.SameBase(p.From) || c.netchan.QPort != qport {
				continue
			}
			if c.netchan.Remote.Port() != p.From.Port() {
				conlog.Printf("SV_ReadPackets: fixing up a translated port\n")
				c.netchan.Remote = p.From
			}
			if r, ok := c.netchan.Process(p.Data, s.realtime); ok {
				// this is a valid, sequenced packet, so process it
				if c.state != Zombie {
					c.lastMessage = s.realtime // don't timeout
					s.processClientMessage(c, r)
				}
			}
			break
		}
	}
}

// processClientMessage tags a failure while parsing with the client so the
// frame boundary can drop it.
func (s *Server) processClientMessage(c *Client, r *qmsg.Reader) {
	defer func() {
		if err := recover(); err != nil {
			if _, ok := err.(ClientError); ok {
				panic(err)
			}
			panic(ClientError{Slot: c.slot, Cause: err})
		}
	}()
	s.executeClientMessage(c, r)
}

// DropSlot drops the client in slot, if any.
func (s *Server) DropSlot(slot int) {
	if c := s.client(slot); c != nil && c.state >= Connected {
		s.DropClient(c)
	}
}

// calcPings updates the ping of every spawned client from the latency of
// the frames it acknowledged.
func (s *Server) calcPings() {
	for _, c := range s.clients {
		if c.state != Spawned {
			continue
		}
		total, count := 0, 0
		for _, l := range c.frameLatency {
			if l > 0 {
				count++
				total += l
			}
		}
		if count == 0 {
			c.ping = 0
		} else {
			c.ping = total / count
		}
	}
}

// giveMsec refills the movement budget of every client every 16 frames.
// A client that sends more movement than that is cheating with time.
func (s *Server) giveMsec() {
	if s.frameNum&15 != 0 {
		return
	}
	for _, c := range s.clients {
		if c.state == Free {
			continue
		}
		c.commandMsec = commandMsecBudget // 1600 + some slop
	}
}

func (s *Server) runGameFrame() {
	// we always need to bump framenum, even if we don't run the world,
	// otherwise the delta compression can get confused when a client has
	// the "current" frame
	s.frameNum++
	s.time = s.frameNum * frameMsec

	// don't run if paused
	if !s.cv.paused.Bool() || s.cv.maxClients.Int() > 1 {
		s.game.RunFrame()

		// never get more than one tic behind
		if s.time < s.realtime {
			if s.cv.showClamp.Bool() {
				conlog.Printf("sv highclamp\n")
			}
			s.realtime = s.time
		}
	}
}

// prepWorldFrame clears the one frame events of all entities.
func (s *Server) prepWorldFrame() {
	for _, e := range s.game.Entities() {
		if e != nil {
			e.Event = 0
		}
	}
}

// Map changes the level. A '+' in level names the level that follows,
// a '$' names the spawn point. Levels ending in ".cin" or ".pcx" run no
// game.
func (s *Server) Map(level string, attractLoop bool) {
	if s.state == StateDead {
		s.InitGame() // the game is just starting
	}

	// if there is a + in the map, set nextserver to the remainder
	if i := strings.IndexByte(level, '+'); i >= 0 {
		s.cvars.Set("nextserver", "gamemap \""+level[i+1:]+"\"")
		level = level[:i]
	} else {
		s.cvars.Set("nextserver", "")
	}

	// special hack for end game screen in coop mode
	if s.cv.coop.Bool() && level == "victory.pcx" {
		s.cvars.Set("nextserver", "gamemap \"*base1\"")
	}

	// if there is a $, use the remainder as a spawnpoint
	spawnPoint := ""
	if i := strings.IndexByte(level, '$'); i >= 0 {
		spawnPoint = level[i+1:]
		level = level[:i]
	}

	// skip the end-of-unit flag if necessary
	level = strings.TrimPrefix(level, "*")

	switch {
	case strings.HasSuffix(level, ".cin"):
		s.BroadcastCommand("changing\n")
		s.spawnServer(level, spawnPoint, StateCinematic, attractLoop)
	case strings.HasSuffix(level, ".pcx"):
		s.BroadcastCommand("changing\n")
		s.spawnServer(level, spawnPoint, StatePic, attractLoop)
	default:
		s.BroadcastCommand("changing\n")
		s.SendClientMessages()
		s.spawnServer(level, spawnPoint, StateGame, attractLoop)
		s.cbuf.CopyToDefer()
	}

	s.BroadcastCommand("reconnect\n")
}

// spawnServer changes the server to a new map, taking all connected
// clients along with it.
func (s *Server) spawnServer(name, spawnPoint string, state ServerState, attractLoop bool) {
	if attractLoop {
		s.cvars.Set("paused", "0")
	}

	conlog.Printf("------- Server Initialization -------\n")
	conlog.DPrintf("SpawnServer: %s\n", name)

	s.spawnCount++ // any partially connected client will be restarted
	s.state = StateDead

	// wipe the entire per level structure
	s.attractLoop = attractLoop
	s.name = name
	s.frameNum = 0
	s.time = 0
	s.configStrings = [protocol.MaxConfigStrings]string{}
	s.baselines = [protocol.MaxEdicts]svc.EntityState{}
	s.realtime = 0

	s.configStrings[protocol.CsName] = name
	if s.cv.deathmatch.Bool() {
		s.configStrings[protocol.CsAirAccel] = s.cv.airAccelerate.String()
	} else {
		s.configStrings[protocol.CsAirAccel] = "0"
	}

	// leave slots at start for clients only
	for _, c := range s.clients {
		// needs to reconnect
		if c.state > Connected {
			c.state = Connected
		}
		c.lastFrame = -1
	}

	if state == StateGame {
		s.configStrings[protocol.CsModels+1] = "maps/" + name + ".bsp"
	}
	s.configStrings[protocol.CsMapChecksum] = "0"

	log.Info().Str("ctx", "server").Str("server", s.ID.String()).Str("map", name).
		Int("spawncount", s.spawnCount).Msg("spawning server")

	// spawn the rest of the entities on the map
	s.state = StateLoading

	if state == StateGame {
		// load and spawn all other entities
		s.game.SpawnEntities(name, spawnPoint)

		// run two frames to allow everything to settle
		for i := 0; i < 2; i++ {
			s.frameNum++
			s.game.RunFrame()
		}

		if s.configStrings[protocol.CsMapChecksum] != "0" {
			panic(errors.New("Game DLL corrupted server configstrings"))
		}
	}

	// all precaches are complete
	s.state = state

	// create a baseline for more efficient communications
	s.createBaselines()

	// set serverinfo variable
	s.cvars.FullSet("mapname", name, cvar.SERVERINFO|cvar.NOSET)

	conlog.Printf("-------------------------------------\n")
}

// InitGame is called when a new game is started, from the map command or
// after a server shutdown.
func (s *Server) InitGame() {
	if s.initialized {
		// cause any connected clients to reconnect
		s.Shutdown("Server restarted\n", true)
	}

	// get any latched variable changes (maxclients, etc)
	s.cvars.GetLatchedVars()

	s.initialized = true

	if s.cv.coop.Bool() && s.cv.deathmatch.Bool() {
		conlog.Printf("Deathmatch and Coop both set, disabling Coop\n")
		s.cvars.FullSet("coop", "0", cvar.SERVERINFO|cvar.LATCH)
	}

	// dedicated servers can't be single player and are usually DM
	// so unless they explicity set coop, force it to deathmatch
	if s.cv.dedicated.Bool() && !s.cv.coop.Bool() {
		s.cvars.FullSet("deathmatch", "1", cvar.SERVERINFO|cvar.LATCH)
	}

	// init clients
	mc := s.cv.maxClients.Int()
	switch {
	case s.cv.deathmatch.Bool():
		if mc <= 1 {
			s.cvars.FullSet("maxclients", "8", cvar.SERVERINFO|cvar.LATCH)
		} else if mc > protocol.MaxClients {
			s.cvars.FullSet("maxclients", strconv.Itoa(protocol.MaxClients), cvar.SERVERINFO|cvar.LATCH)
		}
	case s.cv.coop.Bool():
		if mc <= 1 || mc > 4 {
			s.cvars.FullSet("maxclients", "4", cvar.SERVERINFO|cvar.LATCH)
		}
	default: // non-deathmatch, non-coop is one player
		s.cvars.FullSet("maxclients", "1", cvar.SERVERINFO|cvar.LATCH)
	}
	mc = s.cv.maxClients.Int()

	s.spawnCount = s.rand.Intn(0x7fffffff)
	s.clients = make([]*Client, mc)
	for i := range s.clients {
		s.clients[i] = &Client{slot: i}
		s.clients[i].reset()
	}
	s.clientEntities = make([]svc.EntityState, mc*protocol.UpdateBackup*64)
	s.nextClientEntities = 0

	log.Info().Str("ctx", "server").Str("server", s.ID.String()).Int("maxclients", mc).Msg("game initialized")

	// init game
	s.game.Init(s)
}

// Shutdown is called when each game quits, before InitGame is called
// again. A final message is sent to all clients.
func (s *Server) Shutdown(finalMessage string, reconnect bool) {
	if s.clients != nil {
		s.finalMessage(finalMessage, reconnect)
	}
	if s.initialized {
		s.game.Shutdown()
	}
	log.Info().Str("ctx", "server").Str("server", s.ID.String()).Msg("server shut down")

	// free current level
	s.state = StateDead
	s.name = ""
	s.frameNum = 0
	s.time = 0
	s.configStrings = [protocol.MaxConfigStrings]string{}
	s.baselines = [protocol.MaxEdicts]svc.EntityState{}

	// free server static data
	s.initialized = false
	s.clients = nil
	s.clientEntities = nil
	s.nextClientEntities = 0
	s.challenges.slots = [protocol.MaxChallenges]challenge{}
}

// finalMessage is sent twice to every connected client. It is sent
// unreliable because nothing after it will be processed.
func (s *Server) finalMessage(message string, reconnect bool) {
	w := qmsg.NewWriter(protocol.MaxMsgLen)
	w.WriteByte(svc.Print)
	w.WriteByte(protocol.PrintHigh)
	w.WriteString(message)
	if reconnect {
		w.WriteByte(svc.Reconnect)
	} else {
		w.WriteByte(svc.Disconnect)
	}

	// stagger the packets to crutch operating system limited buffers
	for i := 0; i < 2; i++ {
		for _, c := range s.clients {
			if c.state >= Connected {
				if err := c.netchan.Transmit(w.Bytes(), s.realtime); err != nil {
					log.Debug().Str("ctx", "server").Err(err).Msg("final message")
				}
			}
		}
	}
}

func (s *Server) MaxClients() int { return len(s.clients) }
func (s *Server) Time() int       { return s.time }

// ConfigString changes a configstring. Outside of level loading the change
// is sent to all clients.
func (s *Server) ConfigString(index int, value string) {
	if index < 0 || index >= protocol.MaxConfigStrings {
		panic(errors.Errorf("configstring: bad index %d", index))
	}
	s.configStrings[index] = value

	if s.state != StateLoading {
		// send the update to everyone
		w := qmsg.NewWriter(protocol.MaxMsgLen)
		w.WriteByte(svc.ConfigString)
		w.WriteShort(index)
		w.WriteString(value)
		s.Multicast(w.Bytes(), true)
	}
}

// ConfigStringAt returns the configstring at index.
func (s *Server) ConfigStringAt(index int) string {
	return s.configStrings[index]
}

func (s *Server) findIndex(name string, start, count int) int {
	if name == "" {
		return 0
	}
	i := 1
	for ; i < count && s.configStrings[start+i] != ""; i++ {
		if s.configStrings[start+i] == name {
			return i
		}
	}
	if i == count {
		panic(errors.Errorf("*Index: overflow for %s", name))
	}
	s.ConfigString(start+i, name)
	return i
}

func (s *Server) ModelIndex(name string) int {
	return s.findIndex(name, protocol.CsModels, protocol.MaxModels)
}

func (s *Server) SoundIndex(name string) int {
	return s.findIndex(name, protocol.CsSounds, protocol.MaxSounds)
}

func (s *Server) ImageIndex(name string) int {
	return s.findIndex(name, protocol.CsImages, protocol.MaxImages)
}

// Multicast appends data to the clients. Unreliable data goes into the
// datagram of spawned clients, reliable data into the channel message of
// every connected one.
func (s *Server) Multicast(data []byte, reliable bool) {
	for _, c := range s.clients {
		if c.state == Free || c.state == Zombie {
			continue
		}
		if !reliable && c.state != Spawned {
			continue
		}
		if reliable {
			c.netchan.Message.Write(data)
		} else {
			c.datagram.Write(data)
		}
	}
}
