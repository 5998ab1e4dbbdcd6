package main

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/vfxecho/Aetlis/server/arena"
)

const leaderboardEvery = 10 // ticks between leaderboard pushes

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Viewer is a connection attached to a player. TakeFrame reports whether the
// world produced a new view for it since the last call.
type Viewer interface {
	Broadcaster
	arena.RouterHooks
	TakeFrame() bool
}

// Game drives every world from one goroutine. Worlds are touched only while
// mu is held.
type Game struct {
	mu        sync.Mutex
	sessions  *SessionManager
	viewers   map[arena.PlayerID]Viewer
	analytics *Analytics
	tickLog   *TickLogger
	logEvery  uint64
	tick      uint64
	delay     time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
	frameBuf  []*arena.Cell
}

// NewGame creates the tick driver. analytics and tickLog may be nil.
func NewGame(cfg Config, analytics *Analytics, tickLog *TickLogger) *Game {
	seed := cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sm := NewSessionManager(cfg.Arena, seed)
	logEvery := uint64(cfg.Server.TickLogEvery)
	if logEvery == 0 {
		logEvery = 1
	}
	return &Game{
		sessions:  sm,
		viewers:   make(map[arena.PlayerID]Viewer),
		analytics: analytics,
		tickLog:   tickLog,
		logEvery:  logEvery,
		delay:     time.Second / time.Duration(sm.Settings().ServerFrequency),
		stop:      make(chan struct{}),
	}
}

// Run starts the game loop
func (g *Game) Run() {
	g.mu.Lock()
	delay := g.delay
	g.mu.Unlock()

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Tick()
			g.mu.Lock()
			if g.delay != delay {
				delay = g.delay
				ticker.Reset(delay)
			}
			g.mu.Unlock()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop. It is safe to call more than once.
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

// Tick advances every world once, then services the results and sends
// frames
func (g *Game) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick++

	sessions := append([]*Session(nil), g.sessions.All()...)
	for _, s := range sessions {
		g.updateWorld(s)
	}
	players := 0
	for _, s := range sessions {
		w := s.World
		if w.ShouldRestart() {
			w.Restart()
		}
		if w.ToBeRemoved() {
			g.closeWorld(s)
			continue
		}
		for _, p := range w.DrainEvicted() {
			g.dropViewer(s.ID, p, "evicted")
		}
		w.ClearTruck()
		players += w.Stats().Playing + w.Stats().Spectating
		if g.tick%g.logEvery == 0 {
			g.tickLog.Record(s)
		}
	}
	g.analytics.SetLive(players, len(g.sessions.All()))
	g.sendFrames()
}

func (g *Game) updateWorld(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			Log.Errorw("world update panicked", "world", s.ID, "tick", s.World.Tick(), "panic", r, "stack", string(debug.Stack()))
			s.World.MarkForRemoval()
		}
	}()
	s.World.Update()
}

func (g *Game) closeWorld(s *Session) {
	w := s.World
	players := append([]*arena.Player(nil), w.Players()...)
	for _, p := range players {
		if v, ok := g.viewers[p.ID]; ok {
			v.SendJSON(Envelope{T: MsgWorldClosed, Data: map[string]string{"sid": s.ID}})
		}
		w.RemovePlayer(p)
		g.dropViewer(s.ID, p, "world closed")
	}
	w.DrainEvicted()
	w.ClearTruck()
	g.sessions.Remove(s.ID)
	g.analytics.Track(EvtWorldRemoved, 0, s.ID, map[string]interface{}{"tick": w.Tick()})
}

func (g *Game) dropViewer(worldID string, p *arena.Player, reason string) {
	if _, ok := g.viewers[p.ID]; !ok {
		return
	}
	delete(g.viewers, p.ID)
	Log.Debugw("player left world", "world", worldID, "player", p.ID, "reason", reason)
	g.analytics.Track(EvtPlayerLeave, 0, worldID, map[string]interface{}{"pid": p.ID, "reason": reason})
}

func (g *Game) sendFrames() {
	for _, s := range g.sessions.All() {
		w := s.World
		withBoard := w.Tick()%leaderboardEvery == 0
		for _, p := range w.Players() {
			v, ok := g.viewers[p.ID]
			if !ok || !v.TakeFrame() {
				continue
			}
			var f WorldFrame
			f, g.frameBuf = buildFrame(w, p, g.frameBuf, withBoard)
			data, err := encodeFrame(f)
			if err != nil {
				Log.Errorw("encode frame", "world", s.ID, "player", p.ID, "error", err)
				continue
			}
			v.SendBinary(data)
		}
	}
	clear(g.frameBuf)
}

// Join attaches v to a world. An empty id picks one by matchmaking.
func (g *Game) Join(v Viewer, worldID string) (*arena.Router, WelcomeMsg, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var s *Session
	if worldID == "" {
		var err error
		created := len(g.sessions.All())
		s, err = g.sessions.Match()
		if err != nil {
			return nil, WelcomeMsg{}, err
		}
		if len(g.sessions.All()) > created {
			g.analytics.Track(EvtWorldCreated, 0, s.ID, nil)
		}
	} else {
		s = g.sessions.Get(worldID)
		if s == nil {
			return nil, WelcomeMsg{}, ErrWorldNotFound
		}
		if externalCount(s.World) >= s.World.Settings().WorldMaxPlayers {
			return nil, WelcomeMsg{}, ErrWorldFull
		}
	}

	r := arena.NewRouter(arena.RouterPlayer, v)
	p := s.World.AddPlayer(r)
	g.viewers[p.ID] = v
	g.analytics.Track(EvtPlayerJoin, 0, s.ID, map[string]interface{}{"pid": p.ID})

	b := s.World.Border()
	return r, WelcomeMsg{
		PlayerID: uint32(p.ID),
		World:    worldInfo(s, false),
		Border:   [4]float64{b.X, b.Y, b.W, b.H},
	}, nil
}

// Leave takes r's player out of its world at once. Leaving while alive ends
// the current life.
func (g *Game) Leave(r *arena.Router) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := r.Player()
	if p == nil || p.World() == nil {
		return ErrNotInWorld
	}
	w := p.World()
	if v, ok := g.viewers[p.ID]; ok && p.State == arena.StateAlive {
		v.OnDead(p)
	}
	w.RemovePlayer(p)
	g.dropViewer(w.ID, p, "left")
	return nil
}

// Disconnect marks r's connection as gone. The world keeps the player until
// its dispose delay runs out.
func (g *Game) Disconnect(r *arena.Router) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r.Disconnect()
	if p := r.Player(); p != nil && p.World() != nil {
		g.dropViewer(p.World().ID, p, "disconnected")
	}
}

// Worlds lists the running worlds
func (g *Game) Worlds() []WorldInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions.List()
}

// World returns one world with its leaderboard
func (g *Game) World(id string) (WorldInfo, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.sessions.Get(id)
	if s == nil {
		return WorldInfo{}, false
	}
	return worldInfo(s, true), true
}

// ReloadSettings replaces the settings for new worlds. With live set, the
// running worlds reload too.
func (g *Game) ReloadSettings(s arena.Settings, live bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions.SetSettings(s)
	s = g.sessions.Settings()
	if live {
		for _, sess := range g.sessions.All() {
			sess.World.Reload(s)
		}
		g.delay = time.Second / time.Duration(s.ServerFrequency)
	}
	Log.Infow("settings reloaded", "live", live, "frequency", s.ServerFrequency)
}
