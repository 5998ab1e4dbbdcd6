package main

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/vfxecho/Aetlis/server/arena"
)

var (
	ErrTooManyWorlds = errors.New("world limit reached")
	ErrWorldNotFound = errors.New("world not found")
	ErrWorldFull     = errors.New("world is full")
	ErrNotInWorld    = errors.New("not in a world")
)

// Session is one running world
type Session struct {
	ID    string
	World *arena.World
}

// SessionManager owns the worlds of the process. It is not safe for
// concurrent use; Game serializes every call.
type SessionManager struct {
	sessions map[string]*Session
	order    []*Session
	settings arena.Settings
	seed     int64
	created  int64
	lastPID  arena.PlayerID

	// newGamemode picks the rules for a new world
	newGamemode func() arena.Gamemode
}

// NewSessionManager creates a manager that builds worlds from settings
func NewSessionManager(settings arena.Settings, seed int64) *SessionManager {
	settings.Sanitize(Log)
	return &SessionManager{
		sessions:    make(map[string]*Session),
		settings:    settings,
		seed:        seed,
		newGamemode: func() arena.Gamemode { return arena.FFA{} },
	}
}

// WorldCount implements arena.Host
func (sm *SessionManager) WorldCount() int { return len(sm.order) }

// NextPlayerID implements arena.Host. Ids are unique across all worlds.
func (sm *SessionManager) NextPlayerID() arena.PlayerID {
	sm.lastPID++
	if sm.lastPID == 0 {
		sm.lastPID++
	}
	return sm.lastPID
}

// Settings returns the snapshot new worlds are built with
func (sm *SessionManager) Settings() arena.Settings { return sm.settings }

// SetSettings replaces the snapshot for worlds created later
func (sm *SessionManager) SetSettings(s arena.Settings) {
	s.Sanitize(Log)
	sm.settings = s
}

// Create builds a new world
func (sm *SessionManager) Create() (*Session, error) {
	if len(sm.order) >= sm.settings.WorldMaxCount {
		return nil, ErrTooManyWorlds
	}
	sm.created++
	ctx := arena.NewContext(sm.settings, sm.seed+sm.created, Log.Named("world"))
	id := uuid.NewString()
	sess := &Session{
		ID:    id,
		World: arena.NewWorld(id, ctx, sm.newGamemode(), sm),
	}
	sm.sessions[id] = sess
	sm.order = append(sm.order, sess)
	Log.Infow("world created", "world", id, "worlds", len(sm.order))
	return sess, nil
}

// Get returns a world by id
func (sm *SessionManager) Get(id string) *Session {
	return sm.sessions[id]
}

// Remove drops a world. The caller must have detached its players.
func (sm *SessionManager) Remove(id string) {
	if _, ok := sm.sessions[id]; !ok {
		return
	}
	delete(sm.sessions, id)
	for i, s := range sm.order {
		if s.ID == id {
			sm.order = append(sm.order[:i], sm.order[i+1:]...)
			break
		}
	}
	Log.Infow("world removed", "world", id, "worlds", len(sm.order))
}

// All returns the worlds in creation order
func (sm *SessionManager) All() []*Session {
	return sm.order
}

// Match finds a world for a new player: the busiest one with room left, or
// a new one if all are full
func (sm *SessionManager) Match() (*Session, error) {
	var best *Session
	bestCount := -1
	for _, s := range sm.order {
		n := externalCount(s.World)
		if n >= s.World.Settings().WorldMaxPlayers {
			continue
		}
		if n > bestCount {
			best, bestCount = s, n
		}
	}
	if best != nil {
		return best, nil
	}
	return sm.Create()
}

// List returns info about all worlds, busiest first
func (sm *SessionManager) List() []WorldInfo {
	list := make([]WorldInfo, 0, len(sm.order))
	for _, s := range sm.order {
		list = append(list, worldInfo(s, false))
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Stats.External > list[j].Stats.External
	})
	return list
}

func worldInfo(s *Session, withBoard bool) WorldInfo {
	info := WorldInfo{
		ID:     s.ID,
		Tick:   s.World.Tick(),
		Cells:  len(s.World.Cells()),
		Stats:  s.World.Stats(),
		Timing: s.World.Timing(),
	}
	if withBoard {
		info.Leaderboard = s.World.Leaderboard()
	}
	return info
}

// externalCount counts connection-driven players right now, unlike the
// stats which lag one tick
func externalCount(w *arena.World) int {
	n := 0
	for _, p := range w.Players() {
		if p.IsExternal() {
			n++
		}
	}
	return n
}
