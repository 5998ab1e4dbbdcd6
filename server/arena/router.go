package arena

import "sync"

// RouterType tells who drives a player
type RouterType uint8

const (
	RouterNone RouterType = iota
	RouterPlayer
	RouterBot
	RouterMinion
)

const (
	maxQueuedSplits = 8
	maxQueuedEjects = 7
)

// RouterHooks receives notifications from the simulation. Calls happen on the
// tick goroutine and must not block.
type RouterHooks interface {
	OnDead(p *Player)
	OnSpawned(p *Player)
	OnVisibleCellsChanged(p *Player)
}

// Router is the intent surface of one player. Transport goroutines call the
// exported setters at any time; the world drains them once per tick.
type Router struct {
	Type  RouterType
	hooks RouterHooks

	mu                 sync.Mutex
	mouseX, mouseY     float64
	requestSpawning    bool
	spawnName          string
	spawnSkin          string
	requestingSpectate bool
	spectatePID        PlayerID
	pressingQ          bool
	hasPressedQ        bool
	ejectMacro         bool
	linelockToggle     bool
	dualCreate         bool
	dualToggle         bool
	splitAttempts      int
	ejectAttempts      int
	disconnected       bool

	ejectTick uint64
	player    *Player
}

// NewRouter creates a router. hooks may be nil.
func NewRouter(t RouterType, hooks RouterHooks) *Router {
	return &Router{Type: t, hooks: hooks}
}

func (r *Router) attach(p *Player) {
	r.mu.Lock()
	r.player = p
	r.mu.Unlock()
}

// Player returns the player this router drives
func (r *Router) Player() *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player
}

// SetPointer moves the target point
func (r *Router) SetPointer(x, y float64) {
	r.mu.Lock()
	r.mouseX, r.mouseY = x, y
	r.mu.Unlock()
}

// Pointer returns the current target point
func (r *Router) Pointer() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mouseX, r.mouseY
}

// RequestSpawn queues a spawn with the given name and skin
func (r *Router) RequestSpawn(name, skin string) {
	r.mu.Lock()
	r.requestSpawning = true
	r.spawnName, r.spawnSkin = name, skin
	r.mu.Unlock()
}

// RequestSplit queues one split attempt
func (r *Router) RequestSplit() {
	r.mu.Lock()
	if r.splitAttempts < maxQueuedSplits {
		r.splitAttempts++
	}
	r.mu.Unlock()
}

// RequestEject queues one eject attempt
func (r *Router) RequestEject() {
	r.mu.Lock()
	if r.ejectAttempts < maxQueuedEjects {
		r.ejectAttempts++
	}
	r.mu.Unlock()
}

// SetEjectMacro switches continuous ejecting on or off
func (r *Router) SetEjectMacro(on bool) {
	r.mu.Lock()
	r.ejectMacro = on
	r.mu.Unlock()
}

// RequestSpectate asks to watch pid; zero means the largest player
func (r *Router) RequestSpectate(pid PlayerID) {
	r.mu.Lock()
	r.requestingSpectate = true
	r.spectatePID = pid
	r.mu.Unlock()
}

// SetPressingQ reports the press-and-hold key state
func (r *Router) SetPressingQ(down bool) {
	r.mu.Lock()
	r.pressingQ = down
	r.mu.Unlock()
}

// TogglePressHold flips the press-and-hold key state
func (r *Router) TogglePressHold() {
	r.mu.Lock()
	r.pressingQ = !r.pressingQ
	r.mu.Unlock()
}

// ToggleLinelock queues a linelock toggle
func (r *Router) ToggleLinelock() {
	r.mu.Lock()
	r.linelockToggle = true
	r.mu.Unlock()
}

// RequestDualCreate asks for a dual minion
func (r *Router) RequestDualCreate() {
	r.mu.Lock()
	r.dualCreate = true
	r.mu.Unlock()
}

// ToggleDual switches control between the player and its dual
func (r *Router) ToggleDual() {
	r.mu.Lock()
	r.dualToggle = true
	r.mu.Unlock()
}

// Disconnect marks the router gone; the world evicts its player later
func (r *Router) Disconnect() {
	r.mu.Lock()
	r.disconnected = true
	r.mu.Unlock()
}

// Disconnected reports whether Disconnect was called
func (r *Router) Disconnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnected
}

// intents is one tick's worth of drained router state
type intents struct {
	splits      int
	eject       bool
	qEdge       bool
	spectate    bool
	spectatePID PlayerID
	spawn       bool
	spawnName   string
	spawnSkin   string
	linelock    bool
	dualCreate  bool
	dualToggle  bool
}

// take drains the router. Split attempts above limit stay queued; eject is
// only consumed when the eject delay allows it.
func (r *Router) take(limit int, canEject bool) intents {
	r.mu.Lock()
	defer r.mu.Unlock()

	var in intents
	in.splits = min(r.splitAttempts, limit)
	r.splitAttempts -= in.splits

	if canEject && (r.ejectAttempts > 0 || r.ejectMacro) {
		in.eject = true
		r.ejectAttempts = 0
	}

	if r.pressingQ {
		in.qEdge = !r.hasPressedQ
		r.hasPressedQ = true
	} else {
		r.hasPressedQ = false
	}

	if r.requestingSpectate {
		in.spectate, in.spectatePID = true, r.spectatePID
		r.requestingSpectate = false
	}
	if r.requestSpawning {
		in.spawn, in.spawnName, in.spawnSkin = true, r.spawnName, r.spawnSkin
		r.requestSpawning = false
	}
	in.linelock, r.linelockToggle = r.linelockToggle, false
	in.dualCreate, r.dualCreate = r.dualCreate, false
	in.dualToggle, r.dualToggle = r.dualToggle, false
	return in
}

// takeFrozen drains a router of a frozen world. Only the Q edge survives.
func (r *Router) takeFrozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.splitAttempts = 0
	r.ejectAttempts = 0
	r.requestingSpectate = false
	r.requestSpawning = false
	r.spawnName = ""
	edge := false
	if r.pressingQ {
		edge = !r.hasPressedQ
		r.hasPressedQ = true
	} else {
		r.hasPressedQ = false
	}
	return edge
}

// requeueSpawn retries a spawn that found no safe position
func (r *Router) requeueSpawn(name, skin string) {
	r.mu.Lock()
	if !r.requestSpawning {
		r.requestSpawning = true
		r.spawnName, r.spawnSkin = name, skin
	}
	r.mu.Unlock()
}

func (r *Router) notifyDead(p *Player) {
	if r.hooks != nil {
		r.hooks.OnDead(p)
	}
}

func (r *Router) notifySpawned(p *Player) {
	if r.hooks != nil {
		r.hooks.OnSpawned(p)
	}
}

func (r *Router) notifyVisibleCellsChanged(p *Player) {
	if r.hooks != nil {
		r.hooks.OnVisibleCellsChanged(p)
	}
}
