package arena

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/vfxecho/Aetlis/server/quadtree"
)

// Host is what a world needs to know about the process that runs it
type Host interface {
	WorldCount() int
	NextPlayerID() PlayerID
}

// World is one arena. Every method must be called from the goroutine that
// drives its ticks, or between ticks while that goroutine is parked.
type World struct {
	ID string

	ctx      *Context
	settings *Settings
	gamemode Gamemode
	host     Host

	border quadtree.Rect
	finder *quadtree.Tree[*Cell]

	slots []*Cell
	gens  []uint32
	free  []uint32

	cells       []*Cell
	playerCells []*Cell
	boosting    []*Cell
	truck       []*Cell

	players       []*Player
	playerIndex   map[PlayerID]*Player
	largestPlayer *Player
	evicted       []*Player
	lastPlayerID  PlayerID

	tick      uint64
	Frozen    bool
	startTime time.Time

	pelletCount int
	virusCount  int
	motherCount int
	ejectCount  int

	stats       WorldStats
	timing      TimingMatrix
	leaderboard []LeaderboardEntry

	toBeRemoved   bool
	shouldRestart bool
	sweepPending  bool
}

// NewWorld builds an empty world. gm defaults to FFA, host may be nil.
func NewWorld(id string, ctx *Context, gm Gamemode, host Host) *World {
	if gm == nil {
		gm = FFA{}
	}
	w := &World{
		ID:          id,
		ctx:         ctx,
		settings:    &ctx.Settings,
		gamemode:    gm,
		host:        host,
		playerIndex: make(map[PlayerID]*Player),
		startTime:   time.Now(),
	}
	s := w.settings
	w.SetBorder(quadtree.Rect{X: s.WorldMapX, Y: s.WorldMapY, W: s.WorldMapW, H: s.WorldMapH})
	return w
}

// Settings returns the world's constants snapshot
func (w *World) Settings() *Settings { return w.settings }

// Gamemode returns the world's rule policy
func (w *World) Gamemode() Gamemode { return w.gamemode }

// Tick returns the number of completed updates
func (w *World) Tick() uint64 { return w.tick }

// Border returns the world rectangle as centre and half extents
func (w *World) Border() quadtree.Rect { return w.border }

// Cells returns the live cells. The slice is reused across ticks.
func (w *World) Cells() []*Cell { return w.cells }

// Players returns the roster
func (w *World) Players() []*Player { return w.players }

// Player looks up a player by id
func (w *World) Player(id PlayerID) *Player { return w.playerIndex[id] }

// LargestPlayer returns the player with the highest score, if any
func (w *World) LargestPlayer() *Player { return w.largestPlayer }

// Counts returns pellet, virus, mother cell and eject counters
func (w *World) Counts() (pellets, viruses, mothers, ejects int) {
	return w.pelletCount, w.virusCount, w.motherCount, w.ejectCount
}

// ToBeRemoved reports that the world asks its manager to destroy it
func (w *World) ToBeRemoved() bool { return w.toBeRemoved }

// MarkForRemoval flags the world for destruction by its manager
func (w *World) MarkForRemoval() { w.toBeRemoved = true }

// ShouldRestart reports that the world asks its manager to restart it
func (w *World) ShouldRestart() bool { return w.shouldRestart }

// Cell resolves an id. Cells removed but not yet collected still resolve;
// ids of collected cells never do.
func (w *World) Cell(id CellID) *Cell {
	slot := id.slot()
	if int(slot) >= len(w.slots) {
		return nil
	}
	c := w.slots[slot]
	if c == nil || c.ID != id {
		return nil
	}
	return c
}

func (w *World) allocID(c *Cell) {
	var slot uint32
	if n := len(w.free); n > 0 {
		slot = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		slot = uint32(len(w.slots))
		w.slots = append(w.slots, nil)
		w.gens = append(w.gens, 1)
	}
	w.slots[slot] = c
	c.ID = makeCellID(slot, w.gens[slot])
}

func (w *World) freeSlot(c *Cell) {
	slot := c.ID.slot()
	if int(slot) >= len(w.slots) || w.slots[slot] != c {
		return
	}
	w.slots[slot] = nil
	w.gens[slot]++
	if w.gens[slot] == 0 {
		w.gens[slot] = 1
	}
	w.free = append(w.free, slot)
}

// AddCell assigns an id and makes c live
func (w *World) AddCell(c *Cell) {
	if c.exists {
		return
	}
	w.allocID(c)
	c.exists = true
	c.BirthTick = w.tick
	c.item.Value = c
	c.item.Range = c.Range()
	w.cells = append(w.cells, c)
	w.finder.Insert(&c.item)
	w.onSpawned(c)
	w.gamemode.OnNewCell(w, c)
}

// RemoveCell retires c. It stays resolvable until the grace delay passes.
func (w *World) RemoveCell(c *Cell) {
	if !c.exists {
		return
	}
	c.exists = false
	c.deadTick = w.tick
	w.truck = append(w.truck, c)
	w.sweepPending = true
	w.gamemode.OnCellRemove(w, c)
	w.onRemoved(c)
	w.finder.Remove(&c.item)
}

// UpdateCell reindexes c after its position or size changed
func (w *World) UpdateCell(c *Cell) {
	c.item.Range = c.Range()
	if c.exists {
		w.finder.Update(&c.item)
	}
}

// SetCellAsBoosting makes the boost stage integrate c until its boost runs out
func (w *World) SetCellAsBoosting(c *Cell) {
	if c.boosting || !c.exists {
		return
	}
	c.boosting = true
	w.boosting = append(w.boosting, c)
}

// ClearTruck frees retired cells whose grace delay has passed
func (w *World) ClearTruck() int {
	delay := uint64(w.settings.WorldCellDisposeDelay)
	n := 0
	for n < len(w.truck) {
		c := w.truck[n]
		if w.tick-c.deadTick <= delay {
			break
		}
		w.freeSlot(c)
		n++
	}
	if n > 0 {
		rest := copy(w.truck, w.truck[n:])
		clear(w.truck[rest:])
		w.truck = w.truck[:rest]
	}
	return n
}

// TruckLen returns the number of retired cells awaiting collection
func (w *World) TruckLen() int { return len(w.truck) }

// SetBorder resizes the world, rebuilds the index and drops non-player cells
// that no longer fit
func (w *World) SetBorder(r quadtree.Rect) {
	w.border = r
	s := w.settings
	if w.finder == nil {
		w.finder = quadtree.New[*Cell](r, s.WorldFinderMaxLevel, s.WorldFinderMaxItems, s.WorldFinderMaxSearch)
	} else {
		w.finder.Reset(r)
	}
	for _, c := range w.cells {
		if !c.exists {
			continue
		}
		c.item.Range = c.Range()
		w.finder.Insert(&c.item)
	}
	for _, c := range w.cells {
		if c.exists && c.Kind != KindPlayer && !r.Contains(c.item.Range) {
			w.RemoveCell(c)
		}
	}
	w.sweep()
}

// Restart drops every cell, sets every player dead and clears counters.
// Dropped cells go through the dispose queue like any other removal.
func (w *World) Restart() {
	w.ctx.Log.Infow("world restarting", "world", w.ID, "tick", w.tick)
	for _, c := range w.cells {
		if !c.exists {
			continue
		}
		c.exists = false
		c.boosting = false
		c.deadTick = w.tick
		w.truck = append(w.truck, c)
	}
	clear(w.cells)
	w.cells = w.cells[:0]
	w.playerCells = nil
	w.boosting = nil

	for _, p := range w.players {
		p.OwnedCells = nil
		p.updateState(w, StateDead)
	}
	w.pelletCount, w.virusCount, w.motherCount, w.ejectCount = 0, 0, 0, 0
	w.largestPlayer = nil
	w.leaderboard = w.gamemode.CompileLeaderboard(w)
	w.SetBorder(w.border)
	w.shouldRestart = false
}

// Reload swaps the settings snapshot
func (w *World) Reload(s Settings) {
	s.Sanitize(w.ctx.Log)
	w.ctx.Settings = s
	w.ctx.TickDelay = time.Second / time.Duration(s.ServerFrequency)
}

func (w *World) sweep() {
	live := w.cells[:0]
	for _, c := range w.cells {
		if c.exists {
			live = append(live, c)
		}
	}
	clear(w.cells[len(live):])
	w.cells = live

	pcs := w.playerCells[:0]
	for _, c := range w.playerCells {
		if c.exists {
			pcs = append(pcs, c)
		}
	}
	clear(w.playerCells[len(pcs):])
	w.playerCells = pcs
	w.sweepPending = false
}

func (w *World) randomPos(size float64) (float64, float64) {
	b := w.border
	axis := func(centre, half float64) float64 {
		span := 2*half - 2*size
		if span <= 0 {
			return centre
		}
		return centre - half + size + w.ctx.Rand.Float64()*span
	}
	x := axis(b.X, b.W)
	y := axis(b.Y, b.H)
	return x, y
}

func (w *World) isSafeSpawnPos(r quadtree.Rect) bool {
	return !w.finder.ContainsAny(r, func(it *quadtree.Item[*Cell]) bool {
		return it.Value.AvoidWhenSpawning()
	})
}

// safeSpawnPos tries random positions until one does not overlap an
// avoid-when-spawning cell. The probe box starts 20% larger than size and
// shrinks slightly on every failure.
func (w *World) safeSpawnPos(size float64) (x, y, s float64, ok bool) {
	probe := size * 1.2
	for i := 0; i < w.settings.WorldSafeSpawnTries; i++ {
		x, y = w.randomPos(probe)
		if w.isSafeSpawnPos(quadtree.Rect{X: x, Y: y, W: probe, H: probe}) {
			return x, y, probe / 1.2, true
		}
		probe *= 0.998
	}
	x, y = w.randomPos(probe)
	return x, y, probe / 1.2, false
}

// GetPlayerSpawn picks a safe random position for a new player cell. The
// returned size may be slightly smaller than requested.
func (w *World) GetPlayerSpawn(size float64) (x, y, s float64, ok bool) {
	return w.safeSpawnPos(size)
}

// GetPlayerSpawnNearPoint tries positions within the near-death radius of
// (px, py) first, then falls back to GetPlayerSpawn
func (w *World) GetPlayerSpawnNearPoint(px, py, size float64) (x, y, s float64, ok bool) {
	b := w.border
	radius := w.settings.WorldRespawnNearDeathRadius
	probe := size * 1.2
	for i := 0; i < w.settings.WorldSafeSpawnTries; i++ {
		x = px + w.ctx.Rand.Float64()*2*radius - radius
		y = py + w.ctx.Rand.Float64()*2*radius - radius
		x = math.Max(b.X-b.W+probe/2, math.Min(x, b.X+b.W-probe/2))
		y = math.Max(b.Y-b.H+probe/2, math.Min(y, b.Y+b.H-probe/2))
		if w.isSafeSpawnPos(quadtree.Rect{X: x, Y: y, W: probe, H: probe}) {
			return x, y, probe / 1.2, true
		}
		probe *= 0.998
	}
	return w.GetPlayerSpawn(size)
}

// SpawnPlayer gives p its first cell at (x, y)
func (w *World) SpawnPlayer(p *Player, x, y, size float64) {
	p.resetLinelock()
	w.AddCell(w.newPlayerCell(p, x, y, size))
	p.JoinTick = w.tick
	p.updateState(w, StateAlive)
	p.spawnCooldownEnd = w.tick + max(w.ctx.ticksFor(time.Second), 1)
	p.Router.notifySpawned(p)
}

// KillPlayer takes every cell away from p. Instant kills remove the cells,
// otherwise they stay in the world without an owner.
func (w *World) KillPlayer(p *Player, instant bool) {
	if p.State != StateAlive {
		return
	}
	cells := p.OwnedCells
	p.OwnedCells = nil
	for _, c := range cells {
		c.OwnerID = 0
		if instant {
			w.RemoveCell(c)
		} else {
			c.dirty |= dirtyPos | dirtyColor | dirtyName | dirtySkin
		}
	}
	p.updateState(w, StateDead)
}

func (w *World) handleOversize(owner, dual *Player, total float64) {
	if w.settings.KillOversize {
		w.ctx.Log.Infow("player died from extreme obesity", "world", w.ID, "player", owner.ID, "mass", int(total))
		w.KillPlayer(owner, true)
		if dual != nil {
			w.KillPlayer(dual, true)
		}
		return
	}
	if !w.shouldRestart {
		w.ctx.Log.Warnw("player outgrew the world, restart scheduled", "world", w.ID, "player", owner.ID, "mass", int(total))
	}
	w.shouldRestart = true
}

func (w *World) nextPlayerID() PlayerID {
	if w.host != nil {
		return w.host.NextPlayerID()
	}
	w.lastPlayerID++
	return w.lastPlayerID
}

// AddPlayer creates a player driven by r and puts it in the world
func (w *World) AddPlayer(r *Router) *Player {
	p := newPlayer(w.nextPlayerID(), r, w.settings)
	w.addPlayer(p)
	return p
}

func (w *World) addPlayer(p *Player) {
	p.world = w
	p.View.X, p.View.Y = w.border.X, w.border.Y
	w.players = append(w.players, p)
	w.playerIndex[p.ID] = p
	w.gamemode.OnPlayerJoinWorld(w, p)
	w.ctx.Log.Debugw("player added to world", "world", w.ID, "player", p.ID, "type", p.Type)
}

// RemovePlayer takes p out of the world, removing its cells. It does not
// count as a death.
func (w *World) RemovePlayer(p *Player) {
	if p.world != w {
		return
	}
	w.detachPlayer(p)
	for i, o := range w.players {
		if o == p {
			w.players = append(w.players[:i], w.players[i+1:]...)
			break
		}
	}
}

func (w *World) detachPlayer(p *Player) {
	w.gamemode.OnPlayerLeaveWorld(w, p)
	cells := p.OwnedCells
	p.OwnedCells = nil
	for _, c := range cells {
		c.OwnerID = 0
		w.RemoveCell(c)
	}
	p.State = StateDead
	if p.owner != nil && p.owner.dual == p {
		p.owner.dual = nil
		p.owner.dualActive = false
	}
	if w.largestPlayer == p {
		w.largestPlayer = nil
	}
	delete(w.playerIndex, p.ID)
	p.world = nil
	w.ctx.Log.Debugw("player removed from world", "world", w.ID, "player", p.ID)
}

func (w *World) evict(p *Player) {
	w.detachPlayer(p)
	w.evicted = append(w.evicted, p)
}

// DrainEvicted returns players the world dropped on its own (disconnect
// timeout, orphaned duals) since the last call
func (w *World) DrainEvicted() []*Player {
	out := w.evicted
	w.evicted = nil
	return out
}

func (w *World) onPlayerDied(p *Player) {
	p.Router.notifyDead(p)
	if p.Type == PlayerDualMinion && p.owner != nil && p.owner.dual == p {
		p.owner.dual = nil
		p.owner.dualActive = false
	}
}

func (w *World) createDual(p *Player) {
	if p.Type != PlayerRegular || p.dual != nil {
		return
	}
	r := NewRouter(RouterMinion, nil)
	d := newPlayer(w.nextPlayerID(), r, w.settings)
	d.Type = PlayerDualMinion
	d.owner = p
	d.CellName = p.CellName + " (Dual)"
	d.ChatName = p.ChatName + " (Dual)"
	d.Color = p.Color
	d.Skin = p.Skin
	d.mouseX, d.mouseY = p.mouseX, p.mouseY
	r.SetPointer(p.mouseX, p.mouseY)
	p.dual = d
	w.addPlayer(d)
	w.ctx.Log.Infow("dual player created", "world", w.ID, "player", p.ID, "dual", d.ID)
}

func (w *World) toggleDual(p *Player) {
	if p.Type != PlayerRegular || p.dual == nil {
		p.dualActive = false
		return
	}
	p.dualActive = !p.dualActive
	d := p.dual
	if !p.dualActive || d.State == StateAlive {
		return
	}
	x, y, size, ok := w.GetPlayerSpawnNearPoint(p.View.X, p.View.Y, w.settings.PlayerSpawnSize)
	if !ok {
		p.dualActive = false
		return
	}
	d.CellName, d.Skin, d.Color = p.CellName+" (Dual)", p.Skin, p.Color
	w.SpawnPlayer(d, x, y, size)
}

func (w *World) trimName(name string) string {
	limit := w.settings.PlayerMaxNameLength
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	r := []rune(name)
	return string(r[:limit])
}
