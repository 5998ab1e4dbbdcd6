package arena

import "sort"

// Update advances the world by one tick. Stages run strictly in order; only
// the broad phase runs in parallel.
func (w *World) Update() {
	sw := newStopwatch()
	w.tick++
	for _, c := range w.cells {
		c.dirty = 0
	}
	for _, p := range w.players {
		p.mouseX, p.mouseY = p.Router.Pointer()
		p.disconnected = p.Router.Disconnected()
	}

	if w.Frozen {
		w.frozenUpdate()
	} else {
		w.liveUpdate(&sw)
	}

	if w.sweepPending {
		w.sweep()
	}
	w.timing.Total = sw.total()
	w.timing.TotalCells = len(w.cells)
	w.compileStatistics()
	w.leaderboard = w.gamemode.CompileLeaderboard(w)

	if w.stats.External <= 0 && w.worldCount() > w.settings.WorldMinCount {
		w.toBeRemoved = true
	}
}

func (w *World) worldCount() int {
	if w.host == nil {
		return 1
	}
	return w.host.WorldCount()
}

// frozenUpdate keeps routers serviced without moving anything
func (w *World) frozenUpdate() {
	for _, p := range w.players {
		if p.Router.takeFrozen() {
			w.gamemode.OnPlayerPressQ(w, p)
		}
	}
}

func (w *World) liveUpdate(sw *stopwatch) {
	s := w.settings

	w.gamemode.OnWorldTick(w)
	for _, c := range w.cells {
		w.tickCell(c)
	}
	w.timing.TickCells = sw.lap()

	w.replenish()
	w.timing.SpawnCells = sw.lap()

	boosting := w.boosting[:0]
	for _, c := range w.boosting {
		if c.exists && w.boostCell(c) {
			boosting = append(boosting, c)
		} else {
			c.boosting = false
		}
	}
	clear(w.boosting[len(boosting):])
	w.boosting = boosting

	insides := 0
	for _, c := range w.cells {
		c.skipQuery = c.inside
		if c.inside {
			c.inside = false
			insides++
		}
	}
	w.timing.Insides = insides
	w.timing.BoostCells = sw.lap()

	for _, c := range w.playerCells {
		if !c.exists {
			continue
		}
		w.movePlayerCell(c)
		w.decayPlayerCell(c)
		w.autosplitPlayerCell(c)
		w.bounceCell(c, false)
		w.UpdateCell(c)
	}
	w.timing.PlayerCells = sw.lap()

	if w.sweepPending {
		w.sweep()
	}
	sort.SliceStable(w.cells, func(i, j int) bool { return priorityLess(w.cells[i], w.cells[j]) })
	w.timing.SortCells = sw.lap()

	rigid, eat, queries := w.broadPhase(w.cells)
	w.timing.Queries = queries
	w.timing.Query = sw.lap()

	for _, pr := range rigid {
		w.resolveRigid(pr.a, pr.b)
	}
	w.timing.Rigid = sw.lap()

	for _, pr := range eat {
		w.resolveEat(pr.a, pr.b)
	}
	w.timing.Eat = sw.lap()

	w.sweep()

	w.updatePlayers(s)
	w.timing.ViewArea = sw.lap()
}

// replenish tops pellets, viruses and mother cells up to their targets. A
// population stops for this tick at its first failed safe-spawn search.
func (w *World) replenish() {
	s := w.settings
	for i := w.pelletCount; i < s.PelletCount; i++ {
		x, y, _, ok := w.safeSpawnPos(s.PelletMinSize)
		if !ok {
			break
		}
		w.AddCell(w.newPellet(0, x, y))
	}
	for i := w.virusCount; i < s.VirusMinCount; i++ {
		x, y, _, ok := w.safeSpawnPos(s.VirusSize + 200)
		if !ok {
			break
		}
		w.AddCell(w.newVirus(x, y))
	}
	for i := w.motherCount; i < s.MothercellCount; i++ {
		x, y, _, ok := w.safeSpawnPos(s.MothercellSize + 200)
		if !ok {
			break
		}
		w.AddCell(w.newMother(x, y))
	}
}

// updatePlayers is the player-state pass: eviction, control-source
// resolution, intents, state transitions and view areas
func (w *World) updatePlayers(s *Settings) {
	w.largestPlayer = nil
	for _, p := range w.players {
		if p.Score > 0 && (w.largestPlayer == nil || p.Score > w.largestPlayer.Score) {
			w.largestPlayer = p
		}
	}

	roster := w.players
	w.players = make([]*Player, 0, len(roster))
	for _, p := range roster {
		if p.world != w || !w.keepPlayer(p) {
			continue
		}
		w.players = append(w.players, p)

		if p.State == StateSpec && w.largestPlayer == nil {
			p.updateState(w, StateRoam)
		}
		if p.Type == PlayerDualMinion {
			continue
		}
		if p.disconnected {
			p.updateViewArea(w)
			continue
		}

		actor := p
		if p.dualActive && p.dual != nil && p.dual.world == w {
			actor = p.dual
			actor.mouseX, actor.mouseY = p.mouseX, p.mouseY
			actor.Router.SetPointer(p.mouseX, p.mouseY)
		}

		r := p.Router
		in := r.take(s.PlayerSplitCap, w.tick >= r.ejectTick+uint64(s.PlayerEjectDelay))
		for i := 0; i < in.splits; i++ {
			if !w.canSplit(actor) {
				break
			}
			actor.justPopped = false
			w.SplitPlayer(actor)
		}
		if in.eject {
			w.EjectFromPlayer(actor)
			r.ejectTick = w.tick
		}
		if in.qEdge {
			w.gamemode.OnPlayerPressQ(w, p)
		}
		if in.spectate && p.State != StateAlive {
			p.spectateTarget = in.spectatePID
			p.updateState(w, StateSpec)
		}
		if in.spawn {
			w.gamemode.OnPlayerSpawnRequest(w, p, w.trimName(in.spawnName), in.spawnSkin)
		}
		if in.linelock {
			actor.toggleLinelock(p.View.X, p.View.Y, p.mouseX, p.mouseY)
		}
		if in.dualCreate {
			w.createDual(p)
		}
		if in.dualToggle {
			w.toggleDual(p)
		}

		p.updateViewArea(w)
		r.notifyVisibleCellsChanged(p)
	}
}

// keepPlayer evicts orphaned duals and players whose router has been gone
// for longer than the dispose delay
func (w *World) keepPlayer(p *Player) bool {
	if p.Type == PlayerDualMinion {
		if o := p.owner; o == nil || o.dual != p || o.world != w {
			w.KillPlayer(p, true)
			w.evict(p)
			return false
		}
	}
	if !p.disconnected {
		p.goneTick = 0
		return true
	}
	if p.goneTick == 0 {
		p.goneTick = w.tick
		w.KillPlayer(p, false)
		w.ctx.Log.Debugw("player disconnected", "world", w.ID, "player", p.ID)
	}
	if w.tick-p.goneTick < uint64(w.settings.WorldPlayerDisposeDelay) {
		return true
	}
	w.evict(p)
	return false
}
