package arena

import (
	"math"
	"testing"
)

func TestEatResultSameOwner(t *testing.T) {
	w := newTestWorld(t, nil)
	p := spawnAt(w, 0, 0, 200)
	p.mouseX = 500
	w.SplitPlayer(p)
	a, b := p.OwnedCells[0], p.OwnedCells[1]

	if got := w.eatResult(a, b); got != EatNone {
		t.Errorf("young siblings should pass through each other, got %d", got)
	}

	w.tick = uint64(w.settings.PlayerNoCollideDelay) + 1
	if got := w.eatResult(a, b); got != EatCollide {
		t.Errorf("siblings that cannot merge should collide, got %d", got)
	}

	a.canMerge, b.canMerge = true, true
	if got := w.eatResult(a, b); got != EatEat {
		t.Errorf("mergeable siblings should eat, got %d", got)
	}
}

func TestEatResultBySize(t *testing.T) {
	w := newTestWorld(t, nil)
	big := spawnAt(w, 0, 0, 200).OwnedCells[0]
	small := spawnAt(w, 1000, 0, 100).OwnedCells[0]
	peer := spawnAt(w, 2000, 0, 190).OwnedCells[0]

	if got := w.eatResult(big, small); got != EatEat {
		t.Errorf("bigger cell should eat, got %d", got)
	}
	if got := w.eatResult(small, big); got != EatNone {
		t.Errorf("smaller cell must not eat, got %d", got)
	}
	if got := w.eatResult(big, peer); got != EatNone {
		t.Errorf("cells within the eat multiplier must not eat, got %d", got)
	}

	mother := w.newMother(0, 500)
	w.AddCell(mother)
	if got := w.eatResult(small, mother); got != EatInverted {
		t.Errorf("mother cell bigger than the player should eat it, got %d", got)
	}
}

func TestEatResultVirusAndEjected(t *testing.T) {
	w := newTestWorld(t, func(s *Settings) { s.VirusMaxCount = 1 })
	v := w.newVirus(0, 0)
	w.AddCell(v)
	e := w.newEjected(nil, 0, 0, 0)
	w.AddCell(e)

	if got := w.eatResult(v, e); got != EatNone {
		t.Errorf("virus at max count should ignore ejected mass, got %d", got)
	}

	w.settings.VirusMaxCount = 10
	if got := w.eatResult(v, e); got != EatEat {
		t.Errorf("virus should eat ejected mass, got %d", got)
	}
	if got := w.eatResult(e, v); got != EatInverted {
		t.Errorf("ejected querying a virus should invert, got %d", got)
	}
	if got := w.eatResult(e, e); got != EatCollide {
		t.Errorf("ejected cells collide with each other, got %d", got)
	}
	if got := w.eatResult(v, v); got != EatNone {
		t.Errorf("viruses ignore each other, got %d", got)
	}
}

func TestPriorityLess(t *testing.T) {
	boosting := &Cell{ID: 5, Size: 10, Boost: Boost{D: 50}}
	large := &Cell{ID: 3, Size: 100}
	older := &Cell{ID: 1, Size: 50}
	newer := &Cell{ID: 2, Size: 50}

	if !priorityLess(boosting, large) {
		t.Error("boosting cells come first")
	}
	if !priorityLess(large, older) {
		t.Error("larger cells come before smaller")
	}
	if !priorityLess(older, newer) || priorityLess(newer, older) {
		t.Error("equal size falls back to id order")
	}
}

func TestPelletGrows(t *testing.T) {
	w := newTestWorld(t, func(s *Settings) { s.PelletGrowTicks = 2 })
	pellet := w.newPellet(0, 0, 0)
	w.AddCell(pellet)
	start := pellet.Size

	for i := 0; i < 200; i++ {
		w.Update()
	}
	if pellet.Size <= start {
		t.Errorf("pellet did not grow: %f", pellet.Size)
	}
	if pellet.Size > w.settings.PelletMaxSize {
		t.Errorf("pellet grew past the max: %f", pellet.Size)
	}
}

func TestMergeDelay(t *testing.T) {
	w := newTestWorld(t, func(s *Settings) { s.PlayerMergeTime = 0 })
	c := spawnAt(w, 0, 0, 100).OwnedCells[0]

	w.tickCell(c)
	if c.CanMerge() {
		t.Error("a fresh cell must not merge")
	}
	w.tick = 100
	w.tickCell(c)
	if !c.CanMerge() {
		t.Error("an old cell should be allowed to merge")
	}
}

func TestLinelockProjection(t *testing.T) {
	p := &Player{}
	p.toggleLinelock(0, 0, 100, 0)
	if !p.LineLocked() {
		t.Fatal("expected lock")
	}
	x, y := p.project(5, 7)
	if math.Abs(x-5) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("expected (5, 0), got (%f, %f)", x, y)
	}

	p.toggleLinelock(0, 0, 100, 0)
	if p.LineLocked() {
		t.Error("second toggle should release the lock")
	}

	p.toggleLinelock(3, 3, 3, 3)
	if p.LineLocked() {
		t.Error("degenerate line must not lock")
	}
}

func TestDecayMultiplierGrowsForHugePlayers(t *testing.T) {
	w := newTestWorld(t, nil)
	small := spawnAt(w, 0, 0, 100).OwnedCells[0]
	huge := spawnAt(w, 3000, 3000, 6000).OwnedCells[0]

	base := w.settings.PlayerDecayMult
	if got := w.gamemode.DecayMultiplier(w, small); got != base {
		t.Errorf("small cell decay %f, want %f", got, base)
	}
	if got := w.gamemode.DecayMultiplier(w, huge); got <= base {
		t.Errorf("huge cell decay %f should exceed %f", got, base)
	}
}

func TestLinelockOnlyMovesLockedCells(t *testing.T) {
	w := newTestWorld(t, noDecay)
	p := spawnAt(w, 0, 0, 100)
	locked := p.OwnedCells[0]
	p.toggleLinelock(0, 0, 100, 0)

	free := w.newPlayerCell(p, 0, 500, 100)
	w.AddCell(free)
	p.mouseX, p.mouseY = 1000, 1000

	w.movePlayerCell(locked)
	w.movePlayerCell(free)
	if math.Abs(locked.Y) > 1e-9 || locked.X <= 0 {
		t.Errorf("locked cell should slide along the line, got (%f, %f)", locked.X, locked.Y)
	}
	if free.Y <= 500 {
		t.Errorf("cell created after the lock should move freely, got (%f, %f)", free.X, free.Y)
	}

	p.toggleLinelock(0, 0, 100, 0)
	if locked.lineLocked {
		t.Error("releasing the lock should clear the cell bit")
	}
}
