package arena

import "math"

const (
	rigidSizeThreshold   = 1.9
	rigidSmallPushBoost  = 1.8
	rigidBigCellResist   = 0.06
	playerSpeedBase      = 88.0
	playerSpeedExponent  = -0.39
	boostAbsorbDistance  = 0.01
	boostAbsorbDirection = 0.05
)

// boostCell advances c along its boost and reports whether it keeps boosting
func (w *World) boostCell(c *Cell) bool {
	if !c.IsBoosting() {
		return false
	}
	d := c.Boost.D / 9 * w.ctx.StepMult
	c.SetPosition(c.X+c.Boost.DX*d, c.Y+c.Boost.DY*d)
	w.bounceCell(c, true)
	w.UpdateCell(c)
	c.Boost.D -= d
	return c.IsBoosting()
}

// bounceCell clamps c so that it lies within the border by half its size,
// optionally reflecting its boost off the wall it hit
func (w *World) bounceCell(c *Cell, reflect bool) {
	b := w.border
	r := c.Size / 2
	if c.X <= b.X-b.W+r {
		c.SetPosition(b.X-b.W+r, c.Y)
		if reflect {
			c.Boost.DX = -c.Boost.DX
		}
	}
	if c.X >= b.X+b.W-r {
		c.SetPosition(b.X+b.W-r, c.Y)
		if reflect {
			c.Boost.DX = -c.Boost.DX
		}
	}
	if c.Y <= b.Y-b.H+r {
		c.SetPosition(c.X, b.Y-b.H+r)
		if reflect {
			c.Boost.DY = -c.Boost.DY
		}
	}
	if c.Y >= b.Y+b.H-r {
		c.SetPosition(c.X, b.Y+b.H-r)
		if reflect {
			c.Boost.DY = -c.Boost.DY
		}
	}
}

// playerSpeed is the per-tick distance a player cell of the given size covers
func (w *World) playerSpeed(size float64) float64 {
	return playerSpeedBase * math.Pow(size, playerSpeedExponent) * w.settings.PlayerMoveMult
}

func (w *World) movePlayerCell(c *Cell) {
	p := w.playerIndex[c.OwnerID]
	if p == nil || p.disconnected {
		return
	}
	dx, dy := p.mouseX-c.X, p.mouseY-c.Y
	d := math.Hypot(dx, dy)
	if d < 1 {
		return
	}
	dx, dy = dx/d, dy/d
	m := math.Min(w.playerSpeed(c.Size), d) * w.ctx.StepMult
	x, y := c.X+dx*m, c.Y+dy*m
	if p.lineLocked && c.lineLocked {
		x, y = p.project(x, y)
	}
	c.SetPosition(x, y)
}

func (w *World) decayPlayerCell(c *Cell) {
	size := c.Size - c.Size*w.gamemode.DecayMultiplier(w, c)/50*w.ctx.StepMult
	c.SetSize(math.Max(size, w.settings.PlayerMinSize))
}

// autosplitPlayerCell breaks a cell above the max size into equal pieces,
// as many as the owner has free cell slots for. Mass is conserved.
func (w *World) autosplitPlayerCell(c *Cell) {
	p := w.playerIndex[c.OwnerID]
	if p == nil {
		return
	}
	s := w.settings
	maxSq := s.PlayerMaxSize * s.PlayerMaxSize
	sq := c.SquareSize()
	overflow := int(math.Ceil(sq / maxSq))
	pieces := min(overflow, 1+s.PlayerMaxCells-len(p.OwnedCells))
	if overflow <= 1 || pieces <= 1 {
		return
	}
	splitSize := math.Min(math.Sqrt(sq/float64(pieces)), s.PlayerMaxSize)
	for i := 1; i < pieces; i++ {
		angle := w.ctx.Rand.Float64() * 2 * math.Pi
		w.launchPlayerCell(c, splitSize, Boost{DX: math.Sin(angle), DY: math.Cos(angle), D: s.PlayerSplitBoost})
	}
}

// resolveRigid pushes two overlapping cells apart, weighted by the other's
// square size. A cell more than 1.9 times larger barely moves and pushes the
// smaller one harder.
func (w *World) resolveRigid(a, b *Cell) {
	if !a.exists || !b.exists {
		w.ctx.Log.Debugw("rigid pair lost a cell", "a", a.ID, "b", b.ID)
		return
	}
	if a.Age(w.tick) <= 1 || b.Age(w.tick) <= 1 {
		return
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	d := math.Hypot(dx, dy)
	m := a.Size + b.Size - d
	if m <= 0 {
		return
	}
	if d < 1e-5 {
		d, dx, dy = 1, 1, 0
	} else {
		dx, dy = dx/d, dy/d
	}
	total := a.SquareSize() + b.SquareSize()
	aM := b.SquareSize() / total
	bM := a.SquareSize() / total
	pushA := math.Min(m, a.Size) * aM
	pushB := math.Min(m, b.Size) * bM
	switch {
	case a.Size > b.Size*rigidSizeThreshold:
		pushB *= rigidSmallPushBoost
		pushA *= rigidBigCellResist
	case b.Size > a.Size*rigidSizeThreshold:
		pushA *= rigidSmallPushBoost
		pushB *= rigidBigCellResist
	}
	a.SetPosition(a.X-dx*pushA, a.Y-dy*pushA)
	b.SetPosition(b.X+dx*pushB, b.Y+dy*pushB)
	w.bounceCell(a, false)
	w.bounceCell(b, false)
	w.UpdateCell(a)
	w.UpdateCell(b)
}

// resolveEat lets a swallow b if both still exist, b is close enough to a's
// centre and the gamemode agrees
func (w *World) resolveEat(a, b *Cell) bool {
	if !a.exists || !b.exists {
		w.ctx.Log.Debugw("eat pair lost a cell", "eater", a.ID, "eaten", b.ID)
		return false
	}
	d := math.Hypot(b.X-a.X, b.Y-a.Y)
	if d > a.Size-b.Size/w.settings.WorldEatOverlapDiv {
		return false
	}
	if !w.gamemode.CanEat(w, a, b) {
		return false
	}
	if a.Kind == KindPlayer && b.Boost.D > 0 {
		w.absorbBoost(a, b)
	}
	w.whenAte(a, b)
	w.whenEatenBy(b, a)
	w.RemoveCell(b)
	w.UpdateCell(a)
	return true
}

// absorbBoost hands part of the eaten cell's momentum to the eater
func (w *World) absorbBoost(a, b *Cell) {
	ratio := b.Size / (a.Size + 100)
	a.Boost.D = math.Max(0, math.Min(a.Boost.D+ratio*boostAbsorbDistance*b.Boost.D, w.settings.PlayerSplitBoost))
	nx := a.Boost.DX + ratio*boostAbsorbDirection*b.Boost.DX
	ny := a.Boost.DY + ratio*boostAbsorbDirection*b.Boost.DY
	if n := nx*nx + ny*ny; n > 1e-9 {
		inv := 1 / math.Sqrt(n)
		a.Boost.DX, a.Boost.DY = nx*inv, ny*inv
	}
	if a.IsBoosting() {
		w.SetCellAsBoosting(a)
	}
}
