package arena

import "math"

const poppedEjectBlockTicks = 5

// launchPlayerCell moves size² of square size out of c into a new cell placed
// a split distance away along the boost direction
func (w *World) launchPlayerCell(c *Cell, size float64, boost Boost) {
	p := w.playerIndex[c.OwnerID]
	if p == nil {
		return
	}
	c.SetSquareSize(c.SquareSize() - size*size)
	w.UpdateCell(c)
	x := c.X + w.settings.PlayerSplitDistance*boost.DX
	y := c.Y + w.settings.PlayerSplitDistance*boost.DY
	nc := w.newPlayerCell(p, x, y, size)
	nc.Boost = boost
	nc.lineLocked = c.lineLocked
	w.AddCell(nc)
	w.SetCellAsBoosting(nc)
}

func (w *World) pointerDir(p *Player, c *Cell) (float64, float64) {
	dx, dy := p.mouseX-c.X, p.mouseY-c.Y
	d := math.Hypot(dx, dy)
	if d < 1 {
		return 1, 0
	}
	return dx / d, dy / d
}

// canSplit reports whether p has headroom and at least one splittable cell
func (w *World) canSplit(p *Player) bool {
	if len(p.OwnedCells) >= w.settings.PlayerMaxCells {
		return false
	}
	for _, c := range p.OwnedCells {
		if c.Size >= w.settings.PlayerMinSplitSize {
			return true
		}
	}
	return false
}

// SplitPlayer halves (by area) every splittable cell of p toward its pointer,
// stopping once p owns the maximum number of cells
func (w *World) SplitPlayer(p *Player) {
	s := w.settings
	cells := p.OwnedCells[:len(p.OwnedCells):len(p.OwnedCells)]
	for _, c := range cells {
		if len(p.OwnedCells) >= s.PlayerMaxCells {
			return
		}
		if c.Size < s.PlayerMinSplitSize {
			continue
		}
		dx, dy := w.pointerDir(p, c)
		w.launchPlayerCell(c, c.Size/s.PlayerSplitSizeDiv, Boost{DX: dx, DY: dy, D: s.PlayerSplitBoost})
	}
}

// EjectFromPlayer shoots one ejected cell from every eligible cell of p
func (w *World) EjectFromPlayer(p *Player) {
	if p.justPopped {
		if w.tick < p.poppedUntilTick {
			return
		}
		p.justPopped = false
	}
	s := w.settings
	loss := s.EjectingLoss * s.EjectingLoss
	cells := p.OwnedCells[:len(p.OwnedCells):len(p.OwnedCells)]
	for _, c := range cells {
		if c.Age(w.tick) < 3 || c.Size < s.PlayerMinEjectSize {
			continue
		}
		dx, dy := w.pointerDir(p, c)
		e := w.newEjected(p, c.X+dx*c.Size, c.Y+dy*c.Size, c.Color)
		a := math.Atan2(dx, dy) - s.EjectDispersion + w.ctx.Rand.Float64()*2*s.EjectDispersion
		e.Boost = Boost{DX: math.Sin(a), DY: math.Cos(a), D: s.EjectedCellBoost}
		w.AddCell(e)
		w.SetCellAsBoosting(e)
		c.SetSquareSize(c.SquareSize() - loss)
		w.UpdateCell(c)
		w.ejectCount++
	}
}

// popPlayerCell bursts c into pieces flying in random directions
func (w *World) popPlayerCell(c *Cell) {
	for _, mass := range w.distributeCellMass(c) {
		angle := w.ctx.Rand.Float64() * 2 * math.Pi
		w.launchPlayerCell(c, math.Sqrt(mass*100), Boost{DX: math.Sin(angle), DY: math.Cos(angle), D: w.settings.PlayerSplitBoost})
	}
	if p := w.playerIndex[c.OwnerID]; p != nil {
		p.justPopped = true
		p.poppedUntilTick = w.tick + poppedEjectBlockTicks
	}
}

// distributeCellMass returns the masses of the pieces a popped cell breaks
// into. Their sum is always below the cell's mass.
func (w *World) distributeCellMass(c *Cell) []float64 {
	s := w.settings
	cellsLeft := float64(s.PlayerMaxCells)
	if p := w.playerIndex[c.OwnerID]; p != nil {
		cellsLeft -= float64(len(p.OwnedCells))
	}
	if cellsLeft <= 0 {
		return nil
	}
	splitMin := s.PlayerMinSplitSize * s.PlayerMinSplitSize / 100
	mass := c.Mass()
	var dist []float64

	if s.VirusMonotonePops {
		amount := math.Min(math.Floor(mass/splitMin), cellsLeft)
		per := mass / (amount + 1)
		for ; amount > 0; amount-- {
			dist = append(dist, per)
		}
		return dist
	}

	if mass/cellsLeft < splitMin {
		amount := 2.0
		per := mass / (amount + 1)
		for per >= splitMin && amount*2 <= cellsLeft {
			amount *= 2
			per = mass / (amount + 1)
		}
		for amount = math.Min(amount, cellsLeft); amount > 0; amount-- {
			dist = append(dist, per)
		}
		return dist
	}

	next := mass / 2
	left := mass / 2
	for cellsLeft > 0 {
		if next/cellsLeft < splitMin {
			break
		}
		for next >= left && cellsLeft > 1 {
			next /= 2
		}
		dist = append(dist, next)
		left -= next
		cellsLeft--
	}
	if cellsLeft > 0 {
		next = left / cellsLeft
		for ; cellsLeft > 0; cellsLeft-- {
			dist = append(dist, next)
		}
	}
	return dist
}

// splitVirus spawns a new virus launched along the last feeding direction
func (w *World) splitVirus(v *Cell) {
	nv := w.newVirus(v.X, v.Y)
	nv.Boost = Boost{DX: math.Sin(v.splitAngle), DY: math.Cos(v.splitAngle), D: w.settings.VirusSplitBoost}
	w.AddCell(nv)
	w.SetCellAsBoosting(nv)
}
