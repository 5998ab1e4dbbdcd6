package arena

import "math"

const (
	virusColor  = 0x33FF33
	motherColor = 0xCE6363
)

func (w *World) newPlayerCell(owner *Player, x, y, size float64) *Cell {
	c := newCell(KindPlayer, x, y, size, owner.Color)
	c.OwnerID = owner.ID
	c.Name = owner.CellName
	c.Skin = owner.Skin
	return c
}

func (w *World) newPellet(spawner CellID, x, y float64) *Cell {
	c := newCell(KindPellet, x, y, w.settings.PelletMinSize, w.ctx.randomColor())
	c.spawner = spawner
	c.lastGrowTick = w.tick
	return c
}

func (w *World) newVirus(x, y float64) *Cell {
	return newCell(KindVirus, x, y, w.settings.VirusSize, virusColor)
}

func (w *World) newEjected(owner *Player, x, y float64, color uint32) *Cell {
	c := newCell(KindEjected, x, y, w.settings.EjectedSize, color)
	if owner != nil {
		c.OwnerID = owner.ID
	}
	return c
}

func (w *World) newMother(x, y float64) *Cell {
	return newCell(KindMother, x, y, w.settings.MothercellSize, motherColor)
}

// eatResult decides what a does to b. It only reads state so broad-phase
// workers can call it concurrently.
func (w *World) eatResult(a, b *Cell) EatResult {
	switch a.Kind {
	case KindPlayer:
		return w.playerEatResult(a, b)
	case KindVirus:
		switch b.Kind {
		case KindEjected:
			return w.virusEjectedResult(true)
		case KindMother:
			return EatInverted
		}
	case KindEjected:
		switch b.Kind {
		case KindVirus:
			return w.virusEjectedResult(false)
		case KindMother:
			return EatInverted
		case KindEjected:
			return EatCollide
		}
	}
	return EatNone
}

func (w *World) playerEatResult(a, b *Cell) EatResult {
	s := w.settings
	tick := w.tick
	switch b.Kind {
	case KindPlayer:
		young := a.Age(tick) < s.PlayerNoCollideDelay || b.Age(tick) < s.PlayerNoCollideDelay
		if a.OwnerID != 0 && a.OwnerID == b.OwnerID {
			if young {
				return EatNone
			}
			if a.canMerge && b.canMerge {
				return EatEat
			}
			return EatCollide
		}
		if w.teammates(a.OwnerID, b.OwnerID) {
			if young {
				return EatNone
			}
			return EatCollide
		}
	case KindMother:
		if b.Size > a.Size*s.WorldEatMult {
			return EatInverted
		}
	case KindPellet:
		return EatEat
	}
	if b.Size*s.WorldEatMult > a.Size {
		return EatNone
	}
	return EatEat
}

// teammates reports whether two owners are an owner and its dual
func (w *World) teammates(a, b PlayerID) bool {
	if a == 0 || b == 0 || a == b {
		return false
	}
	pa := w.playerIndex[a]
	if pa == nil {
		return false
	}
	return (pa.dual != nil && pa.dual.ID == b) || (pa.owner != nil && pa.owner.ID == b)
}

func (w *World) virusEjectedResult(virusSide bool) EatResult {
	if w.virusCount >= w.settings.VirusMaxCount {
		return EatNone
	}
	if virusSide {
		return EatEat
	}
	return EatInverted
}

// tickCell runs the passive per-type behaviour
func (w *World) tickCell(c *Cell) {
	s := w.settings
	switch c.Kind {
	case KindPlayer:
		delay := s.PlayerNoMergeDelay
		if s.PlayerMergeTime > 0 {
			initial := math.Round(25 * s.PlayerMergeTime)
			increase := math.Round(25 * c.Size * s.PlayerMergeTimeIncrease)
			if s.PlayerMergeNewVersion {
				delay = math.Max(delay, math.Max(initial, increase))
			} else {
				delay = math.Max(delay, initial+increase)
			}
		}
		c.canMerge = c.Age(w.tick) >= delay
	case KindPellet:
		if c.Size >= s.PelletMaxSize {
			return
		}
		if float64(w.tick-c.lastGrowTick) > float64(s.PelletGrowTicks)/w.ctx.StepMult {
			c.lastGrowTick = w.tick
			c.SetMass(c.Mass() + 1)
			if c.Size > s.PelletMaxSize {
				c.SetSize(s.PelletMaxSize)
			}
			w.UpdateCell(c)
		}
	case KindMother:
		w.tickMother(c)
	}
}

func (w *World) tickMother(c *Cell) {
	s := w.settings
	pelletSize := s.PelletMinSize
	minSpawnSq := s.MothercellSize*s.MothercellSize + pelletSize*pelletSize
	c.activeQueue += s.MothercellActiveSpawnSpeed * w.ctx.StepMult
	c.passiveQueue += w.ctx.Rand.Float64() * s.MothercellPassiveSpawnChance * w.ctx.StepMult

	resized := false
	for c.activeQueue > 0 {
		if c.SquareSize() > minSpawnSq {
			w.spawnMotherPellet(c)
			c.SetSquareSize(c.SquareSize() - pelletSize*pelletSize)
			resized = true
		} else if c.Size > s.MothercellSize {
			c.SetSize(s.MothercellSize)
			resized = true
		}
		c.activeQueue--
	}
	for c.passiveQueue > 0 {
		if c.pelletCount < s.MothercellMaxPellets {
			w.spawnMotherPellet(c)
		}
		c.passiveQueue--
	}
	if resized {
		w.UpdateCell(c)
	}
}

func (w *World) spawnMotherPellet(m *Cell) {
	angle := w.ctx.Rand.Float64() * 2 * math.Pi
	x := m.X + m.Size*math.Sin(angle)
	y := m.Y + m.Size*math.Cos(angle)
	p := w.newPellet(m.ID, x, y)
	d := w.settings.MothercellPelletBoost
	p.Boost = Boost{DX: math.Sin(angle), DY: math.Cos(angle), D: d/2 + w.ctx.Rand.Float64()*d/2}
	w.AddCell(p)
	w.SetCellAsBoosting(p)
}

// whenAte applies what happens to eater a after swallowing b
func (w *World) whenAte(a, b *Cell) {
	s := w.settings
	switch a.Kind {
	case KindVirus:
		if s.VirusPushing {
			newD := a.Boost.D + s.VirusPushBoost
			a.Boost.DX = (a.Boost.DX*a.Boost.D + b.Boost.DX*s.VirusPushBoost) / newD
			a.Boost.DY = (a.Boost.DY*a.Boost.D + b.Boost.DY*s.VirusPushBoost) / newD
			a.Boost.D = newD
			w.SetCellAsBoosting(a)
			return
		}
		a.splitAngle = math.Atan2(b.Boost.DX, b.Boost.DY)
		a.fedTimes++
		if a.fedTimes >= s.VirusFeedTimes {
			a.fedTimes = 0
			a.SetSize(s.VirusSize)
			w.splitVirus(a)
			return
		}
		a.SetSquareSize(a.SquareSize() + b.SquareSize())
	case KindMother:
		a.SetSquareSize(a.SquareSize() + b.SquareSize())
		if a.Size > s.MothercellMaxSize {
			a.SetSize(s.MothercellMaxSize)
		}
	default:
		a.SetSquareSize(a.SquareSize() + b.SquareSize())
	}
}

// whenEatenBy applies what happens to b after being swallowed by a
func (w *World) whenEatenBy(b, a *Cell) {
	b.eatenBy = a.ID
	if b.IsSpiked() && a.Kind == KindPlayer {
		w.popPlayerCell(a)
	}
}

func (w *World) onSpawned(c *Cell) {
	switch c.Kind {
	case KindPlayer:
		w.playerCells = append(w.playerCells, c)
		if p := w.playerIndex[c.OwnerID]; p != nil {
			p.OwnedCells = append(p.OwnedCells, c)
		}
	case KindPellet:
		if c.spawner == 0 {
			w.pelletCount++
		} else if m := w.Cell(c.spawner); m != nil {
			m.pelletCount++
		}
	case KindVirus:
		w.virusCount++
	case KindMother:
		w.motherCount++
	}
}

func (w *World) onRemoved(c *Cell) {
	switch c.Kind {
	case KindPlayer:
		p := w.playerIndex[c.OwnerID]
		if p == nil || !p.removeOwnedCell(c) {
			return
		}
		if len(p.OwnedCells) == 0 {
			p.lastDeathX, p.lastDeathY = c.X, c.Y
			if eater := w.Cell(c.eatenBy); eater != nil && eater.Kind == KindPlayer && eater.OwnerID != p.ID {
				if killer := w.playerIndex[eater.OwnerID]; killer != nil {
					killer.KillCount++
				}
			}
			p.updateState(w, StateDead)
		}
	case KindPellet:
		if c.spawner == 0 {
			w.pelletCount--
		} else if m := w.Cell(c.spawner); m != nil {
			m.pelletCount--
		}
	case KindVirus:
		w.virusCount--
	case KindMother:
		w.motherCount--
	}
}
