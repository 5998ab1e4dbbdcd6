package arena

import "math"

// PlayerID identifies a player across all worlds of a process
type PlayerID uint32

// PlayerState is the player lifecycle state
type PlayerState uint8

const (
	StateDead PlayerState = iota
	StateAlive
	StateSpec
	StateRoam
)

func (s PlayerState) String() string {
	switch s {
	case StateDead:
		return "dead"
	case StateAlive:
		return "alive"
	case StateSpec:
		return "spectating"
	case StateRoam:
		return "roaming"
	}
	return "unknown"
}

// PlayerType separates regular players from dual minions
type PlayerType uint8

const (
	PlayerRegular PlayerType = iota
	PlayerDualMinion
)

// ViewArea is a camera rectangle (centre, half extents) plus a zoom scale
type ViewArea struct {
	X, Y float64
	W, H float64
	S    float64
}

// Player is a participant in a world. All fields are owned by the world's
// tick; the transport reads them only between ticks.
type Player struct {
	ID              PlayerID
	Type            PlayerType
	Router          *Router
	LeaderboardName string
	CellName        string
	ChatName        string
	Skin            string
	Color           uint32
	State           PlayerState
	Score           float64
	MaxScore        float64
	KillCount       int
	JoinTick        uint64
	JustDied        bool
	View            ViewArea
	OwnedCells      []*Cell

	world *World

	mouseX, mouseY float64
	disconnected   bool
	goneTick       uint64

	justPopped      bool
	poppedUntilTick uint64

	dual       *Player
	owner      *Player
	dualActive bool

	lastDeathX, lastDeathY float64

	lineLocked   bool
	lineA        float64
	lineB        float64
	lineC        float64
	lineDenomInv float64

	spawnCooldownEnd uint64
	spectateTarget   PlayerID

	visible map[CellID]struct{}
}

func newPlayer(id PlayerID, r *Router, s *Settings) *Player {
	p := &Player{
		ID:       id,
		Router:   r,
		ChatName: "Spectator",
		Color:    0x7F7F7F,
		State:    StateDead,
		View:     ViewArea{W: 1920 / 2 / s.PlayerViewScaleMult, H: 1080 / 2 / s.PlayerViewScaleMult, S: 1},
	}
	r.attach(p)
	return p
}

// World returns the world the player is in, nil once removed
func (p *Player) World() *World { return p.world }

// Dual returns the player's dual minion, if any
func (p *Player) Dual() *Player { return p.dual }

// Owner returns the owner of a dual minion
func (p *Player) Owner() *Player { return p.owner }

// DualActive reports whether the owner currently steers its dual
func (p *Player) DualActive() bool { return p.dualActive }

// LineLocked reports whether movement is projected onto the lock line
func (p *Player) LineLocked() bool { return p.lineLocked }

// IsExternal reports whether the player is driven by a remote connection
func (p *Player) IsExternal() bool { return p.Router != nil && p.Router.Type == RouterPlayer }

func (p *Player) removeOwnedCell(c *Cell) bool {
	for i, oc := range p.OwnedCells {
		if oc == c {
			copy(p.OwnedCells[i:], p.OwnedCells[i+1:])
			p.OwnedCells[len(p.OwnedCells)-1] = nil
			p.OwnedCells = p.OwnedCells[:len(p.OwnedCells)-1]
			return true
		}
	}
	return false
}

// updateState moves the player toward target. The result is always one of the
// four states and is Alive exactly when the player owns cells.
func (p *Player) updateState(w *World, target PlayerState) {
	prev := p.State
	switch {
	case w == nil:
		p.State = StateDead
	case len(p.OwnedCells) > 0:
		p.State = StateAlive
		p.spectateTarget = 0
	case target == StateDead:
		p.State = StateDead
		if prev == StateAlive {
			p.JustDied = true
			w.onPlayerDied(p)
		}
		p.KillCount = 0
		p.MaxScore = 0
	case w.largestPlayer == nil:
		p.State = StateRoam
	case p.State == StateSpec && target == StateRoam:
		p.State = StateRoam
	default:
		p.State = StateSpec
		if t := w.playerIndex[p.spectateTarget]; t == nil || t == p {
			p.spectateTarget = w.largestPlayer.ID
		}
	}
}

// group returns the regular player and its dual, whichever of the two p is
func (p *Player) group() (owner, dual *Player) {
	if p.Type == PlayerDualMinion && p.owner != nil {
		return p.owner, p
	}
	return p, p.dual
}

func massOf(cells []*Cell) float64 {
	var m float64
	for _, c := range cells {
		m += c.Mass()
	}
	return m
}

func (p *Player) updateViewArea(w *World) {
	s := w.settings
	focus := p
	if p.Type == PlayerDualMinion && p.owner != nil {
		focus = p.owner
	}

	switch focus.State {
	case StateDead:
		p.Score = -1
	case StateAlive:
		owner, dual := focus.group()
		n := len(owner.OwnedCells)
		if dual != nil {
			n += len(dual.OwnedCells)
		}
		if n == 0 {
			p.Score = 0
			p.View = ViewArea{X: focus.View.X, Y: focus.View.Y, W: 4000 * s.PlayerViewScaleMult, H: 4000 * s.PlayerViewScaleMult, S: 1}
			return
		}

		b := w.border
		minX, maxX := b.X+b.W, b.X-b.W
		minY, maxY := b.Y+b.H, b.Y-b.H
		var x, y, size float64
		each := func(cells []*Cell) {
			for _, c := range cells {
				x += c.X * c.Size
				y += c.Y * c.Size
				size += c.Size
				minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
				minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
			}
		}
		each(owner.OwnedCells)
		ownerScore := massOf(owner.OwnedCells)
		owner.Score = ownerScore
		owner.MaxScore = math.Max(owner.MaxScore, ownerScore)
		var dualScore float64
		if dual != nil {
			each(dual.OwnedCells)
			dualScore = massOf(dual.OwnedCells)
			dual.Score = dualScore
			dual.MaxScore = math.Max(dual.MaxScore, dualScore)
		}
		if p.Type == PlayerRegular {
			p.Score = ownerScore + dualScore
		}
		total := ownerScore + dualScore

		if total > b.W*b.H/100*s.RestartMulti && w.tick > 500 {
			w.handleOversize(owner, dual, total)
		}

		cx, cy := x/size, y/size
		sz := (math.Pow(float64(n)+50, 0.1) + 1) * math.Sqrt(total*100)
		sizeX := math.Max(math.Max(sz, 4000), math.Max(cx-minX, maxX-cx)*1.75)
		sizeY := math.Max(math.Max(sz, 4000), math.Max(cy-minY, maxY-cy)*1.75)
		p.View = ViewArea{
			X: cx,
			Y: cy,
			W: sizeX * s.PlayerViewScaleMult,
			H: sizeY * s.PlayerViewScaleMult,
			S: math.Max(math.Pow(math.Min(64/sz, 1), 0.4), s.PlayerMinViewScale),
		}
	case StateSpec:
		p.Score = -1
		target := w.playerIndex[p.spectateTarget]
		if target == nil || target == p {
			p.State = StateRoam
			p.spectateTarget = 0
			return
		}
		p.View = target.View
	case StateRoam:
		p.Score = -1
		dx, dy := p.mouseX-p.View.X, p.mouseY-p.View.Y
		d := math.Hypot(dx, dy)
		step := math.Min(d, s.PlayerRoamSpeed)
		if step < 1 {
			return
		}
		dx, dy = dx/d, dy/d
		b := w.border
		p.View.X = math.Max(b.X-b.W, math.Min(p.View.X+dx*step, b.X+b.W))
		p.View.Y = math.Max(b.Y-b.H, math.Min(p.View.Y+dy*step, b.Y+b.H))
		p.View.S = s.PlayerRoamViewScale
		p.View.W = 1920 / s.PlayerRoamViewScale / 2 * s.PlayerViewScaleMult
		p.View.H = 1080 / s.PlayerRoamViewScale / 2 * s.PlayerViewScaleMult
	}
}

// toggleLinelock locks movement onto the line through the view centre
// (cx, cy) and the pointer (mx, my), or releases an existing lock.
func (p *Player) toggleLinelock(cx, cy, mx, my float64) {
	if p.lineLocked {
		p.resetLinelock()
		return
	}
	a := my - cy
	b := cx - mx
	denom := a*a + b*b
	if denom < 1e-5 {
		return
	}
	p.lineA, p.lineB = a, b
	p.lineC = -(a*cx + b*cy)
	p.lineDenomInv = 1 / denom
	p.lineLocked = true
	for _, c := range p.OwnedCells {
		c.lineLocked = true
	}
}

func (p *Player) resetLinelock() {
	for _, c := range p.OwnedCells {
		c.lineLocked = false
	}
	p.lineLocked = false
	p.lineA, p.lineB, p.lineC, p.lineDenomInv = 0, 0, 0, 0
}

// project maps a point onto the lock line
func (p *Player) project(x, y float64) (float64, float64) {
	k := (p.lineA*x + p.lineB*y + p.lineC) * p.lineDenomInv
	return x - p.lineA*k, y - p.lineB*k
}
