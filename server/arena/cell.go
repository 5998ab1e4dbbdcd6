package arena

import (
	"math"

	"github.com/vfxecho/Aetlis/server/quadtree"
)

// CellKind tags the variant a Cell represents
type CellKind uint8

const (
	KindPlayer CellKind = iota
	KindPellet
	KindVirus
	KindEjected
	KindMother
)

func (k CellKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindPellet:
		return "pellet"
	case KindVirus:
		return "virus"
	case KindEjected:
		return "ejected"
	case KindMother:
		return "mother"
	}
	return "unknown"
}

// EatResult classifies a pairwise interaction
type EatResult uint8

const (
	EatNone EatResult = iota
	EatCollide
	EatEat
	EatInverted
)

// CellID is a generational index: slot in the low 32 bits, generation above.
// An id is never handed out again until its slot has been freed by the GC.
type CellID uint64

func makeCellID(slot, gen uint32) CellID { return CellID(uint64(gen)<<32 | uint64(slot)) }

func (id CellID) slot() uint32 { return uint32(id) }
func (id CellID) gen() uint32  { return uint32(id >> 32) }

// Boost is a decaying impulse: unit direction plus remaining distance
type Boost struct {
	DX, DY float64
	D      float64
}

const (
	dirtyPos uint8 = 1 << iota
	dirtySize
	dirtyColor
	dirtyName
	dirtySkin
)

// Cell is every entity of the arena. Kind selects which of the trailing
// per-variant fields are meaningful.
type Cell struct {
	ID        CellID
	Kind      CellKind
	X, Y      float64
	Size      float64
	Color     uint32
	Name      string
	Skin      string
	Boost     Boost
	BirthTick uint64
	OwnerID   PlayerID

	exists    bool
	inside    bool
	skipQuery bool
	boosting  bool
	deadTick  uint64
	eatenBy   CellID
	dirty     uint8
	item      quadtree.Item[*Cell]

	canMerge   bool
	lineLocked bool

	spawner      CellID
	lastGrowTick uint64

	fedTimes   int
	splitAngle float64

	activeQueue  float64
	passiveQueue float64
	pelletCount  int
}

func newCell(kind CellKind, x, y, size float64, color uint32) *Cell {
	c := &Cell{Kind: kind, X: x, Y: y, Size: size, Color: color}
	c.item.Value = c
	c.dirty = dirtyPos | dirtySize | dirtyColor | dirtyName | dirtySkin
	return c
}

// Exists reports whether the cell is live (indexed and in the world)
func (c *Cell) Exists() bool { return c.exists }

// SquareSize is size squared, the unit all growth math works in
func (c *Cell) SquareSize() float64 { return c.Size * c.Size }

// SetSquareSize sets size from a square size, never below zero
func (c *Cell) SetSquareSize(sq float64) {
	if sq < 0 {
		sq = 0
	}
	c.SetSize(math.Sqrt(sq))
}

// Mass is square size over 100
func (c *Cell) Mass() float64 { return c.Size * c.Size / 100 }

// SetMass sets size from mass
func (c *Cell) SetMass(m float64) { c.SetSquareSize(m * 100) }

// SetSize updates the size and marks it for broadcast
func (c *Cell) SetSize(size float64) {
	if size != c.Size {
		c.Size = size
		c.dirty |= dirtySize
	}
}

// SetPosition moves the cell and marks it for broadcast
func (c *Cell) SetPosition(x, y float64) {
	c.X, c.Y = x, y
	c.dirty |= dirtyPos
}

// SetColor recolours the cell
func (c *Cell) SetColor(color uint32) {
	if color != c.Color {
		c.Color = color
		c.dirty |= dirtyColor
	}
}

// SetName renames the cell
func (c *Cell) SetName(name string) {
	if name != c.Name {
		c.Name = name
		c.dirty |= dirtyName
	}
}

// SetSkin changes the skin
func (c *Cell) SetSkin(skin string) {
	if skin != c.Skin {
		c.Skin = skin
		c.dirty |= dirtySkin
	}
}

// Dirty returns the changed-since-last-tick flags (pos, size, color, name, skin)
func (c *Cell) Dirty() (pos, size, color, name, skin bool) {
	return c.dirty&dirtyPos != 0, c.dirty&dirtySize != 0, c.dirty&dirtyColor != 0,
		c.dirty&dirtyName != 0, c.dirty&dirtySkin != 0
}

// IsBoosting reports whether the boost still has distance to travel
func (c *Cell) IsBoosting() bool { return c.Boost.D > 1 }

// IsSpiked is true for cells that pop player cells on contact
func (c *Cell) IsSpiked() bool { return c.Kind == KindVirus || c.Kind == KindMother }

// IsAgitated is unused by the stock cell types
func (c *Cell) IsAgitated() bool { return false }

// AvoidWhenSpawning reports whether a new cell must not overlap this one
func (c *Cell) AvoidWhenSpawning() bool {
	switch c.Kind {
	case KindPlayer, KindVirus, KindMother:
		return true
	}
	return false
}

// Age is the number of ticks since the cell was added
func (c *Cell) Age(tick uint64) float64 {
	if tick < c.BirthTick {
		return 0
	}
	return float64(tick - c.BirthTick)
}

// Range is the bounding box used by the spatial index
func (c *Cell) Range() quadtree.Rect {
	return quadtree.Rect{X: c.X, Y: c.Y, W: c.Size, H: c.Size}
}

// EatenBy returns the id of the cell that ate this one, if any
func (c *Cell) EatenBy() CellID { return c.eatenBy }

// CanMerge reports whether a player cell is old enough to merge with siblings
func (c *Cell) CanMerge() bool { return c.canMerge }
