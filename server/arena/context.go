package arena

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Context carries what a world needs from the outside: a settings snapshot,
// its own random stream and a logger. Nothing in the package reads globals.
type Context struct {
	Settings  Settings
	Rand      *rand.Rand
	Log       *zap.SugaredLogger
	TickDelay time.Duration
	StepMult  float64
}

// NewContext sanitizes s and seeds a dedicated random stream
func NewContext(s Settings, seed int64, log *zap.SugaredLogger) *Context {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s.Sanitize(log)
	delay := time.Second / time.Duration(s.ServerFrequency)
	return &Context{
		Settings:  s,
		Rand:      rand.New(rand.NewSource(seed)),
		Log:       log,
		TickDelay: delay,
		StepMult:  1,
	}
}

// ticksFor converts a wall-clock duration into whole ticks
func (c *Context) ticksFor(d time.Duration) uint64 {
	if c.TickDelay <= 0 {
		return 0
	}
	return uint64(d / c.TickDelay)
}

func (c *Context) randomColor() uint32 {
	switch c.Rand.Intn(6) {
	case 0:
		return uint32(c.Rand.Intn(256))<<16 | 0xFF<<8 | 0x10
	case 1:
		return uint32(c.Rand.Intn(256))<<16 | 0x10<<8 | 0xFF
	case 2:
		return 0xFF<<16 | uint32(c.Rand.Intn(256))<<8 | 0x10
	case 3:
		return 0x10<<16 | uint32(c.Rand.Intn(256))<<8 | 0xFF
	case 4:
		return 0x10<<16 | 0xFF<<8 | uint32(c.Rand.Intn(256))
	default:
		return 0xFF<<16 | 0x10<<8 | uint32(c.Rand.Intn(256))
	}
}
