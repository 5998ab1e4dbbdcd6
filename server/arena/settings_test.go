package arena

import (
	"math"
	"testing"
	"time"
)

func TestDefaultSettingsAreSane(t *testing.T) {
	s := DefaultSettings()
	before := s
	s.Sanitize(nil)
	if s != before {
		t.Error("sanitizing the defaults changed them")
	}
}

func TestSanitizeReplacesMalformedValues(t *testing.T) {
	d := DefaultSettings()
	s := d
	s.WorldMapW = math.NaN()
	s.WorldMapH = -1
	s.PhysicsThreads = 0
	s.ServerFrequency = -5
	s.PelletMinSize = 20
	s.PelletMaxSize = 5
	s.PlayerSplitSizeDiv = 0.5
	s.PlayerDecayMult = math.Inf(1)
	s.ServerName = ""

	s.Sanitize(nil)

	if s.WorldMapW != d.WorldMapW || s.WorldMapH != d.WorldMapH {
		t.Errorf("map size not restored: %f x %f", s.WorldMapW, s.WorldMapH)
	}
	if s.PhysicsThreads != d.PhysicsThreads || s.ServerFrequency != d.ServerFrequency {
		t.Errorf("int settings not restored: threads %d, freq %d", s.PhysicsThreads, s.ServerFrequency)
	}
	if s.PelletMaxSize != s.PelletMinSize {
		t.Errorf("pellet max should clamp up to min, got %f < %f", s.PelletMaxSize, s.PelletMinSize)
	}
	if s.PlayerSplitSizeDiv != d.PlayerSplitSizeDiv {
		t.Errorf("split divisor not restored: %f", s.PlayerSplitSizeDiv)
	}
	if s.PlayerDecayMult != d.PlayerDecayMult {
		t.Errorf("decay not restored: %f", s.PlayerDecayMult)
	}
	if s.ServerName != d.ServerName {
		t.Errorf("empty server name not defaulted: %q", s.ServerName)
	}
}

func TestNewContextDerivesTickDelay(t *testing.T) {
	s := DefaultSettings()
	s.ServerFrequency = 20
	ctx := NewContext(s, 7, nil)
	if ctx.TickDelay != 50*time.Millisecond {
		t.Errorf("expected 50ms tick, got %s", ctx.TickDelay)
	}
	if got := ctx.ticksFor(time.Second); got != 20 {
		t.Errorf("expected 20 ticks per second, got %d", got)
	}
	if ctx.Log == nil || ctx.Rand == nil {
		t.Error("context should always carry a logger and a random stream")
	}
}

func TestReloadSwapsSettings(t *testing.T) {
	w := newTestWorld(t, nil)
	s := *w.Settings()
	s.PelletCount = 12
	s.ServerFrequency = 10
	w.Reload(s)

	if w.Settings().PelletCount != 12 {
		t.Errorf("reload not applied, pellet count %d", w.Settings().PelletCount)
	}
	if w.ctx.TickDelay != 100*time.Millisecond {
		t.Errorf("tick delay not updated: %s", w.ctx.TickDelay)
	}
	w.Update()
	if pellets, _, _, _ := w.Counts(); pellets != 12 {
		t.Errorf("expected 12 pellets after reload, got %d", pellets)
	}
}
