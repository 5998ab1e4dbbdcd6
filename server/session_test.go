package main

import (
	"errors"
	"testing"

	"github.com/vfxecho/Aetlis/server/arena"
)

func newTestManager(mutate func(*arena.Settings)) *SessionManager {
	return NewSessionManager(testConfig(mutate).Arena, 1)
}

func TestSessionManagerWorldLimit(t *testing.T) {
	sm := newTestManager(func(s *arena.Settings) { s.WorldMaxCount = 2 })

	a, err := sm.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sm.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := sm.Create(); !errors.Is(err, ErrTooManyWorlds) {
		t.Fatalf("expected ErrTooManyWorlds, got %v", err)
	}

	sm.Remove(a.ID)
	if sm.Get(a.ID) != nil {
		t.Error("removed world still resolves")
	}
	if sm.WorldCount() != 1 {
		t.Errorf("expected 1 world, got %d", sm.WorldCount())
	}
	if _, err := sm.Create(); err != nil {
		t.Errorf("create after remove: %v", err)
	}
	sm.Remove("unknown")
}

func TestSessionIDsAreUUIDs(t *testing.T) {
	sm := newTestManager(nil)
	s, err := sm.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !uuidPathRe.MatchString("/" + s.ID) {
		t.Errorf("world id %q is not a UUID", s.ID)
	}
	if s.World.ID != s.ID {
		t.Errorf("world carries id %q, session %q", s.World.ID, s.ID)
	}
}

func TestPlayerIDsUniqueAcrossWorlds(t *testing.T) {
	sm := newTestManager(nil)
	a, _ := sm.Create()
	b, _ := sm.Create()

	seen := make(map[arena.PlayerID]bool)
	for i := 0; i < 10; i++ {
		for _, s := range []*Session{a, b} {
			p := s.World.AddPlayer(arena.NewRouter(arena.RouterPlayer, nil))
			if seen[p.ID] {
				t.Fatalf("duplicate player id %d", p.ID)
			}
			seen[p.ID] = true
		}
	}
}

func TestMatchPrefersBusiestOpenWorld(t *testing.T) {
	sm := newTestManager(func(s *arena.Settings) {
		s.WorldMaxPlayers = 3
		s.WorldMaxCount = 3
	})
	quiet, _ := sm.Create()
	busy, _ := sm.Create()
	quiet.World.AddPlayer(arena.NewRouter(arena.RouterPlayer, nil))
	busy.World.AddPlayer(arena.NewRouter(arena.RouterPlayer, nil))
	busy.World.AddPlayer(arena.NewRouter(arena.RouterPlayer, nil))
	// bots do not take seats
	busy.World.AddPlayer(arena.NewRouter(arena.RouterBot, nil))

	got, err := sm.Match()
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got != busy {
		t.Error("expected the busier world")
	}

	busy.World.AddPlayer(arena.NewRouter(arena.RouterPlayer, nil))
	if got, _ := sm.Match(); got != quiet {
		t.Error("full world must be skipped")
	}
}

func TestListOrdersByPlayers(t *testing.T) {
	sm := newTestManager(nil)
	a, _ := sm.Create()
	b, _ := sm.Create()
	b.World.AddPlayer(arena.NewRouter(arena.RouterPlayer, nil))
	a.World.Update()
	b.World.Update()

	list := sm.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 worlds, got %d", len(list))
	}
	if list[0].ID != b.ID {
		t.Errorf("expected %s first, got %s", b.ID, list[0].ID)
	}
	if list[0].Stats.External != 1 || list[0].Stats.Gamemode != "FFA" {
		t.Errorf("unexpected stats %+v", list[0].Stats)
	}
}

func TestSetSettingsAffectsNewWorlds(t *testing.T) {
	sm := newTestManager(nil)
	old, _ := sm.Create()
	s := sm.Settings()
	s.PelletCount = 9
	sm.SetSettings(s)
	fresh, _ := sm.Create()

	if old.World.Settings().PelletCount == 9 {
		t.Error("running world picked up new settings without a reload")
	}
	if fresh.World.Settings().PelletCount != 9 {
		t.Errorf("new world pellet count %d", fresh.World.Settings().PelletCount)
	}
}
