package arena

import (
	"sync"
	"testing"
)

// recordingHooks counts router notifications
type recordingHooks struct {
	mu      sync.Mutex
	dead    int
	spawned int
	views   int
}

func (h *recordingHooks) OnDead(p *Player) {
	h.mu.Lock()
	h.dead++
	h.mu.Unlock()
}

func (h *recordingHooks) OnSpawned(p *Player) {
	h.mu.Lock()
	h.spawned++
	h.mu.Unlock()
}

func (h *recordingHooks) OnVisibleCellsChanged(p *Player) {
	h.mu.Lock()
	h.views++
	h.mu.Unlock()
}

func TestRouterQueueCaps(t *testing.T) {
	r := NewRouter(RouterPlayer, nil)
	for i := 0; i < 20; i++ {
		r.RequestSplit()
		r.RequestEject()
	}

	in := r.take(3, true)
	if in.splits != 3 {
		t.Errorf("expected 3 splits under the limit, got %d", in.splits)
	}
	if !in.eject {
		t.Error("expected a queued eject")
	}

	in = r.take(255, true)
	if in.splits != maxQueuedSplits-3 {
		t.Errorf("expected %d remaining splits, got %d", maxQueuedSplits-3, in.splits)
	}
	if in.eject {
		t.Error("eject queue should be drained after one take")
	}
}

func TestRouterEjectWaitsForDelay(t *testing.T) {
	r := NewRouter(RouterPlayer, nil)
	r.RequestEject()
	if in := r.take(0, false); in.eject {
		t.Fatal("eject consumed while the delay forbids it")
	}
	if in := r.take(0, true); !in.eject {
		t.Error("held eject should fire once allowed")
	}

	r.SetEjectMacro(true)
	for i := 0; i < 3; i++ {
		if in := r.take(0, true); !in.eject {
			t.Errorf("macro eject missing on take %d", i)
		}
	}
}

func TestRouterQEdge(t *testing.T) {
	r := NewRouter(RouterPlayer, nil)
	r.SetPressingQ(true)
	if !r.take(0, false).qEdge {
		t.Fatal("first take after pressing should report the edge")
	}
	if r.take(0, false).qEdge {
		t.Fatal("holding Q must not repeat the edge")
	}
	r.SetPressingQ(false)
	r.take(0, false)
	r.TogglePressHold()
	if !r.takeFrozen() {
		t.Error("frozen take should still report the Q edge")
	}
}

func TestRouterOneShotIntents(t *testing.T) {
	r := NewRouter(RouterPlayer, nil)
	r.RequestSpawn("bob", "skin")
	r.RequestSpectate(7)
	r.ToggleLinelock()
	r.RequestDualCreate()
	r.ToggleDual()

	in := r.take(0, false)
	if !in.spawn || in.spawnName != "bob" || in.spawnSkin != "skin" {
		t.Errorf("spawn intent lost: %+v", in)
	}
	if !in.spectate || in.spectatePID != 7 {
		t.Errorf("spectate intent lost: %+v", in)
	}
	if !in.linelock || !in.dualCreate || !in.dualToggle {
		t.Errorf("toggle intents lost: %+v", in)
	}

	in = r.take(0, false)
	if in.spawn || in.spectate || in.linelock || in.dualCreate || in.dualToggle {
		t.Errorf("one-shot intents fired twice: %+v", in)
	}
}

func TestRouterConcurrentRequests(t *testing.T) {
	r := NewRouter(RouterPlayer, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.SetPointer(float64(i), float64(i))
			r.RequestSplit()
			r.RequestEject()
		}(i)
	}
	wg.Wait()
	if in := r.take(255, true); in.splits != maxQueuedSplits || !in.eject {
		t.Errorf("expected capped queues, got %+v", in)
	}
}

func TestRouterHooksFire(t *testing.T) {
	w := newTestWorld(t, nil)
	h := &recordingHooks{}
	r := NewRouter(RouterPlayer, h)
	p := w.AddPlayer(r)
	if r.Player() != p {
		t.Fatal("router not attached to its player")
	}

	r.RequestSpawn("a", "")
	w.Update()
	w.KillPlayer(p, true)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.spawned != 1 {
		t.Errorf("expected 1 spawn notification, got %d", h.spawned)
	}
	if h.dead != 1 {
		t.Errorf("expected 1 death notification, got %d", h.dead)
	}
	if h.views != 1 {
		t.Errorf("expected 1 view notification, got %d", h.views)
	}
}
