package arena

import "testing"

func TestSplitConservesSquareSize(t *testing.T) {
	w := newTestWorld(t, nil)
	p := spawnAt(w, 0, 0, 200)
	p.mouseX, p.mouseY = 500, 0

	w.SplitPlayer(p)
	if len(p.OwnedCells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(p.OwnedCells))
	}
	a, b := p.OwnedCells[0], p.OwnedCells[1]
	if !approx(a.SquareSize()+b.SquareSize(), 200*200, 1e-6) {
		t.Errorf("split changed square size to %f", a.SquareSize()+b.SquareSize())
	}
	if !approx(b.Size, 200/w.settings.PlayerSplitSizeDiv, 1e-9) {
		t.Errorf("expected launched size %f, got %f", 200/w.settings.PlayerSplitSizeDiv, b.Size)
	}
	if b.X <= a.X || !b.IsBoosting() {
		t.Error("split cell should be launched toward the pointer")
	}
}

func TestSplitRespectsMaxCells(t *testing.T) {
	w := newTestWorld(t, nil)
	p := spawnAt(w, 0, 0, 1500)
	p.mouseX, p.mouseY = 0, -500

	for i := 0; i < 8; i++ {
		w.SplitPlayer(p)
		if len(p.OwnedCells) > w.settings.PlayerMaxCells {
			t.Fatalf("split %d produced %d cells", i, len(p.OwnedCells))
		}
	}
	if len(p.OwnedCells) != w.settings.PlayerMaxCells {
		t.Errorf("expected %d cells, got %d", w.settings.PlayerMaxCells, len(p.OwnedCells))
	}
	if w.canSplit(p) {
		t.Error("canSplit should be false at the cell cap")
	}
	var sq float64
	for _, c := range p.OwnedCells {
		sq += c.SquareSize()
	}
	if !approx(sq, 1500*1500, 1e-3) {
		t.Errorf("repeated splits changed square size to %f", sq)
	}
}

func TestSmallCellsCannotSplit(t *testing.T) {
	w := newTestWorld(t, nil)
	p := spawnAt(w, 0, 0, w.settings.PlayerMinSplitSize-1)
	if w.canSplit(p) {
		t.Error("cell below the split size reported splittable")
	}
	w.SplitPlayer(p)
	if len(p.OwnedCells) != 1 {
		t.Errorf("expected 1 cell, got %d", len(p.OwnedCells))
	}
}

func TestEjectLosesMass(t *testing.T) {
	w := newTestWorld(t, nil)
	p := spawnAt(w, 0, 0, 200)
	p.mouseX, p.mouseY = 500, 0
	c := p.OwnedCells[0]

	w.EjectFromPlayer(p)
	if _, _, _, ejects := w.Counts(); ejects != 0 {
		t.Fatal("cells younger than three ticks must not eject")
	}

	w.tick = 10
	w.EjectFromPlayer(p)
	loss := w.settings.EjectingLoss * w.settings.EjectingLoss
	if !approx(c.SquareSize(), 200*200-loss, 1e-6) {
		t.Errorf("expected square size %f, got %f", 200*200-loss, c.SquareSize())
	}
	if _, _, _, ejects := w.Counts(); ejects != 1 {
		t.Errorf("expected 1 eject, got %d", ejects)
	}
	var ejected *Cell
	for _, o := range w.Cells() {
		if o.Kind == KindEjected {
			ejected = o
		}
	}
	if ejected == nil || ejected.OwnerID != p.ID || !ejected.IsBoosting() {
		t.Fatal("ejected cell missing or not boosting")
	}
}

func TestVirusPopsPlayer(t *testing.T) {
	w := newTestWorld(t, nil)
	p := spawnAt(w, 0, 0, 500)
	c := p.OwnedCells[0]
	v := w.newVirus(10, 0)
	w.AddCell(v)

	if !w.resolveEat(c, v) {
		t.Fatal("large player should eat the virus")
	}
	if len(p.OwnedCells) < 2 {
		t.Fatalf("virus did not pop the player, %d cells", len(p.OwnedCells))
	}
	var sq float64
	for _, oc := range p.OwnedCells {
		sq += oc.SquareSize()
	}
	if !approx(sq, 500*500+100*100, 1e-3) {
		t.Errorf("popping changed square size to %f", sq)
	}
	if !p.justPopped {
		t.Fatal("player should be marked as just popped")
	}

	_, _, _, before := w.Counts()
	w.tick = p.poppedUntilTick - 1
	w.EjectFromPlayer(p)
	if _, _, _, after := w.Counts(); after != before {
		t.Error("eject right after a pop should be blocked")
	}
}

func TestDistributeCellMassStaysBelowMass(t *testing.T) {
	for _, monotone := range []bool{false, true} {
		w := newTestWorld(t, func(s *Settings) { s.VirusMonotonePops = monotone })
		for _, size := range []float64{70, 150, 400, 1000, 1500} {
			p := spawnAt(w, 0, 0, size)
			c := p.OwnedCells[0]
			dist := w.distributeCellMass(c)
			var sum float64
			for _, m := range dist {
				if m <= 0 {
					t.Errorf("size %f: non-positive piece %f", size, m)
				}
				sum += m
			}
			if sum >= c.Mass() {
				t.Errorf("size %f monotone=%v: pieces sum %f >= mass %f", size, monotone, sum, c.Mass())
			}
			if len(dist) > w.settings.PlayerMaxCells-1 {
				t.Errorf("size %f: %d pieces exceed free slots", size, len(dist))
			}
			w.RemovePlayer(p)
		}
	}
}

func TestVirusSplitsAfterFeeding(t *testing.T) {
	w := newTestWorld(t, nil)
	v := w.newVirus(0, 0)
	w.AddCell(v)

	for i := 0; i < w.settings.VirusFeedTimes; i++ {
		e := w.newEjected(nil, 10, 0, 0)
		e.Boost = Boost{DX: 1, D: 0}
		w.AddCell(e)
		if !w.resolveEat(v, e) {
			t.Fatalf("feed %d: virus did not eat the ejected cell", i)
		}
	}
	if _, viruses, _, _ := w.Counts(); viruses != 2 {
		t.Errorf("expected the virus to split, %d viruses", viruses)
	}
	if v.Size != w.settings.VirusSize {
		t.Errorf("fed virus should shrink back to %f, got %f", w.settings.VirusSize, v.Size)
	}
}
