package arena

import "github.com/vfxecho/Aetlis/server/quadtree"

// VisibleCells appends to buf every cell p can see: its own group's cells and
// everything intersecting its view area, except ejected mass younger than two
// ticks. The view query is never capped by the finder's max search. Call it
// between ticks only.
func (w *World) VisibleCells(p *Player, buf []*Cell) []*Cell {
	if p.world != w {
		return buf
	}
	if p.visible == nil {
		p.visible = make(map[CellID]struct{}, 64)
	}
	seen := p.visible
	clear(seen)
	add := func(c *Cell) {
		if c.Kind == KindEjected && c.Age(w.tick) <= 1 {
			return
		}
		if _, ok := seen[c.ID]; ok {
			return
		}
		seen[c.ID] = struct{}{}
		buf = append(buf, c)
	}

	owner, dual := p.group()
	for _, c := range owner.OwnedCells {
		add(c)
	}
	if dual != nil {
		for _, c := range dual.OwnedCells {
			add(c)
		}
	}
	view := quadtree.Rect{X: p.View.X, Y: p.View.Y, W: p.View.W, H: p.View.H}
	w.finder.SearchAll(view, func(it *quadtree.Item[*Cell]) {
		add(it.Value)
	})
	return buf
}
