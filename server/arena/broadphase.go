package arena

import (
	"sort"

	"github.com/vfxecho/Aetlis/server/quadtree"
)

type cellPair struct {
	a, b *Cell
}

// pairBatch is what one broad-phase worker found
type pairBatch struct {
	rigid   []cellPair
	eat     []cellPair
	inside  []*Cell
	queries int
	maxHits int
}

// priorityLess orders boosting cells first, then larger cells, then older ids
func priorityLess(a, b *Cell) bool {
	ab, bb := a.IsBoosting(), b.IsBoosting()
	if ab != bb {
		return ab
	}
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.ID < b.ID
}

func (w *World) skipsQuery(c *Cell) bool {
	switch {
	case c.Kind == KindPellet, c.skipQuery:
		return true
	case c.Kind == KindEjected:
		return c.Age(w.tick) <= 1 || !c.IsBoosting()
	}
	return false
}

// queryStride scans cells offset, offset+stride, ... against the index. It
// only reads world state.
func (w *World) queryStride(cells []*Cell, offset, stride int) pairBatch {
	var out pairBatch
	for i := offset; i < len(cells); i += stride {
		c := cells[i]
		if w.skipsQuery(c) {
			continue
		}
		hits := w.finder.Search(c.item.Range, func(it *quadtree.Item[*Cell]) bool {
			o := it.Value
			if !o.exists || o == c {
				return false
			}
			dx, dy := c.X-o.X, c.Y-o.Y
			d2 := dx*dx + dy*dy
			if c.Size > o.Size {
				if r := c.Size - o.Size; d2 <= r*r {
					out.inside = append(out.inside, o)
				}
			} else if r := o.Size - c.Size; d2 <= r*r {
				out.inside = append(out.inside, c)
			}
			switch w.eatResult(c, o) {
			case EatCollide:
				out.rigid = append(out.rigid, cellPair{c, o})
			case EatEat:
				out.eat = append(out.eat, cellPair{c, o})
			case EatInverted:
				out.eat = append(out.eat, cellPair{o, c})
			}
			return false
		})
		out.queries += hits
		out.maxHits = max(out.maxHits, hits)
	}
	return out
}

// broadPhase fans the query out over PhysicsThreads goroutines, each sending
// its batch back on a channel. Batches are merged after every worker is done
// and then put in a deterministic order.
func (w *World) broadPhase(cells []*Cell) (rigid, eat []cellPair, queries int) {
	n := max(1, min(w.settings.PhysicsThreads, len(cells)))
	results := make(chan pairBatch, n)
	for off := 0; off < n; off++ {
		go func(off int) {
			results <- w.queryStride(cells, off, n)
		}(off)
	}
	batches := make([]pairBatch, 0, n)
	for i := 0; i < n; i++ {
		batches = append(batches, <-results)
	}

	maxHits := 0
	for _, b := range batches {
		rigid = append(rigid, b.rigid...)
		eat = append(eat, b.eat...)
		for _, c := range b.inside {
			c.inside = true
		}
		queries += b.queries
		maxHits = max(maxHits, b.maxHits)
	}
	w.timing.MaxQueryPerCell = maxHits

	sort.Slice(rigid, func(i, j int) bool {
		if rigid[i].a.ID != rigid[j].a.ID {
			return rigid[i].a.ID < rigid[j].a.ID
		}
		return rigid[i].b.ID < rigid[j].b.ID
	})
	sortEatPairs(eat)
	return rigid, eat, queries
}

func sortEatPairs(eat []cellPair) {
	sort.Slice(eat, func(i, j int) bool {
		x, y := eat[i], eat[j]
		if x.a != y.a {
			return priorityLess(x.a, y.a)
		}
		return x.b.ID < y.b.ID
	})
}
