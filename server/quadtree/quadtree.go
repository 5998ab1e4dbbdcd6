// Package quadtree is a region quadtree over axis-aligned boxes used as the
// broad-phase index of the arena.
//
// Items live in the deepest node whose bounds fully contain them, so a box
// straddling a split line stays in the parent. Mutation (Insert, Update,
// Remove, Reset) must never run concurrently with itself or with searches;
// any number of Search and ContainsAny calls may run in parallel while the
// tree is not being mutated.
package quadtree

// Rect is an axis-aligned box stored as a centre point and half extents
type Rect struct {
	X, Y float64
	W, H float64
}

// Intersects reports whether r and o overlap (touching edges count)
func (r Rect) Intersects(o Rect) bool {
	return r.X-r.W <= o.X+o.W &&
		r.X+r.W >= o.X-o.W &&
		r.Y-r.H <= o.Y+o.H &&
		r.Y+r.H >= o.Y-o.H
}

// Contains reports whether o lies entirely inside r
func (r Rect) Contains(o Rect) bool {
	return r.X-r.W <= o.X-o.W &&
		r.X+r.W >= o.X+o.W &&
		r.Y-r.H <= o.Y-o.H &&
		r.Y+r.H >= o.Y+o.H
}

// Item is a value indexed by its current bounding box. The owner keeps the
// pointer and calls Update after changing Range.
type Item[T any] struct {
	Value T
	Range Rect
	node  *node[T]
}

// Indexed reports whether the item is currently stored in a tree
func (it *Item[T]) Indexed() bool { return it.node != nil }

// Tree is the quadtree root plus its limits
type Tree[T any] struct {
	root      *node[T]
	maxLevel  int
	maxItems  int
	maxSearch int
	count     int
}

type node[T any] struct {
	tree     *Tree[T]
	parent   *node[T]
	level    int
	bounds   Rect
	items    []*Item[T]
	branches []*node[T]
}

// New creates an empty tree covering bounds. A node splits once it holds more
// than maxItems and its level is below maxLevel. maxSearch caps the number of
// intersecting items a single search inspects; zero means unlimited.
func New[T any](bounds Rect, maxLevel, maxItems, maxSearch int) *Tree[T] {
	if maxItems < 1 {
		maxItems = 1
	}
	t := &Tree[T]{maxLevel: maxLevel, maxItems: maxItems, maxSearch: maxSearch}
	t.root = &node[T]{tree: t, bounds: bounds}
	return t
}

// Len returns the number of indexed items
func (t *Tree[T]) Len() int { return t.count }

// Bounds returns the region covered by the root
func (t *Tree[T]) Bounds() Rect { return t.root.bounds }

// Insert indexes it. Inserting an item that is already indexed acts as Update.
func (t *Tree[T]) Insert(it *Item[T]) {
	if it.node != nil {
		t.Update(it)
		return
	}
	t.root.insert(it)
	t.count++
}

// Update moves it to the node matching its current Range. Items that still
// fit their node (and no child) are left in place.
func (t *Tree[T]) Update(it *Item[T]) {
	n := it.node
	if n == nil {
		t.Insert(it)
		return
	}
	fits := n.parent == nil || n.bounds.Contains(it.Range)
	if fits && (n.branches == nil || n.childFor(it.Range) == nil) {
		return
	}
	n.removeItem(it)
	it.node = nil
	target := n
	for target.parent != nil && !target.bounds.Contains(it.Range) {
		target = target.parent
	}
	target.insert(it)
	n.merge()
}

// Remove drops it from the tree. It returns false if it was not indexed.
func (t *Tree[T]) Remove(it *Item[T]) bool {
	n := it.node
	if n == nil {
		return false
	}
	n.removeItem(it)
	it.node = nil
	t.count--
	n.merge()
	return true
}

// Reset empties the tree and re-roots it at bounds. Every item previously
// stored is marked as not indexed.
func (t *Tree[T]) Reset(bounds Rect) {
	t.root.walk(func(it *Item[T]) { it.node = nil })
	t.root = &node[T]{tree: t, bounds: bounds}
	t.count = 0
}

// Search calls visit for every item whose Range intersects r and returns how
// many items were visited. The search ends early when visit returns true or
// when the tree's max search count is reached.
func (t *Tree[T]) Search(r Rect, visit func(*Item[T]) bool) int {
	count := 0
	t.root.search(r, visit, &count, t.maxSearch)
	return count
}

// SearchAll visits every item intersecting r, ignoring the search cap
func (t *Tree[T]) SearchAll(r Rect, visit func(*Item[T])) int {
	count := 0
	t.root.search(r, func(it *Item[T]) bool {
		visit(it)
		return false
	}, &count, 0)
	return count
}

// ContainsAny reports whether any item intersecting r satisfies pred
func (t *Tree[T]) ContainsAny(r Rect, pred func(*Item[T]) bool) bool {
	return t.root.containsAny(r, pred)
}

// Depth returns the deepest level currently in use
func (t *Tree[T]) Depth() int {
	return t.root.depth()
}

func (n *node[T]) insert(it *Item[T]) {
	if n.branches != nil {
		if q := n.childFor(it.Range); q != nil {
			q.insert(it)
			return
		}
	}
	n.items = append(n.items, it)
	it.node = n
	if n.branches == nil && len(n.items) > n.tree.maxItems && n.level < n.tree.maxLevel {
		n.split()
	}
}

func (n *node[T]) childFor(r Rect) *node[T] {
	for _, b := range n.branches {
		if b.bounds.Contains(r) {
			return b
		}
	}
	return nil
}

func (n *node[T]) split() {
	hw, hh := n.bounds.W/2, n.bounds.H/2
	offsets := [4][2]float64{{-hw, -hh}, {hw, -hh}, {-hw, hh}, {hw, hh}}
	n.branches = make([]*node[T], 4)
	for i, o := range offsets {
		n.branches[i] = &node[T]{
			tree:   n.tree,
			parent: n,
			level:  n.level + 1,
			bounds: Rect{X: n.bounds.X + o[0], Y: n.bounds.Y + o[1], W: hw, H: hh},
		}
	}
	items := n.items
	kept := items[:0]
	for _, it := range items {
		if q := n.childFor(it.Range); q != nil {
			q.insert(it)
		} else {
			kept = append(kept, it)
		}
	}
	for i := len(kept); i < len(items); i++ {
		items[i] = nil
	}
	n.items = kept
}

func (n *node[T]) removeItem(it *Item[T]) {
	for i, x := range n.items {
		if x == it {
			last := len(n.items) - 1
			n.items[i] = n.items[last]
			n.items[last] = nil
			n.items = n.items[:last]
			return
		}
	}
}

// merge collapses ancestors whose leaf children together fit in one node
func (n *node[T]) merge() {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.branches == nil {
			continue
		}
		total := len(cur.items)
		for _, b := range cur.branches {
			if b.branches != nil {
				return
			}
			total += len(b.items)
		}
		if total > cur.tree.maxItems {
			return
		}
		for _, b := range cur.branches {
			for _, it := range b.items {
				it.node = cur
				cur.items = append(cur.items, it)
			}
		}
		cur.branches = nil
	}
}

func (n *node[T]) search(r Rect, visit func(*Item[T]) bool, count *int, max int) bool {
	for _, it := range n.items {
		if !r.Intersects(it.Range) {
			continue
		}
		*count++
		if visit(it) {
			return true
		}
		if max > 0 && *count >= max {
			return true
		}
	}
	for _, b := range n.branches {
		if b.bounds.Intersects(r) && b.search(r, visit, count, max) {
			return true
		}
	}
	return false
}

func (n *node[T]) containsAny(r Rect, pred func(*Item[T]) bool) bool {
	for _, it := range n.items {
		if r.Intersects(it.Range) && pred(it) {
			return true
		}
	}
	for _, b := range n.branches {
		if b.bounds.Intersects(r) && b.containsAny(r, pred) {
			return true
		}
	}
	return false
}

func (n *node[T]) walk(fn func(*Item[T])) {
	for _, it := range n.items {
		fn(it)
	}
	for _, b := range n.branches {
		b.walk(fn)
	}
}

func (n *node[T]) depth() int {
	d := n.level
	for _, b := range n.branches {
		if bd := b.depth(); bd > d {
			d = bd
		}
	}
	return d
}
