package quadtree

import (
	"math/rand"
	"testing"
)

func box(x, y, r float64) Rect { return Rect{X: x, Y: y, W: r, H: r} }

func newTestTree() *Tree[int] {
	return New[int](Rect{X: 0, Y: 0, W: 1000, H: 1000}, 8, 4, 0)
}

func collect(t *Tree[int], r Rect) map[int]bool {
	found := make(map[int]bool)
	t.Search(r, func(it *Item[int]) bool {
		found[it.Value] = true
		return false
	})
	return found
}

func TestRectIntersectsAndContains(t *testing.T) {
	a := box(0, 0, 10)
	if !a.Intersects(box(15, 0, 5)) {
		t.Error("touching boxes should intersect")
	}
	if a.Intersects(box(30, 0, 5)) {
		t.Error("distant boxes should not intersect")
	}
	if !a.Contains(box(2, 2, 3)) {
		t.Error("inner box should be contained")
	}
	if a.Contains(box(8, 0, 3)) {
		t.Error("box crossing the edge should not be contained")
	}
}

func TestInsertAndSearch(t *testing.T) {
	tree := newTestTree()
	items := []*Item[int]{
		{Value: 1, Range: box(100, 100, 10)},
		{Value: 2, Range: box(-400, 300, 10)},
		{Value: 3, Range: box(105, 95, 10)},
	}
	for _, it := range items {
		tree.Insert(it)
	}
	if tree.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", tree.Len())
	}

	found := collect(tree, box(100, 100, 20))
	if !found[1] || !found[3] {
		t.Errorf("expected items 1 and 3 near (100,100), got %v", found)
	}
	if found[2] {
		t.Error("item 2 should not be found near (100,100)")
	}
}

func TestSplitKeepsEveryItemReachable(t *testing.T) {
	tree := newTestTree()
	rng := rand.New(rand.NewSource(1))
	var items []*Item[int]
	for i := 0; i < 500; i++ {
		it := &Item[int]{Value: i, Range: box(rng.Float64()*1800-900, rng.Float64()*1800-900, 5+rng.Float64()*20)}
		items = append(items, it)
		tree.Insert(it)
	}
	if tree.Depth() == 0 {
		t.Error("expected the tree to subdivide")
	}
	for _, it := range items {
		if !collect(tree, it.Range)[it.Value] {
			t.Fatalf("item %d not reachable by its own range", it.Value)
		}
	}
}

func TestUpdateMovesItem(t *testing.T) {
	tree := newTestTree()
	for i := 0; i < 40; i++ {
		tree.Insert(&Item[int]{Value: 100 + i, Range: box(-800+float64(i)*40, -800, 5)})
	}
	it := &Item[int]{Value: 1, Range: box(-700, -700, 10)}
	tree.Insert(it)

	it.Range = box(700, 700, 10)
	tree.Update(it)

	if collect(tree, box(-700, -700, 20))[1] {
		t.Error("item should no longer be found at its old position")
	}
	if !collect(tree, box(700, 700, 20))[1] {
		t.Error("item should be found at its new position")
	}
	if tree.Len() != 41 {
		t.Errorf("update should not change the count, got %d", tree.Len())
	}
}

func TestRemove(t *testing.T) {
	tree := newTestTree()
	var items []*Item[int]
	for i := 0; i < 50; i++ {
		it := &Item[int]{Value: i, Range: box(float64(i)*10, float64(i)*10, 4)}
		items = append(items, it)
		tree.Insert(it)
	}
	for _, it := range items[:45] {
		if !tree.Remove(it) {
			t.Fatalf("remove %d returned false", it.Value)
		}
		if it.Indexed() {
			t.Fatalf("item %d still marked indexed", it.Value)
		}
	}
	if tree.Remove(items[0]) {
		t.Error("second remove should return false")
	}
	if tree.Len() != 5 {
		t.Errorf("expected 5 items, got %d", tree.Len())
	}
	found := collect(tree, Rect{W: 1000, H: 1000})
	if len(found) != 5 {
		t.Errorf("expected 5 reachable items, got %d", len(found))
	}
}

func TestSearchEarlyStopAndMaxSearch(t *testing.T) {
	tree := newTestTree()
	for i := 0; i < 20; i++ {
		tree.Insert(&Item[int]{Value: i, Range: box(0, 0, 5)})
	}
	visits := 0
	n := tree.Search(box(0, 0, 10), func(it *Item[int]) bool {
		visits++
		return true
	})
	if visits != 1 || n != 1 {
		t.Errorf("expected the search to stop after one visit, got visits=%d count=%d", visits, n)
	}

	capped := New[int](Rect{W: 1000, H: 1000}, 8, 4, 7)
	for i := 0; i < 20; i++ {
		capped.Insert(&Item[int]{Value: i, Range: box(0, 0, 5)})
	}
	if n := capped.Search(box(0, 0, 10), func(*Item[int]) bool { return false }); n != 7 {
		t.Errorf("expected max search to cap at 7, got %d", n)
	}
	if n := capped.SearchAll(box(0, 0, 10), func(*Item[int]) {}); n != 20 {
		t.Errorf("SearchAll should ignore the cap, got %d", n)
	}
}

func TestContainsAny(t *testing.T) {
	tree := newTestTree()
	tree.Insert(&Item[int]{Value: 1, Range: box(50, 50, 10)})
	tree.Insert(&Item[int]{Value: 2, Range: box(-50, -50, 10)})

	if !tree.ContainsAny(box(50, 50, 1), func(it *Item[int]) bool { return it.Value == 1 }) {
		t.Error("expected to find item 1")
	}
	if tree.ContainsAny(box(50, 50, 1), func(it *Item[int]) bool { return it.Value == 2 }) {
		t.Error("predicate should reject item 1 and item 2 is out of range")
	}
}

func TestOutOfBoundsItemsStayInRoot(t *testing.T) {
	tree := newTestTree()
	it := &Item[int]{Value: 9, Range: box(5000, 5000, 10)}
	tree.Insert(it)
	if !collect(tree, box(5000, 5000, 1))[9] {
		t.Error("item outside the root bounds should still be searchable")
	}
}

func TestReset(t *testing.T) {
	tree := newTestTree()
	it := &Item[int]{Value: 1, Range: box(0, 0, 10)}
	tree.Insert(it)
	tree.Reset(Rect{W: 10, H: 10})
	if it.Indexed() || tree.Len() != 0 {
		t.Error("reset should drop every item")
	}
	if tree.Bounds().W != 10 {
		t.Error("reset should re-root the tree")
	}
}
