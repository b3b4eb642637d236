package book

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchNonEmpty(t *rbTree, price Tick) {
	lvl := t.Find(price)
	lvl.Enqueue(&OrderNode{OrderID: uint64(price), Qty: 1})
	t.Touch(price)
}

func TestRBTreeNextNonEmptySkipsEmptyLevels(t *testing.T) {
	tr := newRBTree()
	for _, px := range []Tick{10, 20, 30, 40, 50} {
		tr.Upsert(px)
	}
	// Only 20 and 40 ever gain an order; 10, 30, 50 stay structurally
	// present but empty, as store_sparse.go leaves them on the hot path.
	touchNonEmpty(tr, 20)
	touchNonEmpty(tr, 40)

	px, lvl, ok := tr.NextNonEmpty(5)
	require.True(t, ok)
	assert.Equal(t, Tick(20), px)
	assert.Same(t, tr.Find(20), lvl)

	px, _, ok = tr.NextNonEmpty(20)
	require.True(t, ok)
	assert.Equal(t, Tick(40), px)

	_, _, ok = tr.NextNonEmpty(40)
	assert.False(t, ok)
}

func TestRBTreePrevNonEmptySkipsEmptyLevels(t *testing.T) {
	tr := newRBTree()
	for _, px := range []Tick{10, 20, 30, 40, 50} {
		tr.Upsert(px)
	}
	touchNonEmpty(tr, 20)
	touchNonEmpty(tr, 40)

	px, _, ok := tr.PrevNonEmpty(55)
	require.True(t, ok)
	assert.Equal(t, Tick(40), px)

	px, _, ok = tr.PrevNonEmpty(40)
	require.True(t, ok)
	assert.Equal(t, Tick(20), px)

	_, _, ok = tr.PrevNonEmpty(20)
	assert.False(t, ok)
}

// The root's cnt is the ground truth for how many non-empty levels exist
// anywhere in the tree; it must track Touch calls exactly, including
// through the rotations a large insert sequence forces.
func TestRBTreeAggregateTracksTouchesAcrossRotations(t *testing.T) {
	tr := newRBTree()
	rng := rand.New(rand.NewSource(1))
	prices := rng.Perm(500)

	for _, p := range prices {
		tr.Upsert(Tick(p))
	}
	assert.Equal(t, 0, tr.root.cnt)

	nonEmpty := 0
	for _, p := range prices {
		if p%3 == 0 {
			touchNonEmpty(tr, Tick(p))
			nonEmpty++
		}
	}
	assert.Equal(t, nonEmpty, tr.root.cnt)

	// Flip half of them back to empty and confirm the aggregate follows.
	for i, p := range prices {
		if p%3 == 0 && i%2 == 0 {
			lvl := tr.Find(Tick(p))
			lvl.Erase(lvl.Head())
			tr.Touch(Tick(p))
			nonEmpty--
		}
	}
	assert.Equal(t, nonEmpty, tr.root.cnt)
}

// Deleting nodes outright (CleanupEmptyLevels' path) must not corrupt the
// aggregate for the survivors.
func TestRBTreeAggregateSurvivesDeletion(t *testing.T) {
	tr := newRBTree()
	for _, px := range []Tick{5, 15, 25, 35, 45, 55, 65} {
		tr.Upsert(px)
	}
	touchNonEmpty(tr, 15)
	touchNonEmpty(tr, 35)
	touchNonEmpty(tr, 55)

	require.True(t, tr.Delete(25))
	require.True(t, tr.Delete(5))
	require.True(t, tr.Delete(65))

	assert.Equal(t, 3, tr.root.cnt)

	px, _, ok := tr.NextNonEmpty(0)
	require.True(t, ok)
	assert.Equal(t, Tick(15), px)

	px, _, ok = tr.PrevNonEmpty(100)
	require.True(t, ok)
	assert.Equal(t, Tick(55), px)
}

func TestRBTreeMinMaxRemovedInFavorOfNonEmptyLookup(t *testing.T) {
	tr := newRBTree()
	tr.Upsert(1)
	tr.Upsert(2)
	// No caller ever needs the structural min/max of the raw key set —
	// only the non-empty boundary, which NextNonEmpty/PrevNonEmpty from
	// the sentinel ticks already give the sparse store.
	_, _, ok := tr.NextNonEmpty(NoBid)
	assert.False(t, ok)
	touchNonEmpty(tr, 1)
	_, lvl, ok := tr.NextNonEmpty(NoBid)
	require.True(t, ok)
	assert.Equal(t, Tick(1), lvl.Price)
}
