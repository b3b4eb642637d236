package book

// SparseStore is the sorted-map price-level variant, backed by a
// red-black tree keyed by Tick. Any tick distinct from both sentinels is
// a valid price. Empty levels are left in the tree on the hot path
// (cleanup is available separately) — spec §4.4.
type SparseStore struct {
	side      Side
	tree      *rbTree
	best      Tick
	bestLevel *LevelFIFO
}

// NewSparseStore constructs an empty sparse store for one side.
func NewSparseStore(side Side) *SparseStore {
	return &SparseStore{side: side, tree: newRBTree(), best: emptySentinel(side)}
}

func (s *SparseStore) IsValidPrice(px Tick) bool { return px.Valid() }

func (s *SparseStore) GetOrCreateLevel(px Tick) *LevelFIFO {
	return s.tree.Upsert(px)
}

func (s *SparseStore) Level(px Tick) *LevelFIFO {
	return s.tree.Find(px)
}

func (s *SparseStore) HasLevel(px Tick) bool {
	l := s.tree.Find(px)
	return l != nil && !l.Empty()
}

func (s *SparseStore) Best() Tick { return s.best }

func (s *SparseStore) BestLevel() *LevelFIFO {
	if s.best == emptySentinel(s.side) {
		return nil
	}
	return s.bestLevel
}

func (s *SparseStore) SetBest(px Tick) {
	s.best = px
	s.bestLevel = s.tree.Find(px)
}

// Touch tells the tree's aggregate that the level at px may have just
// flipped between empty and non-empty, so RefreshBest's subtree-pruning
// descent stays accurate. No-op if price has no node (nothing rests
// there to begin with).
func (s *SparseStore) Touch(px Tick) {
	s.tree.Touch(px)
}

// RefreshBest finds the next non-empty level beyond the depleted best —
// lower prices for bids, higher for asks — via the tree's cnt aggregate,
// which prunes whole empty subtrees in one descent rather than hopping
// key-by-key through however many depleted levels sit in between.
func (s *SparseStore) RefreshBest() {
	var (
		nextPx Tick
		lvl    *LevelFIFO
		ok     bool
	)
	if s.side == Bid {
		nextPx, lvl, ok = s.tree.PrevNonEmpty(s.best)
	} else {
		nextPx, lvl, ok = s.tree.NextNonEmpty(s.best)
	}
	if !ok {
		s.best = emptySentinel(s.side)
		s.bestLevel = nil
		return
	}
	s.best = nextPx
	s.bestLevel = lvl
}

// ForEachNonEmpty visits non-empty levels in priority order: descending
// for bids, ascending for asks.
func (s *SparseStore) ForEachNonEmpty(fn func(*LevelFIFO) bool) {
	visit := func(l *LevelFIFO) bool {
		if l.Empty() {
			return true
		}
		return fn(l)
	}
	if s.side == Bid {
		s.tree.ForEachDescending(visit)
		return
	}
	s.tree.ForEachAscending(visit)
}

// CleanupEmptyLevels removes every level currently holding no resting
// orders from the tree. Not called on the hot path (spec §4.4).
func (s *SparseStore) CleanupEmptyLevels() {
	var empties []Tick
	s.tree.ForEachAscending(func(l *LevelFIFO) bool {
		if l.Empty() {
			empties = append(empties, l.Price)
		}
		return true
	})
	for _, px := range empties {
		s.tree.Delete(px)
	}
}
