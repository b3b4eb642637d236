package book

// denseScanCap bounds the linear scan for the next best level after
// depletion, per spec §4.4/§9.
const denseScanCap = 10000

// DenseStore is the dense-array price-level variant: a fixed inclusive
// tick band, one LevelFIFO per tick, O(1) indexed access.
type DenseStore struct {
	side           Side
	minTick        Tick
	maxTick        Tick
	levels         []LevelFIFO
	best           Tick
	bestIdx        int
	bestValid      bool
}

// NewDenseStore constructs a store covering [minTick, maxTick] inclusive.
func NewDenseStore(side Side, minTick, maxTick Tick) *DenseStore {
	if maxTick < minTick {
		panic("book: dense store requires maxTick >= minTick")
	}
	n := int(maxTick-minTick) + 1
	levels := make([]LevelFIFO, n)
	for i := range levels {
		levels[i].Price = minTick + Tick(i)
	}
	s := &DenseStore{side: side, minTick: minTick, maxTick: maxTick, levels: levels}
	s.best = emptySentinel(side)
	return s
}

func emptySentinel(side Side) Tick {
	if side == Bid {
		return NoBid
	}
	return NoAsk
}

func (s *DenseStore) IsValidPrice(px Tick) bool {
	return px >= s.minTick && px <= s.maxTick
}

func (s *DenseStore) idx(px Tick) int { return int(px - s.minTick) }

func (s *DenseStore) GetOrCreateLevel(px Tick) *LevelFIFO {
	return &s.levels[s.idx(px)]
}

func (s *DenseStore) Level(px Tick) *LevelFIFO {
	if !s.IsValidPrice(px) {
		return nil
	}
	return &s.levels[s.idx(px)]
}

func (s *DenseStore) HasLevel(px Tick) bool {
	if !s.IsValidPrice(px) {
		return false
	}
	return !s.levels[s.idx(px)].Empty()
}

func (s *DenseStore) Best() Tick { return s.best }

func (s *DenseStore) BestLevel() *LevelFIFO {
	if !s.bestValid {
		return nil
	}
	return &s.levels[s.bestIdx]
}

// Touch is a no-op: the dense array has no cached aggregate to
// invalidate, since RefreshBest scans the live slice directly.
func (s *DenseStore) Touch(px Tick) {}

func (s *DenseStore) SetBest(px Tick) {
	s.best = px
	if s.IsValidPrice(px) {
		s.bestIdx = s.idx(px)
		s.bestValid = true
	} else {
		s.bestValid = false
	}
}

// RefreshBest scans for the next non-empty level after the current best
// depleted: downward (toward lower ticks) for bids, upward for asks,
// capped at denseScanCap steps.
func (s *DenseStore) RefreshBest() {
	if !s.bestValid {
		return
	}
	step := 1
	if s.side == Bid {
		step = -1
	}
	i := s.bestIdx + step
	for n := 0; n < denseScanCap && i >= 0 && i < len(s.levels); n++ {
		if !s.levels[i].Empty() {
			s.bestIdx = i
			s.best = s.levels[i].Price
			return
		}
		i += step
	}
	s.bestValid = false
	s.best = emptySentinel(s.side)
}

// ForEachNonEmpty visits non-empty levels in priority order: descending
// for bids, ascending for asks.
func (s *DenseStore) ForEachNonEmpty(fn func(*LevelFIFO) bool) {
	if s.side == Bid {
		for i := len(s.levels) - 1; i >= 0; i-- {
			if s.levels[i].Empty() {
				continue
			}
			if !fn(&s.levels[i]) {
				return
			}
		}
		return
	}
	for i := 0; i < len(s.levels); i++ {
		if s.levels[i].Empty() {
			continue
		}
		if !fn(&s.levels[i]) {
			return
		}
	}
}
