package book

// Store is the polymorphic price-level container. The order book is
// written once against this interface; DenseStore and SparseStore are
// the two concrete variants selected at book construction time (spec
// §4.4, §9 — monomorphize the book over a closed variant set rather than
// dispatch on the hot path is the systems-language framing; in Go, one
// virtual call per operation through this interface is the idiomatic
// equivalent and the book never type-switches on it).
type Store interface {
	// GetOrCreateLevel returns the level at px, creating an empty one if
	// none exists yet. px must satisfy IsValidPrice.
	GetOrCreateLevel(px Tick) *LevelFIFO
	// Level returns the level at px, or nil if none has ever been created.
	Level(px Tick) *LevelFIFO
	// HasLevel reports whether px has a level that currently holds resting
	// orders.
	HasLevel(px Tick) bool
	// IsValidPrice reports whether px could be a resting price in this
	// store (band membership for dense, any non-sentinel tick for sparse).
	IsValidPrice(px Tick) bool

	// Best returns the current best price on this side, or the side's
	// empty sentinel.
	Best() Tick
	// BestLevel returns the level at Best(), or nil if empty.
	BestLevel() *LevelFIFO
	// SetBest sets the cached best price (and level pointer) directly,
	// used when a new order improves the best.
	SetBest(px Tick)
	// RefreshBest is called after the level at the current best has been
	// depleted; it scans outward for the next non-empty level and updates
	// Best/BestLevel, setting the empty sentinel if none is found.
	RefreshBest()
	// Touch notifies the store that the level at px may have just
	// transitioned between empty and non-empty, so any cached aggregate
	// used by RefreshBest stays accurate. Must be called after any
	// mutation that can flip a level's emptiness (not needed for
	// quantity-only changes that leave it non-empty either way).
	Touch(px Tick)

	// ForEachNonEmpty visits non-empty levels in priority order (best
	// first) until fn returns false.
	ForEachNonEmpty(fn func(*LevelFIFO) bool)
}
