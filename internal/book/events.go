package book

// TradeEvent is emitted once per maker filled during a match.
type TradeEvent struct {
	TS       uint64
	TakerID  uint64
	MakerID  uint64
	Price    Tick
	Qty      Qty
}

// BookUpdate is emitted exactly once at the end of every public
// OrderBook operation, carrying the current bests and their level
// quantities. Bests may be sentinel values.
type BookUpdate struct {
	TS       uint64
	BestBid  Tick
	BestAsk  Tick
	BidQty   Qty
	AskQty   Qty
}

// TradeSink and BookUpdateSink are invoked synchronously from the
// calling (matching) thread — spec §4.5.5.
type TradeSink func(TradeEvent)
type BookUpdateSink func(BookUpdate)
