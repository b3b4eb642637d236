package book

// Command is one inbound order instruction, already decoded from the
// wire command record (spec §6).
type Command struct {
	OrderID    uint64
	UserID     uint32
	Side       Side
	Price      Tick
	Qty        Qty
	TIF        TIF
	OrderType  OrderType
	Flags      Flags
	TS         uint64
	StopPrice  Tick
	DisplayQty Qty
	ExpiryTS   uint64
}

// OrderBook owns the two price-level stores, the slab pool, and the id
// index for one symbol. It is single-writer: every method must be
// called from the one thread that owns it (spec §5).
type OrderBook struct {
	bids Store
	asks Store

	pool  *SlabPool
	index *IDIndex

	onTrade      TradeSink
	onBookUpdate BookUpdateSink

	now func() uint64
}

// NewOrderBook wires a book over the given per-side stores. bids must be
// a store constructed with side=Bid, asks with side=Ask (same variant
// kind on both sides is a caller convention, not an invariant the book
// enforces).
func NewOrderBook(bids, asks Store, pool *SlabPool, now func() uint64, onTrade TradeSink, onUpdate BookUpdateSink) *OrderBook {
	return &OrderBook{
		bids:         bids,
		asks:         asks,
		pool:         pool,
		index:        NewIDIndex(),
		onTrade:      onTrade,
		onBookUpdate: onUpdate,
		now:          now,
	}
}

func (b *OrderBook) storeFor(s Side) Store {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// SubmitLimit implements spec §4.5.1.
func (b *OrderBook) SubmitLimit(cmd Command) Result {
	defer b.emitBookUpdate()

	if cmd.Qty <= 0 || !cmd.Price.Valid() {
		return Result{}
	}
	if cmd.OrderType == StopLimit || cmd.OrderType == StopMarket || cmd.Flags.Has(Stop) {
		// OQ-4: stop orders are rejected at the boundary; the core has no
		// trigger loop.
		return Result{}
	}
	if cmd.TIF == FOK && cmd.Flags.Has(STP) {
		// OQ-1: reject FOK+STP rather than risk the precheck
		// overestimating fillable liquidity that STP would then skip.
		return Result{}
	}
	own := b.storeFor(cmd.Side)
	if !own.IsValidPrice(cmd.Price) {
		return Result{}
	}
	if cmd.Flags.Has(PostOnly) && b.wouldCross(cmd.Side, cmd.Price) {
		return Result{}
	}

	if cmd.TIF == FOK {
		if !b.fokPrecheck(cmd) {
			return Result{}
		}
	}

	remaining := cmd.Qty
	filled := cmd.Qty - b.cross(cmd.OrderID, cmd.UserID, cmd.Side, cmd.Price, cmd.Flags, cmd.TS, &remaining)
	filled = cmd.Qty - remaining

	switch cmd.TIF {
	case IOC, FOK:
		return Result{Filled: filled, Remaining: 0}
	default: // GTC, GTD
		if remaining > 0 {
			b.rest(cmd, remaining)
		}
		return Result{Filled: filled, Remaining: remaining}
	}
}

// SubmitMarket implements spec §4.5.2: equivalent to a limit at the
// opposite side's sentinel, with no resting behavior for any remainder.
func (b *OrderBook) SubmitMarket(cmd Command) Result {
	defer b.emitBookUpdate()

	if cmd.Qty <= 0 {
		return Result{}
	}
	if cmd.OrderType == StopLimit || cmd.OrderType == StopMarket || cmd.Flags.Has(Stop) {
		return Result{}
	}

	remaining := cmd.Qty
	b.cross(cmd.OrderID, cmd.UserID, cmd.Side, marketLimitPrice(cmd.Side), cmd.Flags, cmd.TS, &remaining)
	return Result{Filled: cmd.Qty - remaining, Remaining: remaining}
}

func marketLimitPrice(side Side) Tick {
	if side == Bid {
		return NoAsk
	}
	return NoBid
}

// wouldCross reports whether a resting order at px on side would cross
// the current opposite best (used by the POST_ONLY boundary check).
func (b *OrderBook) wouldCross(side Side, px Tick) bool {
	if side == Bid {
		best := b.asks.Best()
		return best != NoAsk && px >= best
	}
	best := b.bids.Best()
	return best != NoBid && px <= best
}

// fokPrecheck walks the opposite side from best outward, summing
// total_qty until it meets cmd.Qty or the limit price is violated,
// bounded by 10,000 steps (spec §4.5.1 step 1). It does not account for
// STP (OQ-1 forecloses the combination instead).
func (b *OrderBook) fokPrecheck(cmd Command) bool {
	opp := b.storeFor(cmd.Side.Opposite())
	var available Qty
	steps := 0
	var ok bool
	opp.ForEachNonEmpty(func(l *LevelFIFO) bool {
		if steps >= denseScanCap {
			return false
		}
		steps++
		if cmd.Side == Bid {
			if l.Price > cmd.Price {
				return false
			}
		} else {
			if l.Price < cmd.Price {
				return false
			}
		}
		available += l.TotalQty
		if available >= cmd.Qty {
			ok = true
			return false
		}
		return true
	})
	return ok
}

// cross walks the opposite side, matching the taker against resting
// makers head-to-tail within each level, honoring STP, and decrements
// *remaining as it fills. It returns the quantity filled.
func (b *OrderBook) cross(takerID uint64, takerUser uint32, side Side, limit Tick, flags Flags, ts uint64, remaining *Qty) Qty {
	opp := b.storeFor(side.Opposite())
	var filled Qty

	for *remaining > 0 {
		best := opp.Best()
		if !crosses(side, limit, best) {
			return filled
		}
		lvl := opp.BestLevel()
		if lvl == nil {
			return filled
		}

		matchedHere, blockedBySelfTrade := b.matchLevel(lvl, takerID, takerUser, flags, ts, remaining)
		filled += matchedHere

		if lvl.Empty() {
			opp.Touch(lvl.Price)
			opp.RefreshBest()
			continue
		}
		if blockedBySelfTrade {
			// Every remaining resting order at this level belongs to the
			// taker's own user; STP forbids matching them and the book's
			// best on this side must stay put (the level is not empty).
			// OQ-5: the core does not look past a level fully blocked by
			// self-trade prevention within one command.
			return filled
		}
	}
	return filled
}

// crosses reports whether a taker on side, limited at limit, crosses the
// opposite side's best price.
func crosses(side Side, limit, oppBest Tick) bool {
	if side == Bid {
		return oppBest != NoAsk && oppBest <= limit
	}
	return oppBest != NoBid && oppBest >= limit
}

// matchLevel consumes makers from lvl head-to-tail until *remaining hits
// zero or every node has been visited. blockedBySelfTrade reports
// whether the walk ran out of nodes (lvl still non-empty) because every
// remaining node was skipped by STP.
func (b *OrderBook) matchLevel(lvl *LevelFIFO, takerID uint64, takerUser uint32, flags Flags, ts uint64, remaining *Qty) (matched Qty, blockedBySelfTrade bool) {
	cursor := lvl.Head()
	for cursor != nil && *remaining > 0 {
		next := cursor.Next()
		if flags.Has(STP) && cursor.UserID == takerUser {
			cursor = next
			continue
		}

		trade := *remaining
		if cursor.Qty < trade {
			trade = cursor.Qty
		}

		b.emitTrade(ts, takerID, cursor.OrderID, lvl.Price, trade)
		matched += trade
		*remaining -= trade

		if trade == cursor.Qty {
			lvl.Erase(cursor)
			b.index.Delete(cursor.OrderID)
			b.pool.Free(cursor)
		} else {
			lvl.ReduceQty(cursor, trade)
		}
		cursor = next
	}
	if cursor == nil && !lvl.Empty() && *remaining > 0 {
		blockedBySelfTrade = true
	}
	return matched, blockedBySelfTrade
}

// rest allocates a node for the remainder and enqueues it, updating the
// side's best if the new order improves it.
func (b *OrderBook) rest(cmd Command, remaining Qty) {
	own := b.storeFor(cmd.Side)
	n := b.pool.Alloc()
	n.OrderID = cmd.OrderID
	n.UserID = cmd.UserID
	n.Side = cmd.Side
	n.Price = cmd.Price
	n.Qty = remaining
	n.TS = cmd.TS
	n.Flags = cmd.Flags
	n.DisplayQty = cmd.DisplayQty
	n.HiddenQty = cmd.Qty - cmd.DisplayQty
	if n.HiddenQty < 0 {
		n.HiddenQty = 0
	}
	n.ExpiryTS = cmd.ExpiryTS
	n.StopPrice = cmd.StopPrice

	own.GetOrCreateLevel(cmd.Price).Enqueue(n)
	own.Touch(cmd.Price)
	b.index.Put(cmd.OrderID, cmd.Side, cmd.Price, n)

	best := own.Best()
	if cmd.Side == Bid {
		if best == NoBid || cmd.Price > best {
			own.SetBest(cmd.Price)
		}
	} else {
		if best == NoAsk || cmd.Price < best {
			own.SetBest(cmd.Price)
		}
	}
}

// Cancel implements spec §4.5.3.
func (b *OrderBook) Cancel(orderID uint64) bool {
	defer b.emitBookUpdate()

	side, px, node, ok := b.index.Get(orderID)
	if !ok {
		return false
	}
	store := b.storeFor(side)
	lvl := store.Level(px)
	lvl.Erase(node)
	b.index.Delete(orderID)
	b.pool.Free(node)

	if lvl.Empty() {
		store.Touch(px)
		if store.Best() == px {
			store.RefreshBest()
		}
	}
	return true
}

// Modify implements spec §4.5.4.
func (b *OrderBook) Modify(orderID uint64, newPrice Tick, newQty Qty) Result {
	side, px, node, ok := b.index.Get(orderID)
	if !ok {
		defer b.emitBookUpdate()
		return Result{}
	}

	if newPrice == px && newQty > 0 && newQty <= node.Qty {
		// In-place downsize (or no-op): priority preserved.
		defer b.emitBookUpdate()
		if newQty < node.Qty {
			store := b.storeFor(side)
			lvl := store.Level(px)
			lvl.ReduceQty(node, node.Qty-newQty)
		}
		return Result{Filled: 0, Remaining: newQty}
	}

	// Cancel-and-replace: priority lost. Reuse the same order id, user,
	// and flags; the replacement may cross and fill immediately.
	userID := node.UserID
	flags := node.Flags
	displayQty := node.DisplayQty
	expiry := node.ExpiryTS
	ts := node.TS

	// Cancel without its own book update: the SubmitLimit below emits the
	// single update for this Modify.
	sink := b.onBookUpdate
	b.onBookUpdate = nil
	b.Cancel(orderID)
	b.onBookUpdate = sink

	return b.SubmitLimit(Command{
		OrderID:    orderID,
		UserID:     userID,
		Side:       side,
		Price:      newPrice,
		Qty:        newQty,
		TIF:        GTC,
		OrderType:  Limit,
		Flags:      flags,
		TS:         ts,
		DisplayQty: displayQty,
		ExpiryTS:   expiry,
	})
}

func (b *OrderBook) emitTrade(ts, takerID, makerID uint64, px Tick, qty Qty) {
	if b.onTrade == nil {
		return
	}
	b.onTrade(TradeEvent{TS: ts, TakerID: takerID, MakerID: makerID, Price: px, Qty: qty})
}

func (b *OrderBook) emitBookUpdate() {
	if b.onBookUpdate == nil {
		return
	}
	ts := uint64(0)
	if b.now != nil {
		ts = b.now()
	}
	bb, ba := b.bids.Best(), b.asks.Best()
	var bq, aq Qty
	if l := b.bids.BestLevel(); l != nil {
		bq = l.TotalQty
	}
	if l := b.asks.BestLevel(); l != nil {
		aq = l.TotalQty
	}
	b.onBookUpdate(BookUpdate{TS: ts, BestBid: bb, BestAsk: ba, BidQty: bq, AskQty: aq})
}

// BestBid and BestAsk expose the current bests for diagnostics/tests.
func (b *OrderBook) BestBid() Tick { return b.bids.Best() }
func (b *OrderBook) BestAsk() Tick { return b.asks.Best() }

// Indexed reports whether orderID currently has a resting entry — used
// by tests checking TIF semantics (P5).
func (b *OrderBook) Indexed(orderID uint64) bool {
	_, _, _, ok := b.index.Get(orderID)
	return ok
}
