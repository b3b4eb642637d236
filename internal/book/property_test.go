package book

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// harness wraps an OrderBook plus enough bookkeeping to check
// conservation and replay invariants against a rapid-generated command
// sequence.
type harness struct {
	ob         *OrderBook
	pool       *SlabPool
	trades     []TradeEvent
	updates    []BookUpdate
	nextID     uint64
	submitted  map[uint64]Qty // orderID -> original qty
	filledSum  map[uint64]Qty // orderID -> cumulative filled (as maker or taker)
}

func newHarness() *harness {
	pool := NewSlabPool(1 << 16)
	bids := NewDenseStore(Bid, 1, 2000)
	asks := NewDenseStore(Ask, 1, 2000)
	h := &harness{
		pool:      pool,
		submitted: make(map[uint64]Qty),
		filledSum: make(map[uint64]Qty),
	}
	h.ob = NewOrderBook(bids, asks, pool, nil,
		func(e TradeEvent) {
			h.trades = append(h.trades, e)
			h.filledSum[e.TakerID] += e.Qty
			h.filledSum[e.MakerID] += e.Qty
		},
		func(u BookUpdate) { h.updates = append(h.updates, u) },
	)
	return h
}

func (h *harness) close() { _ = h.pool.Close() }

// genCommand draws one random submit/cancel command from t.
func genCommand(t *rapid.T, live *[]uint64) func(h *harness) {
	kind := rapid.SampledFrom([]string{"limit", "cancel"}).Draw(t, "kind")
	side := Side(rapid.IntRange(0, 1).Draw(t, "side"))
	px := Tick(rapid.IntRange(900, 1100).Draw(t, "price"))
	qty := Qty(rapid.IntRange(1, 20).Draw(t, "qty"))
	user := uint32(rapid.IntRange(1, 4).Draw(t, "user"))
	tif := TIF(rapid.IntRange(0, 1).Draw(t, "tif")) // GTC or IOC only, to keep FOK precheck out of the fuzz loop
	stp := rapid.Bool().Draw(t, "stp")

	if kind == "cancel" && len(*live) > 0 {
		idx := rapid.IntRange(0, len(*live)-1).Draw(t, "cancelIdx")
		id := (*live)[idx]
		return func(h *harness) {
			h.ob.Cancel(id)
		}
	}

	return func(h *harness) {
		h.nextID++
		id := h.nextID
		cmd := Command{OrderID: id, UserID: user, Side: side, Price: px, Qty: qty, TIF: tif, OrderType: Limit, TS: id}
		if stp {
			cmd.Flags = STP
		}
		h.submitted[id] = qty
		res := h.ob.SubmitLimit(cmd)
		if res.Remaining > 0 {
			*live = append(*live, id)
		}
	}
}

// P1: after any sequence of valid commands, the book's structural
// invariants hold (I1, I5) — best price matches the true extremum among
// non-empty levels, and each level's cached total matches the sum of its
// members.
func TestPropertyInvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		defer h.close()

		var live []uint64
		n := rapid.IntRange(1, 40).Draw(t, "numCommands")
		for i := 0; i < n; i++ {
			genCommand(t, &live)(h)
		}

		checkBestInvariant(t, h.ob.bids)
		checkBestInvariant(t, h.ob.asks)
		checkLevelTotals(t, h.ob.bids)
		checkLevelTotals(t, h.ob.asks)
	})
}

func checkBestInvariant(t *rapid.T, s Store) {
	ds, ok := s.(*DenseStore)
	if !ok {
		return
	}
	var extremum Tick = emptySentinel(ds.side)
	found := false
	ds.ForEachNonEmpty(func(l *LevelFIFO) bool {
		extremum = l.Price
		found = true
		return false // first visited in priority order is the extremum
	})
	if !found {
		require.Equal(t, emptySentinel(ds.side), ds.Best())
		return
	}
	require.Equal(t, extremum, ds.Best())
}

func checkLevelTotals(t *rapid.T, s Store) {
	ds, ok := s.(*DenseStore)
	if !ok {
		return
	}
	ds.ForEachNonEmpty(func(l *LevelFIFO) bool {
		var sum Qty
		count := 0
		for n := l.Head(); n != nil; n = n.Next() {
			sum += n.Qty
			count++
		}
		require.Equal(t, l.TotalQty, sum)
		require.Equal(t, l.Count, count)
		return true
	})
}

// P4: conservation — total filled quantity across all trades never
// exceeds the total quantity submitted, and every trade's quantity is
// strictly positive.
func TestPropertyConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		defer h.close()

		var live []uint64
		n := rapid.IntRange(1, 40).Draw(t, "numCommands")
		for i := 0; i < n; i++ {
			genCommand(t, &live)(h)
		}

		var submittedTotal, tradedTotal Qty
		for _, q := range h.submitted {
			submittedTotal += q
		}
		for _, tr := range h.trades {
			require.Greater(t, tr.Qty, Qty(0))
			tradedTotal += tr.Qty
		}
		// each trade counts once but consumes matching quantity from both
		// sides; tradedTotal (maker-side quantity moved) can never exceed
		// what was submitted in total.
		require.LessOrEqual(t, tradedTotal, submittedTotal)
	})
}

// P3: price-time priority — within a single price level, earlier
// order ids (lower TS in this harness) are always filled at or before
// later ones when a single crossing order sweeps the level.
func TestPropertyPriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		defer h.close()

		numResting := rapid.IntRange(2, 6).Draw(t, "numResting")
		side := Side(rapid.IntRange(0, 1).Draw(t, "side"))
		px := Tick(1000)

		var ids []uint64
		for i := 0; i < numResting; i++ {
			h.nextID++
			id := h.nextID
			ids = append(ids, id)
			h.ob.SubmitLimit(Command{OrderID: id, UserID: uint32(i + 1), Side: side, Price: px, Qty: 5, TIF: GTC, OrderType: Limit, TS: id})
		}

		h.nextID++
		takerID := h.nextID
		h.ob.SubmitLimit(Command{OrderID: takerID, UserID: 999, Side: side.Opposite(), Price: px, Qty: Qty(numResting) * 5, TIF: GTC, OrderType: Limit, TS: takerID})

		require.Len(t, h.trades, numResting)
		for i, tr := range h.trades {
			require.Equal(t, ids[i], tr.MakerID)
		}
	})
}

// P7: self-trade prevention never produces a trade between two orders
// from the same user.
func TestPropertyNoSelfTrade(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		defer h.close()

		user := uint32(1)
		h.ob.SubmitLimit(Command{OrderID: 1, UserID: user, Side: Bid, Price: 1000, Qty: 5, TIF: GTC, OrderType: Limit, TS: 1})
		qty := Qty(rapid.IntRange(1, 10).Draw(t, "qty"))
		res := h.ob.SubmitLimit(Command{OrderID: 2, UserID: user, Side: Ask, Price: 1000, Qty: qty, TIF: GTC, OrderType: Limit, Flags: STP, TS: 2})

		users := map[uint64]uint32{1: user, 2: user}
		for _, tr := range h.trades {
			require.NotEqual(t, users[tr.TakerID], users[tr.MakerID])
		}
		if qty <= 5 {
			require.Equal(t, Qty(0), res.Filled)
		}
	})
}

// P5: TIF semantics — IOC never leaves a resting remainder; GTC always
// rests whatever quantity was not filled.
func TestPropertyTIFSemantics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		defer h.close()

		tif := TIF(rapid.IntRange(0, 1).Draw(t, "tif"))
		qty := Qty(rapid.IntRange(1, 20).Draw(t, "qty"))
		crossQty := Qty(rapid.IntRange(0, 10).Draw(t, "crossQty"))

		if crossQty > 0 {
			h.ob.SubmitLimit(Command{OrderID: 1, UserID: 1, Side: Ask, Price: 1000, Qty: crossQty, TIF: GTC, OrderType: Limit, TS: 1})
		}

		res := h.ob.SubmitLimit(Command{OrderID: 2, UserID: 2, Side: Bid, Price: 1000, Qty: qty, TIF: tif, OrderType: Limit, TS: 2})

		if tif == IOC {
			require.False(t, h.ob.Indexed(2))
			require.Equal(t, Qty(0), res.Remaining)
		} else {
			expectedRemaining := qty - res.Filled
			if expectedRemaining > 0 {
				require.True(t, h.ob.Indexed(2))
			}
			require.Equal(t, expectedRemaining, res.Remaining)
		}
	})
}

// P2: determinism — replaying the exact same command sequence against a
// fresh book produces the same sequence of trade events.
func TestPropertyDeterministicReplay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "numCommands")

		type step struct {
			cmd    Command
			isCanc bool
			cancID uint64
		}
		var steps []step
		var live []uint64
		var nextID uint64
		for i := 0; i < n; i++ {
			kind := rapid.SampledFrom([]string{"limit", "cancel"}).Draw(t, "kind")
			if kind == "cancel" && len(live) > 0 {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "idx")
				steps = append(steps, step{isCanc: true, cancID: live[idx]})
				continue
			}
			nextID++
			id := nextID
			cmd := Command{
				OrderID: id,
				UserID:  uint32(rapid.IntRange(1, 4).Draw(t, "user")),
				Side:    Side(rapid.IntRange(0, 1).Draw(t, "side")),
				Price:   Tick(rapid.IntRange(900, 1100).Draw(t, "price")),
				Qty:     Qty(rapid.IntRange(1, 20).Draw(t, "qty")),
				TIF:     GTC,
				TS:      id,
			}
			steps = append(steps, step{cmd: cmd})
			live = append(live, id)
		}

		run := func() []TradeEvent {
			h := newHarness()
			defer h.close()
			for _, s := range steps {
				if s.isCanc {
					h.ob.Cancel(s.cancID)
					continue
				}
				h.ob.SubmitLimit(s.cmd)
			}
			return h.trades
		}

		a := run()
		b := run()
		require.Equal(t, a, b)
	})
}
