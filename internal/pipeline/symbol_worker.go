package pipeline

import (
	"log/slog"
	"runtime"
	"strconv"

	"clob/internal/book"
	"clob/internal/clock"
	"clob/internal/events"
	"clob/internal/metrics"
	"clob/internal/queue"
	"clob/internal/wire"
)

// symbolWorker owns one OrderBook exclusively and drains its command
// queue with a short busy-wait spin, then yield, matching spec §5's "one matching
// thread per symbol" single-writer discipline.
type symbolWorker struct {
	sym    SymbolConfig
	cmdQ   *queue.SPSC[wire.Command]
	evQ    *queue.SPSC[events.Event]
	pool   *book.SlabPool
	ob     *book.OrderBook
	clock  *clock.Source
	reg    *metrics.Registry
	log    *slog.Logger
	symTag string
}

func newSymbolWorker(sym SymbolConfig, cmdQ *queue.SPSC[wire.Command], evQ *queue.SPSC[events.Event], clk *clock.Source, reg *metrics.Registry, log *slog.Logger) *symbolWorker {
	w := &symbolWorker{sym: sym, cmdQ: cmdQ, evQ: evQ, clock: clk, reg: reg, log: log, symTag: strconv.FormatUint(uint64(sym.ID), 10)}

	w.pool = book.NewSlabPool(0)

	var bids, asks book.Store
	if sym.Store == "sparse" {
		bids = book.NewSparseStore(book.Bid)
		asks = book.NewSparseStore(book.Ask)
	} else {
		bids = book.NewDenseStore(book.Bid, book.Tick(sym.PriceBand.MinTick), book.Tick(sym.PriceBand.MaxTick))
		asks = book.NewDenseStore(book.Ask, book.Tick(sym.PriceBand.MinTick), book.Tick(sym.PriceBand.MaxTick))
	}

	w.ob = book.NewOrderBook(bids, asks, w.pool, clk.NowNS, w.onTrade, w.onBookUpdate)
	return w
}

func (w *symbolWorker) onTrade(e book.TradeEvent) {
	ev := events.Event{SymbolID: w.sym.ID, Trade: &e}
	w.enqueueEvent(ev)
	if w.reg != nil {
		w.reg.TradesTotal.WithLabelValues(w.symTag).Inc()
	}
}

func (w *symbolWorker) onBookUpdate(u book.BookUpdate) {
	ev := events.Event{SymbolID: w.sym.ID, Update: &u}
	w.enqueueEvent(ev)
}

// enqueueEvent waits with pause/yield for space rather than dropping —
// spec §7: queue full is never a drop condition.
func (w *symbolWorker) enqueueEvent(ev events.Event) {
	for !w.evQ.Enqueue(ev) {
		runtime.Gosched()
	}
}

// Run pins the calling OS thread (if requested) and drains cmdQ until
// stop is closed.
func (w *symbolWorker) Run(stop <-chan struct{}, core int, pin bool) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if pin {
		if err := pinCurrentThread(core); err != nil {
			w.log.Warn("core pin failed", "symbol", w.sym.ID, "core", core, "err", err)
		}
	}
	defer w.pool.Close()

	idle := 0
	for {
		select {
		case <-stop:
			return
		default:
		}
		cmd, ok := w.cmdQ.Dequeue()
		if !ok {
			idle++
			if idle < 64 {
				// spin
			} else {
				runtime.Gosched()
			}
			continue
		}
		idle = 0
		start := w.clock.ReadCycles()
		w.dispatch(cmd)
		if w.reg != nil {
			w.reg.MatchLatencyNS.WithLabelValues(w.symTag).Observe(w.clock.CycleDelta(w.clock.ReadCycles() - start))
			w.reg.QueueDepth.WithLabelValues(w.symTag, "command").Set(float64(w.cmdQ.Len()))
		}
	}
}

func (w *symbolWorker) dispatch(cmd wire.Command) {
	switch cmd.Type {
	case wire.NewOrder:
		w.submitNewOrder(cmd)
	case wire.CancelOrder:
		if w.reg != nil {
			w.reg.CommandsTotal.WithLabelValues(w.symTag, "cancel_order").Inc()
		}
		w.ob.Cancel(cmd.OrderID)
	case wire.ModifyOrder:
		if w.reg != nil {
			w.reg.CommandsTotal.WithLabelValues(w.symTag, "modify_order").Inc()
		}
		w.ob.Modify(cmd.OrderID, book.Tick(cmd.PriceTicks), book.Qty(cmd.Qty))
	default:
		w.reject("unknown_command_type")
	}
}

func (w *symbolWorker) submitNewOrder(cmd wire.Command) {
	bcmd := book.Command{
		OrderID:    cmd.OrderID,
		UserID:     cmd.UserID,
		Side:       book.Side(cmd.Side),
		Price:      book.Tick(cmd.PriceTicks),
		Qty:        book.Qty(cmd.Qty),
		TIF:        book.TIF(cmd.TIF),
		OrderType:  book.OrderType(cmd.OrderType),
		Flags:      book.Flags(cmd.Flags),
		TS:         cmd.RecvTS,
		StopPrice:  book.Tick(cmd.StopPrice),
		DisplayQty: book.Qty(cmd.DisplayQty),
		ExpiryTS:   cmd.ExpiryTS,
	}
	if w.reg != nil {
		w.reg.CommandsTotal.WithLabelValues(w.symTag, "new_order").Inc()
	}
	if book.OrderType(cmd.OrderType) == book.Market {
		w.ob.SubmitMarket(bcmd)
		return
	}
	w.ob.SubmitLimit(bcmd)
}

func (w *symbolWorker) reject(reason string) {
	if w.reg != nil {
		w.reg.RejectsTotal.WithLabelValues(w.symTag, reason).Inc()
	}
}
