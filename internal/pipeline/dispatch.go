package pipeline

import (
	"context"
	"log/slog"
	"runtime"

	"clob/internal/feed"
	"clob/internal/queue"
	"clob/internal/wire"
)

// dispatcher reads decoded commands from a feed.Source and routes each
// to the command queue indexed by cmd.symbol_id, matching spec §5's
// feed-handler responsibility.
type dispatcher struct {
	src     feed.Source
	byID    map[uint32]*queue.SPSC[wire.Command]
	log     *slog.Logger
}

func newDispatcher(src feed.Source, byID map[uint32]*queue.SPSC[wire.Command], log *slog.Logger) *dispatcher {
	return &dispatcher{src: src, byID: byID, log: log}
}

// Run drains src until it is exhausted or ctx is cancelled. Malformed
// commands (unknown symbol id) are dropped and logged, never raised as
// an error that stops the feed (spec §7).
func (d *dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		cmd, ok, err := d.src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		q, known := d.byID[cmd.SymbolID]
		if !known {
			d.log.Warn("dropping command for unknown symbol", "symbol_id", cmd.SymbolID)
			continue
		}
		for !q.Enqueue(cmd) {
			runtime.Gosched()
		}
	}
}
