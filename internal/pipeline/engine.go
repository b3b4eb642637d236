package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"clob/internal/clock"
	"clob/internal/events"
	"clob/internal/feed"
	"clob/internal/logging"
	"clob/internal/metrics"
	"clob/internal/publisher"
	"clob/internal/queue"
	"clob/internal/wire"
)

const (
	cmdQueueCapacity = 1 << 16
	evtQueueCapacity = 1 << 16
)

// Engine is the fully wired pipeline: one worker per symbol, a feed
// dispatcher, and a publisher, composed from a Config (spec §4.7, C7).
type Engine struct {
	cfg *Config
	log *slog.Logger
	reg *metrics.Registry
	clk *clock.Source

	workers    []*symbolWorker
	cmdQueues  map[uint32]*queue.SPSC[wire.Command]
	evtQueues  []*queue.SPSC[events.Event]
	src        feed.Source
	dispatcher *dispatcher
	pub        *publisher.Publisher
	outbox     *publisher.Outbox
	broadcast  *publisher.Broadcaster
}

// New wires an Engine from cfg. It opens the feed source, the log
// writers, and optionally the outbox and broadcaster — any open failure
// is returned unwrapped for the caller to map to spec §6's exit codes.
func New(cfg *Config) (*Engine, error) {
	log := logging.New(cfg.Log)
	e := &Engine{cfg: cfg, log: log, reg: metrics.NewRegistry(), clk: clock.Calibrate(100 * time.Millisecond)}

	e.cmdQueues = make(map[uint32]*queue.SPSC[wire.Command], len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		cmdQ := queue.New[wire.Command](cmdQueueCapacity)
		evtQ := queue.New[events.Event](evtQueueCapacity)
		e.cmdQueues[sym.ID] = cmdQ
		e.evtQueues = append(e.evtQueues, evtQ)
		e.workers = append(e.workers, newSymbolWorker(sym, cmdQ, evtQ, e.clk, e.reg, log))
	}

	src, err := openFeed(cfg.Feed)
	if err != nil {
		return nil, err
	}
	e.src = src
	e.dispatcher = newDispatcher(src, e.cmdQueues, log)

	if err := ensureDir(cfg.OutputDir); err != nil {
		return nil, err
	}
	trades, err := publisher.OpenLogWriter(cfg.OutputDir + "/trades.bin")
	if err != nil {
		return nil, err
	}
	books, err := publisher.OpenLogWriter(cfg.OutputDir + "/book_updates.bin")
	if err != nil {
		return nil, err
	}

	if cfg.Broadcast.Enabled {
		outbox, err := publisher.OpenOutbox(cfg.OutboxDir)
		if err != nil {
			return nil, err
		}
		e.outbox = outbox
		bc, err := publisher.NewBroadcaster(outbox, cfg.Broadcast.Brokers, cfg.Broadcast.Topic, log)
		if err != nil {
			return nil, err
		}
		e.broadcast = bc
	}

	e.pub = publisher.New(trades, books, e.outbox, e.evtQueues, log)
	return e, nil
}

func openFeed(cfg FeedConfig) (feed.Source, error) {
	switch cfg.Source {
	case "kafka":
		return feed.OpenKafkaSource(feed.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}), nil
	default:
		return feed.OpenFileSource(cfg.Path)
	}
}

// Run starts every worker, the publisher, the feed dispatcher, and the
// metrics HTTP listener, blocking until the feed is exhausted or ctx is
// cancelled. Exit code semantics (spec §6) are the caller's
// responsibility based on the returned error.
func (e *Engine) Run(ctx context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup

	core := func(i int) (int, bool) {
		if len(e.cfg.Cores) == 0 {
			return 0, false
		}
		return e.cfg.Cores[i], true
	}

	for i, w := range e.workers {
		wg.Add(1)
		c, pin := core(1 + i)
		go func(w *symbolWorker, c int, pin bool) {
			defer wg.Done()
			w.Run(stop, c, pin)
		}(w, c, pin)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if c, pin := core(len(e.workers) + 1); pin {
			if err := pinCurrentThread(c); err != nil {
				e.log.Warn("core pin failed", "role", "publisher", "core", c, "err", err)
			}
		}
		e.pub.Run(stop, 256)
	}()

	if e.broadcast != nil {
		e.broadcast.Start(ctx, 2*time.Second)
	}

	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()
	go func() {
		if err := e.reg.Serve(metricsCtx, e.cfg.MetricsAddr, e.log); err != nil {
			e.log.Error("metrics server error", "err", err)
		}
	}()

	if c, pin := core(0); pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinCurrentThread(c); err != nil {
			e.log.Warn("core pin failed", "role", "feed", "core", c, "err", err)
		}
	}
	err := e.dispatcher.Run(ctx)
	close(stop)
	wg.Wait()
	return err
}

// Close stops the broadcaster and closes it, the outbox and the feed
// source. The trade and book-update log files are flushed by the
// publisher when Run stops it and are not closed here.
func (e *Engine) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.broadcast != nil {
		e.broadcast.Stop()
		record(e.broadcast.Close())
	}
	if e.outbox != nil {
		record(e.outbox.Close())
	}
	if e.src != nil {
		record(e.src.Close())
	}
	return firstErr
}

func ensureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("pipeline: output_dir must not be empty")
	}
	return os.MkdirAll(dir, 0o755)
}
