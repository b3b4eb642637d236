// Package clock implements the calibrated cycle-counter timestamp
// service (spec §4.8, C8): now_ns() for wire timestamps, and a
// cheap cycle-counter reading for intra-operation latency measurement.
package clock

import (
	"runtime"
	"time"
)

// Source is a calibrated cycle-counter-to-nanosecond converter. Cycle
// reads are cheap and monotonic within a core but drift across cores on
// some platforms; wire timestamps always go through NowNS, which is
// anchored to the system monotonic clock rather than the cycle ratio.
type Source struct {
	startCycle uint64
	startNanos int64
	start      time.Time
	nsPerCycle float64
}

// Calibrate samples the cycle counter and the monotonic clock, busy-waits
// roughly dur (spec default ~100ms), samples again, and derives the
// cycle→ns ratio from the two samples.
func Calibrate(dur time.Duration) *Source {
	c0 := readCycles()
	t0 := time.Now()

	deadline := t0.Add(dur)
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}

	c1 := readCycles()
	t1 := time.Now()

	elapsedCycles := c1 - c0
	elapsedNanos := t1.Sub(t0).Nanoseconds()

	ratio := 1.0
	if elapsedCycles > 0 {
		ratio = float64(elapsedNanos) / float64(elapsedCycles)
	}

	return &Source{startCycle: c0, startNanos: t0.UnixNano(), start: t0, nsPerCycle: ratio}
}

// NowNS returns the current monotonic time in nanoseconds — the wall
// clock at calibration plus the monotonic time elapsed since — used to
// stamp every event on the wire. It does not go through the
// cycle-counter ratio — that ratio is for intra-operation latency
// sampling only (spec §4.8).
func (s *Source) NowNS() uint64 {
	return uint64(s.startNanos + time.Since(s.start).Nanoseconds())
}

// CycleDelta converts a raw cycle-counter delta into nanoseconds using
// the calibrated ratio, for latency histograms that sample cycles on
// either side of a hot-path operation.
func (s *Source) CycleDelta(cycles uint64) float64 {
	return float64(cycles) * s.nsPerCycle
}

// ReadCycles exposes the raw cycle-counter reading for callers timing a
// single match/cancel/modify call.
func (s *Source) ReadCycles() uint64 { return readCycles() }
