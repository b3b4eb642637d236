package publisher

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// ExitState is the outbox lifecycle state of one durable record: written
// once (New), handed to the broadcaster (Sent), then confirmed by the
// broker (Acked). Grounded on the teacher's infra/wal/exit/wal.go state
// machine, unified with jobs/broadcaster/broadcaster.go's scan/mark
// calling convention — the two teacher files used incompatible method
// sets and record shapes (the broadcaster called ScanPending/MarkSent/
// MarkAcked against records carrying a Payload field; the WAL only
// exposed ScanByState/UpdateState against a payload-less record). This
// package keeps the pebble-backed persistence and the state names, and
// gives them one consistent API.
type ExitState uint8

const (
	StateNew ExitState = iota
	StateSent
	StateAcked
)

func (s ExitState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// ExitRecord is one outbox entry: the raw bytes to publish downstream,
// plus lifecycle bookkeeping.
type ExitRecord struct {
	Seq         uint64
	State       ExitState
	Payload     []byte
	LastAttempt int64
}

func encodeExitRecord(r ExitRecord) []byte {
	buf := make([]byte, 1+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint64(buf[1:9], uint64(r.LastAttempt))
	copy(buf[9:], r.Payload)
	return buf
}

func decodeExitRecord(seq uint64, b []byte) (ExitRecord, error) {
	if len(b) < 9 {
		return ExitRecord{}, fmt.Errorf("publisher: short exit record for seq %d", seq)
	}
	payload := make([]byte, len(b)-9)
	copy(payload, b[9:])
	return ExitRecord{
		Seq:         seq,
		State:       ExitState(b[0]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[1:9])),
		Payload:     payload,
	}, nil
}

// Outbox is a pebble-backed durable queue of downstream-fanout records,
// keyed by monotonic sequence number (spec §4.7's additive best-effort
// broadcast path; C11).
type Outbox struct {
	db *pebble.DB
}

// OpenOutbox opens (or creates) the pebble database rooted at dir.
func OpenOutbox(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("publisher: open outbox: %w", err)
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error { return o.db.Close() }

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("rec/%020d", seq))
}

func parseKey(k []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(k, []byte("rec/"))), "%d", &seq)
	return seq, err
}

// PutNew durably records payload under seq in state NEW.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	rec := ExitRecord{Seq: seq, State: StateNew, Payload: payload}
	return o.db.Set(keyFor(seq), encodeExitRecord(rec), pebble.Sync)
}

// MarkSent transitions seq to SENT, idempotently.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, StateSent)
}

// MarkAcked transitions seq to ACKED, idempotently.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, StateAcked)
}

func (o *Outbox) transition(seq uint64, next ExitState) error {
	key := keyFor(seq)
	val, closer, err := o.db.Get(key)
	if err != nil {
		return err
	}
	rec, err := decodeExitRecord(seq, val)
	closer.Close()
	if err != nil {
		return err
	}
	rec.State = next
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(key, encodeExitRecord(rec), pebble.Sync)
}

// ScanPending visits every record not yet ACKED, in key (sequence)
// order, invoking fn once per record. fn's error is not fatal to the
// scan; the broadcaster uses it to signal "retry later" rather than to
// abort.
func (o *Outbox) ScanPending(fn func(rec ExitRecord) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("rec/"),
		UpperBound: []byte("rec/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeExitRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}
		if err := fn(rec); err != nil {
			continue
		}
	}
	return iter.Error()
}
