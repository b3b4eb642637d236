// Package feed implements the pluggable inbound command source: a
// memory-mapped binary file of fixed-size command records, or a Kafka
// topic carrying the same record format (spec §4.7 [ADD]).
package feed

import (
	"context"

	"clob/internal/wire"
)

// Source yields decoded commands in arrival order. Next returns
// io.EOF-equivalent via ok=false once the source is exhausted (FileSource)
// or never, if it is an unbounded stream (KafkaSource).
type Source interface {
	Next(ctx context.Context) (wire.Command, bool, error)
	Close() error
}
