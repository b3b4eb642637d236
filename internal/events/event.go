// Package events defines the payload carried on the matcher→publisher
// SPSC queue: one variant type wrapping either a trade or a book update,
// tagged with the symbol it came from so the publisher can stamp
// SymbolID into the wire record without needing to know which store
// produced it (spec §5, §6).
package events

import "clob/internal/book"

// Event is exactly one of Trade or Update, never both.
type Event struct {
	SymbolID uint32
	Trade    *book.TradeEvent
	Update   *book.BookUpdate
}
