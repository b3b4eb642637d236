// Package wire implements the fixed-size binary record layouts crossing
// every external boundary of the engine (spec §6): the inbound command
// record the feed handler decodes, and the two outbound log records the
// publisher writes — trades and book updates. All records use native
// (little-endian, as produced by encoding/binary) byte order and are
// tightly packed with no padding, matching the teacher's own record
// codec (encode.go/proto_serializer.go in the teacher lineage).
package wire

import (
	"encoding/binary"
	"errors"
)

// CommandType selects the command record's operation.
type CommandType uint8

const (
	NewOrder CommandType = iota
	CancelOrder
	ModifyOrder
)

// CommandSize is the exact on-wire byte width of one Command record.
const CommandSize = 1 + 8 + 8 + 4 + 4 + 8 + 8 + 1 + 1 + 1 + 4 + 8 + 8 + 8

// Command is the decoded form of one fixed-size inbound command record.
type Command struct {
	Type       CommandType
	RecvTS     uint64
	OrderID    uint64
	SymbolID   uint32
	UserID     uint32
	PriceTicks int64
	Qty        int64
	Side       uint8
	OrderType  uint8
	TIF        uint8
	Flags      uint32
	StopPrice  int64
	DisplayQty int64
	ExpiryTS   uint64
}

// ErrShortRecord is returned when a buffer is too small to hold a
// complete fixed-size record.
var ErrShortRecord = errors.New("wire: short record")

// DecodeCommand parses exactly CommandSize bytes from buf[0:] into a
// Command. buf must be at least CommandSize bytes.
func DecodeCommand(buf []byte) (Command, error) {
	if len(buf) < CommandSize {
		return Command{}, ErrShortRecord
	}
	var c Command
	i := 0
	c.Type = CommandType(buf[i])
	i++
	c.RecvTS = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	c.OrderID = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	c.SymbolID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	c.UserID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	c.PriceTicks = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	c.Qty = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	c.Side = buf[i]
	i++
	c.OrderType = buf[i]
	i++
	c.TIF = buf[i]
	i++
	c.Flags = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	c.StopPrice = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	c.DisplayQty = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	c.ExpiryTS = binary.LittleEndian.Uint64(buf[i:])
	return c, nil
}

// EncodeCommand serializes c into dst, which must be at least
// CommandSize bytes; used by tests and by tooling that synthesizes feed
// files, not by the hot path itself.
func EncodeCommand(dst []byte, c Command) {
	i := 0
	dst[i] = byte(c.Type)
	i++
	binary.LittleEndian.PutUint64(dst[i:], c.RecvTS)
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], c.OrderID)
	i += 8
	binary.LittleEndian.PutUint32(dst[i:], c.SymbolID)
	i += 4
	binary.LittleEndian.PutUint32(dst[i:], c.UserID)
	i += 4
	binary.LittleEndian.PutUint64(dst[i:], uint64(c.PriceTicks))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], uint64(c.Qty))
	i += 8
	dst[i] = c.Side
	i++
	dst[i] = c.OrderType
	i++
	dst[i] = c.TIF
	i++
	binary.LittleEndian.PutUint32(dst[i:], c.Flags)
	i += 4
	binary.LittleEndian.PutUint64(dst[i:], uint64(c.StopPrice))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], uint64(c.DisplayQty))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], c.ExpiryTS)
}

// TradeRecordSize is the exact on-wire byte width of one trade log
// record.
const TradeRecordSize = 8 + 8 + 8 + 4 + 8 + 8

// TradeRecord is one emitted trade, as written to the trade log file.
type TradeRecord struct {
	TS         uint64
	TakerID    uint64
	MakerID    uint64
	SymbolID   uint32
	PriceTicks int64
	Qty        int64
}

// EncodeTradeRecord serializes r into dst, which must be at least
// TradeRecordSize bytes.
func EncodeTradeRecord(dst []byte, r TradeRecord) {
	i := 0
	binary.LittleEndian.PutUint64(dst[i:], r.TS)
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], r.TakerID)
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], r.MakerID)
	i += 8
	binary.LittleEndian.PutUint32(dst[i:], r.SymbolID)
	i += 4
	binary.LittleEndian.PutUint64(dst[i:], uint64(r.PriceTicks))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], uint64(r.Qty))
}

// DecodeTradeRecord parses TradeRecordSize bytes from buf[0:].
func DecodeTradeRecord(buf []byte) (TradeRecord, error) {
	if len(buf) < TradeRecordSize {
		return TradeRecord{}, ErrShortRecord
	}
	var r TradeRecord
	i := 0
	r.TS = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	r.TakerID = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	r.MakerID = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	r.SymbolID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	r.PriceTicks = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.Qty = int64(binary.LittleEndian.Uint64(buf[i:]))
	return r, nil
}

// BookUpdateRecordSize is the exact on-wire byte width of one
// book-update log record.
const BookUpdateRecordSize = 8 + 4 + 8 + 8 + 8 + 8

// BookUpdateRecord is one emitted book update, as written to the
// book-update log file. Bests may carry sentinel values.
type BookUpdateRecord struct {
	TS       uint64
	SymbolID uint32
	BestBid  int64
	BestAsk  int64
	BidQty   int64
	AskQty   int64
}

// EncodeBookUpdateRecord serializes r into dst, which must be at least
// BookUpdateRecordSize bytes.
func EncodeBookUpdateRecord(dst []byte, r BookUpdateRecord) {
	i := 0
	binary.LittleEndian.PutUint64(dst[i:], r.TS)
	i += 8
	binary.LittleEndian.PutUint32(dst[i:], r.SymbolID)
	i += 4
	binary.LittleEndian.PutUint64(dst[i:], uint64(r.BestBid))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], uint64(r.BestAsk))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], uint64(r.BidQty))
	i += 8
	binary.LittleEndian.PutUint64(dst[i:], uint64(r.AskQty))
}

// DecodeBookUpdateRecord parses BookUpdateRecordSize bytes from buf[0:].
func DecodeBookUpdateRecord(buf []byte) (BookUpdateRecord, error) {
	if len(buf) < BookUpdateRecordSize {
		return BookUpdateRecord{}, ErrShortRecord
	}
	var r BookUpdateRecord
	i := 0
	r.TS = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	r.SymbolID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	r.BestBid = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.BestAsk = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.BidQty = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.AskQty = int64(binary.LittleEndian.Uint64(buf[i:]))
	return r, nil
}
