package publisher

import (
	"bufio"
	"fmt"
	"os"

	"clob/internal/wire"
)

// LogWriter appends fixed-size binary records to a single file, matching
// the teacher's root wal.go append-only file discipline but stripped
// down to spec §6's two plain record streams (no segment rotation, no
// CRC framing — the trade/book-update logs are the system of record and
// are meant to be read back sequentially by the record size alone).
type LogWriter struct {
	f *os.File
	w *bufio.Writer
}

// OpenLogWriter creates or appends to path.
func OpenLogWriter(path string) (*LogWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("publisher: open log %s: %w", path, err)
	}
	return &LogWriter{f: f, w: bufio.NewWriterSize(f, 1<<16)}, nil
}

// WriteTrade appends one trade record. I/O failures are reported to the
// caller, which logs and continues per spec §7 (I/O failure on log write
// never blocks matching).
func (lw *LogWriter) WriteTrade(r wire.TradeRecord) error {
	var buf [wire.TradeRecordSize]byte
	wire.EncodeTradeRecord(buf[:], r)
	_, err := lw.w.Write(buf[:])
	return err
}

// WriteBookUpdate appends one book-update record.
func (lw *LogWriter) WriteBookUpdate(r wire.BookUpdateRecord) error {
	var buf [wire.BookUpdateRecordSize]byte
	wire.EncodeBookUpdateRecord(buf[:], r)
	_, err := lw.w.Write(buf[:])
	return err
}

// Flush pushes buffered bytes to the OS. The publisher calls this
// periodically rather than on every record, to keep the hot path off
// the syscall.
func (lw *LogWriter) Flush() error {
	return lw.w.Flush()
}

// Close flushes and closes the underlying file.
func (lw *LogWriter) Close() error {
	if err := lw.w.Flush(); err != nil {
		lw.f.Close()
		return err
	}
	return lw.f.Close()
}
