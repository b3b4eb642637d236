package feed

import (
	"context"
	"fmt"
	"io"
	"os"

	"clob/internal/wire"
	"golang.org/x/sys/unix"
)

// FileSource reads a sequence of fixed-size binary command records from
// a memory-mapped file, matching spec §5's "memory-mapped file" feed
// option. Exit codes for open/stat/mmap failure are the caller's
// concern (spec §6); FileSource only returns the errors.
type FileSource struct {
	f      *os.File
	data   []byte
	offset int
}

// OpenFileSource mmaps path read-only.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("feed: stat %s: %w", path, err)
	}
	size := st.Size()
	if size == 0 {
		return &FileSource{f: f, data: nil}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("feed: mmap %s: %w", path, err)
	}
	return &FileSource{f: f, data: data}, nil
}

// Next decodes and returns the next fixed-size command record. ok is
// false once the file is exhausted; ctx cancellation is observed between
// records only (decoding one record is not itself interruptible).
func (s *FileSource) Next(ctx context.Context) (wire.Command, bool, error) {
	select {
	case <-ctx.Done():
		return wire.Command{}, false, ctx.Err()
	default:
	}
	if s.offset+wire.CommandSize > len(s.data) {
		return wire.Command{}, false, nil
	}
	cmd, err := wire.DecodeCommand(s.data[s.offset:])
	if err != nil {
		return wire.Command{}, false, err
	}
	s.offset += wire.CommandSize
	return cmd, true, nil
}

// Close unmaps the file and closes its descriptor.
func (s *FileSource) Close() error {
	var firstErr error
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			firstErr = err
		}
	}
	if err := s.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ io.Closer = (*FileSource)(nil)
