package book

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// defaultSlabBytes is the size of one OS mapping backing a slab of
// OrderNode cells.
const defaultSlabBytes = 1 << 20 // 1 MiB

var nodeSize = unsafe.Sizeof(OrderNode{})

// SlabPool hands out *OrderNode cells from mmap-backed slabs with O(1)
// alloc/free and no per-node heap allocation. It is single-threaded: the
// matching thread that owns an OrderBook owns its SlabPool exclusively.
type SlabPool struct {
	slabBytes uintptr
	slabs     [][]byte
	free      *OrderNode
}

// NewSlabPool constructs an empty pool. slabBytes <= 0 selects the
// default (1 MiB).
func NewSlabPool(slabBytes int) *SlabPool {
	if slabBytes <= 0 {
		slabBytes = defaultSlabBytes
	}
	return &SlabPool{slabBytes: uintptr(slabBytes)}
}

// Alloc never returns nil; a failed mapping aborts the process, matching
// the contract that allocator failures are configuration errors, not
// runtime conditions to recover from (spec §7).
func (p *SlabPool) Alloc() *OrderNode {
	if p.free == nil {
		p.growSlab()
	}
	n := p.free
	p.free = n.next
	*n = OrderNode{tag: tagPooled}
	return n
}

// Free requires that n was returned by this pool and has not already
// been freed. Nodes not tagged pooled (any OrderNode built directly
// rather than by Alloc) are left for the garbage collector.
func (p *SlabPool) Free(n *OrderNode) {
	if n.tag != tagPooled {
		return
	}
	n.prev = nil
	n.next = p.free
	p.free = n
}

// Close unmaps every slab. The pool must not be used afterwards.
func (p *SlabPool) Close() error {
	var firstErr error
	for _, s := range p.slabs {
		if err := unix.Munmap(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.slabs = nil
	p.free = nil
	return firstErr
}

func (p *SlabPool) growSlab() {
	buf, err := mmapAnon(p.slabBytes)
	if err != nil {
		panic(fmt.Sprintf("book: slab mmap failed: %v", err))
	}
	p.slabs = append(p.slabs, buf)

	cells := uintptr(len(buf)) / nodeSize
	base := unsafe.Pointer(&buf[0])

	for i := uintptr(0); i < cells; i++ {
		cell := (*OrderNode)(unsafe.Add(base, i*nodeSize))
		*cell = OrderNode{}
		cell.next = p.free
		p.free = cell
	}
}

// mmapAnon maps an anonymous, zero-filled region of exactly n bytes,
// rounded up to the page size by the kernel. Huge-page backing is
// requested opportunistically and silently dropped if the platform or
// the mapping request rejects it.
func mmapAnon(n uintptr) ([]byte, error) {
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	buf, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, flags|mapHugeTLB)
	if err != nil {
		buf, err = unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, flags)
	}
	return buf, err
}
