//go:build !linux

package book

// mapHugeTLB is a no-op outside Linux; huge-page backing is a Linux-only
// mmap flag.
const mapHugeTLB = 0
