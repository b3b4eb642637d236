//go:build linux

package book

import "golang.org/x/sys/unix"

// mapHugeTLB is an opportunistic hint; mmapAnon retries without it if
// the mapping fails for any reason.
const mapHugeTLB = unix.MAP_HUGETLB
