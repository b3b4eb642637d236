//go:build linux

package pipeline

import "golang.org/x/sys/unix"

func pinCurrentThreadPlatform(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
