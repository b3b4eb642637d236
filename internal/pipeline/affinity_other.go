//go:build !linux

package pipeline

func pinCurrentThreadPlatform(core int) error {
	return nil
}
