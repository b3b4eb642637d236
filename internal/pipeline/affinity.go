package pipeline

// pinCurrentThread attempts to pin the calling OS thread to core. It is
// best-effort: platforms without sched_setaffinity silently no-op (spec
// §4.7 "optional per-thread core pinning is applied when the
// configuration provides a core list" — absence of the syscall is not a
// startup failure).
var pinCurrentThread = pinCurrentThreadPlatform
