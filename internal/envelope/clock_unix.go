//go:build linux || darwin

// clock_unix.go — Clock offset via clock_gettime.
package envelope

import "golang.org/x/sys/unix"

// clockOffsetNanos returns CLOCK_REALTIME minus CLOCK_MONOTONIC, matching the
// monotonic clock producers stamp entries with.
func clockOffsetNanos() int64 {
	var rt, mono unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &rt); err != nil {
		return 0
	}
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &mono); err != nil {
		return 0
	}
	return rt.Nano() - mono.Nano()
}
