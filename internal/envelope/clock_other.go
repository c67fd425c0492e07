//go:build !linux && !darwin

// clock_other.go — Clock offset fallback for platforms without clock_gettime.
package envelope

import "time"

var processStart = time.Now()

// clockOffsetNanos approximates realtime minus monotonic using elapsed time
// since process start as the monotonic reading. Only meaningful when producers
// stamp entries against the same process-relative base.
func clockOffsetNanos() int64 {
	now := time.Now()
	return now.UnixNano() - now.Sub(processStart).Nanoseconds()
}
