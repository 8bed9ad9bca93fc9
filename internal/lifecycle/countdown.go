package lifecycle

import (
	"fmt"
	"time"
)

// FormatCountdown renders whole seconds as zero-padded MM:SS.
func FormatCountdown(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// remainingSeconds floors the gap between now and the voting deadline,
// clamped at zero. A nil deadline counts as already expired.
func remainingSeconds(endsAt *time.Time, now time.Time) int64 {
	if endsAt == nil {
		return 0
	}
	remaining := int64(endsAt.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}
