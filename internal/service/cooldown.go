package service

import "time"

// cooldownRemaining returns when a window anchored at oldest ends and how many
// whole minutes (rounded up) are left at now. minutes is 0 once now has reached next.
func cooldownRemaining(oldest time.Time, window time.Duration, now time.Time) (next time.Time, minutes int) {
	next = oldest.Add(window)
	remaining := next.Sub(now)
	if remaining <= 0 {
		return next, 0
	}
	return next, int((remaining + time.Minute - 1) / time.Minute)
}

// windowStart is the exclusive lower bound for claims that still count against a caller.
// A claim made exactly one window ago no longer blocks.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}
