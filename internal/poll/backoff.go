package poll

import "time"

// MaxInterval caps the wait between successive polling attempts.
const MaxInterval = 5 * time.Second

// Interval returns the backoff delay before the iteration-th query:
// linearly increasing in the initial wait, capped at MaxInterval.
// Iterations start at 1.
func Interval(initial time.Duration, iteration int) time.Duration {
	if iteration < 1 {
		iteration = 1
	}
	d := initial * time.Duration(iteration)
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
