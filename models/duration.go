package models

import (
	"math"
	"time"
)

// MaxDurationSeconds is the largest whole-second count a time.Duration can hold.
const MaxDurationSeconds = int64(math.MaxInt64 / int64(time.Second))

// SecondsToDuration converts whole seconds to a time.Duration. Counts outside
// the representable range fail with ErrOverflow rather than wrapping.
func SecondsToDuration(secs int64) (time.Duration, error) {
	if secs > MaxDurationSeconds || secs < -MaxDurationSeconds {
		return 0, ErrOverflow
	}
	return time.Duration(secs) * time.Second, nil
}
