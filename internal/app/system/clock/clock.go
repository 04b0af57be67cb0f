// Package clock issues the timestamps used for message creation and read
// cursors.
//
// MongoDB stores dates with millisecond precision, so every value is truncated
// to the millisecond. Values are strictly increasing within the process: two
// calls never return the same instant, which keeps message order equal to
// insertion order and guarantees a message sent after a read is newer than
// the cursor.
package clock

import (
	"sync"
	"time"
)

var (
	mu   sync.Mutex
	last time.Time
)

// Now returns the current UTC time at millisecond precision, bumped forward
// by one millisecond when it would not be after the previous value.
func Now() time.Time {
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if !now.After(last) {
		now = last.Add(time.Millisecond)
	}
	last = now
	return now
}
