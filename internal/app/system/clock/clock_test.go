package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/roomhub/internal/app/system/clock"
)

func TestNow_StrictlyIncreasing(t *testing.T) {
	prev := clock.Now()
	for i := 0; i < 1000; i++ {
		next := clock.Now()
		if !next.After(prev) {
			t.Fatalf("call %d: %v is not after %v", i, next, prev)
		}
		prev = next
	}
}

func TestNow_MillisecondPrecisionUTC(t *testing.T) {
	now := clock.Now()
	if now.Location() != time.UTC {
		t.Errorf("location: got %v, want UTC", now.Location())
	}
	if now.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("expected millisecond precision, got %d ns", now.Nanosecond())
	}
}

func TestNow_ConcurrentCallersGetDistinctValues(t *testing.T) {
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[time.Time]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ts := clock.Now()
				mu.Lock()
				if seen[ts] {
					t.Errorf("duplicate timestamp %v", ts)
				}
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
