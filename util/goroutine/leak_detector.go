package goroutine

import (
	"runtime"
	"testing"
	"time"
)

// AssertNoLeaks registers a cleanup that fails t if the goroutine count
// has not returned to its value at call time within five seconds. Call it
// first in tests that start worker pools.
func AssertNoLeaks(t *testing.T) {
	t.Helper()
	AssertNoLeaksWithTimeout(t, 5*time.Second, 50*time.Millisecond)
}

// AssertNoLeaksWithTimeout is AssertNoLeaks with a custom deadline and
// polling interval.
func AssertNoLeaksWithTimeout(t *testing.T, timeout, pollInterval time.Duration) {
	t.Helper()
	before := runtime.NumGoroutine()

	t.Cleanup(func() {
		if WaitForGoroutineCount(before, timeout, pollInterval) {
			return
		}
		current := runtime.NumGoroutine()
		t.Errorf("goroutine leak detected: started with %d goroutines, ended with %d (leaked %d)",
			before, current, current-before)

		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		t.Logf("Active goroutines:\n%s", string(buf[:n]))
	})
}

// WaitForGoroutineCount waits until the goroutine count is at most target.
// It returns false if the timeout expires first.
func WaitForGoroutineCount(target int, timeout, pollInterval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if runtime.NumGoroutine() <= target {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}
