// Package pool provides pooled timers for the link's bounded waits.
package pool

import (
	"context"
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer for the given duration d from the pool.
//
// Return back the timer to the pool with PutTimer.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // only *time.Timer is put into the pool
		t.Reset(d)

		return t
	}

	return time.NewTimer(d)
}

// PutTimer returns timer to the pool.
//
// t cannot be accessed after returning to the pool.
func PutTimer(t *time.Timer) {
	t.Stop()
	timerPool.Put(t)
}

// WaitDone waits until done is closed, ctx is cancelled or d elapses.
// It returns true only if done was closed in time.
func WaitDone(ctx context.Context, done <-chan struct{}, d time.Duration) bool {
	timer := GetTimer(d)
	defer PutTimer(timer)

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}
