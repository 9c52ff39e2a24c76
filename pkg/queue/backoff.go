package queue

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// backoffWindow is the most we'll sleep after the given number of consecutive backoffs;
// 2^min(tries, minWindow) capped at maxWindow.
func backoffWindow(tries, minWindow, maxWindow int) time.Duration {
	if tries < 0 {
		tries = 0
	}
	exp := tries
	if minWindow < exp {
		exp = minWindow
	}
	high := math.Min(math.Pow(2, float64(exp)), float64(maxWindow))
	return time.Duration(high * float64(time.Second))
}

// backoffDuration picks a time uniformly from [0, backoffWindow]
func backoffDuration(tries, minWindow, maxWindow int, random func() float64) time.Duration {
	return time.Duration(random() * float64(backoffWindow(tries, minWindow, maxWindow)))
}

func randomFloat() float64 {
	return rand.Float64()
}

// sleepContext sleeps for d or until ctx is done, whichever comes first
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
