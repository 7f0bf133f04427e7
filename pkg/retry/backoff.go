package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExponentialBackoff builds an unbounded-elapsed-time exponential backoff.
func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) backoff.BackOff {
	return newExponential(initialInterval, maxInterval, multiplier, 0)
}

// ExponentialBackoffWithMaxElapsed builds an exponential backoff that gives up
// once maxElapsed has passed.
func ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	return newExponential(initialInterval, maxInterval, multiplier, maxElapsed)
}

func newExponential(initialInterval, maxInterval time.Duration, multiplier float64, maxElapsed time.Duration) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = maxElapsed
	return exp
}

// CalculateBackoffDuration predicts the delay before the given attempt,
// ignoring jitter. Used for logging the next delay, not for sleeping.
func CalculateBackoffDuration(attempt int, initialInterval time.Duration, multiplier float64, maxInterval time.Duration) time.Duration {
	d := float64(initialInterval) * math.Pow(multiplier, float64(attempt))
	if d > float64(maxInterval) {
		return maxInterval
	}
	return time.Duration(d)
}
