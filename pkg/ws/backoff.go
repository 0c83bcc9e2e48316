package ws

import (
	"math"
	"time"
)

// backoffFactor is the multiplier between consecutive reconnect delays.
const backoffFactor = 1.5

// backoffDelay returns the delay before reconnect attempt n (n >= 1):
// interval * 1.5^(n-1).
func backoffDelay(interval time.Duration, n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(float64(interval) * math.Pow(backoffFactor, float64(n-1)))
}
