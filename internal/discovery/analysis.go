package discovery

import "math"

// RoundEstimate is the output of Round: the birthday-problem estimate of
// how many of n contenders land on distinct values out of m slots.
type RoundEstimate struct {
	CollisionProbability float64
	ExpectedSuccesses    int
}

// Round estimates the outcome of n stations independently picking among m
// slots (time windows, or free addresses): the probability at least two
// pick the same slot, and the expected number of stations that end up
// with a uniquely-chosen slot, via the birthday-problem approximation
// E = n * (1 - 1/m)^(n-1).
func Round(n, m int) RoundEstimate {
	if n <= 0 || m <= 0 {
		return RoundEstimate{}
	}

	pBar := 1.0
	for i := 1; i < n; i++ {
		pBar *= 1.0 - float64(i)/float64(m)
	}
	p := 1.0 - pBar

	e := float64(n) * math.Pow(1.0-1.0/float64(m), float64(n-1))

	return RoundEstimate{
		CollisionProbability: p,
		ExpectedSuccesses:    int(math.Round(e)),
	}
}

// Simulate models address discovery across repeated rounds: each round,
// stations contend for time slots (the reply-window jitter), then the
// successful ones contend again for free addresses. It returns the
// number of rounds needed to assign every station an address, or the
// round count at which it stops early: when addresses run out, or when a
// round's estimate assigns no station at all.
func Simulate(stations, slots, addresses int) int {
	rounds := 0
	for stations > 0 && addresses > 0 {
		rounds++
		received := Round(stations, slots).ExpectedSuccesses
		assigned := Round(received, addresses).ExpectedSuccesses
		if assigned <= 0 {
			break
		}
		stations -= assigned
		addresses -= assigned
	}
	return rounds
}
