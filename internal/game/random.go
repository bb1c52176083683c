package game

import (
	"math/rand"
	"time"
)

// Rand is the random source used by lifeline math. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a deterministic source for seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// NewTimeRand seeds from the wall clock.
func NewTimeRand() Rand {
	return NewRand(time.Now().UnixNano())
}
