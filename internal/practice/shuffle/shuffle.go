// Package shuffle holds the randomization primitives used to build practice
// sessions: unbiased and seeded Fisher-Yates shuffles, answer-slot
// distribution and sampling without replacement.
package shuffle

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// OptionCount is the number of answer slots per question.
const OptionCount = 4

// ErrSampleTooLarge is returned when more items are requested than the pool holds.
var ErrSampleTooLarge = errors.New("sample larger than pool")

const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
	lcgModulus           = 1 << 32
)

// LCG is a 32-bit linear congruential generator. The same seed always yields
// the same sequence.
type LCG struct {
	state uint32
}

// NewLCG seeds a generator. Only the low 32 bits of seed are significant.
func NewLCG(seed int64) *LCG {
	return &LCG{state: uint32(seed)}
}

// Float64 advances the generator and returns a value in [0, 1).
func (g *LCG) Float64() float64 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return float64(g.state) / lcgModulus
}

// Shuffle returns a uniformly permuted copy of items. The input is untouched.
func Shuffle[T any](items []T) []T {
	return fisherYates(items, rand.Float64)
}

// Seeded returns a permuted copy of items that is reproducible for a given seed.
func Seeded[T any](seed int64, items []T) []T {
	return fisherYates(items, NewLCG(seed).Float64)
}

func fisherYates[T any](items []T, next func() float64) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// DistributeAnswerPositions assigns a correct-answer slot to each of n
// questions. Every slot is used floor(n/4) or ceil(n/4) times.
func DistributeAnswerPositions(n int) []int {
	return Shuffle(cyclePositions(n))
}

// DistributeAnswerPositionsSeeded is the reproducible form of DistributeAnswerPositions.
func DistributeAnswerPositionsSeeded(seed int64, n int) []int {
	return Seeded(seed, cyclePositions(n))
}

func cyclePositions(n int) []int {
	if n <= 0 {
		return []int{}
	}
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i % OptionCount
	}
	return positions
}

// Sample picks k distinct items from pool.
func Sample[T any](pool []T, k int) ([]T, error) {
	return sample(pool, k, Shuffle[T])
}

// SampleSeeded picks k distinct items from pool reproducibly.
func SampleSeeded[T any](seed int64, pool []T, k int) ([]T, error) {
	return sample(pool, k, func(items []T) []T { return Seeded(seed, items) })
}

func sample[T any](pool []T, k int, permute func([]T) []T) ([]T, error) {
	if k < 0 {
		return nil, fmt.Errorf("sample size %d is negative", k)
	}
	if k > len(pool) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrSampleTooLarge, k, len(pool))
	}
	return permute(pool)[:k], nil
}
