package random

import (
	"math/rand/v2"
	"sync"
)

// Shuffler permutes n elements through swap
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Source is a mutex-guarded PCG generator
type Source struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	seed uint64
}

// NewSource returns a goroutine-safe Shuffler. The same seed always
// yields the same sequence of permutations.
func NewSource(seed uint64) *Source {
	return &Source{
		rnd:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// New seeds a Shuffler from seed, or from crypto/rand when seed is zero.
func New(seed uint64) (Shuffler, error) {
	if seed == 0 {
		var err error
		seed, err = NewSeed()
		if err != nil {
			return nil, err
		}
	}
	return NewSource(seed), nil
}

// Shuffle performs a Fisher-Yates shuffle
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	if n <= 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}

// Seed reports the seed the source was built from
func (s *Source) Seed() uint64 {
	return s.seed
}
