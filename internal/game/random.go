package game

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sort"
	"sync"
)

// RandomSource supplies uniform integers in [0, n). *math/rand/v2.Rand satisfies it,
// which is what tests inject for reproducible boards.
type RandomSource interface {
	IntN(n int) int
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mrand.IntN(n) // fallback
	}
	return int(v.Int64())
}

// LockedSource serializes access to a source that is not safe for concurrent use.
type LockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func NewLockedSource(src RandomSource) *LockedSource {
	return &LockedSource{src: src}
}

func (l *LockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// PickMines selects count distinct cells from [0, gridSize) uniformly without
// replacement using a partial Fisher-Yates shuffle. The result is sorted.
func PickMines(src RandomSource, gridSize, count int) []int {
	pool := make([]int, gridSize)
	for i := range pool {
		pool[i] = i
	}

	for i := 0; i < count; i++ {
		j := i + src.IntN(gridSize-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	mines := append([]int(nil), pool[:count]...)
	sort.Ints(mines)
	return mines
}
