package game

import "math/big"

const (
	GridSize = 25 // 5x5

	MinMines = 1
	MaxMines = GridSize - 1

	// BaselineMultiplier applies before the first safe reveal.
	BaselineMultiplier = 1.0
)

// Multiplier returns the payout multiplier on the standard board after
// `revealed` safe cells with `mines` mines placed.
func Multiplier(mines, revealed int) float64 {
	return MultiplierFor(GridSize, mines, revealed)
}

// MultiplierFor is the inverse probability of drawing `revealed` safe cells in a row,
// C(n, k) / C(n-m, k), floored to two decimals. It is computed with exact integer
// arithmetic so the table never drifts between platforms. Outside the valid domain
// it returns 0.
func MultiplierFor(gridSize, mines, revealed int) float64 {
	if mines <= 0 || mines >= gridSize || revealed < 0 || revealed > gridSize-mines {
		return 0
	}

	num := new(big.Int).Binomial(int64(gridSize), int64(revealed))
	den := new(big.Int).Binomial(int64(gridSize-mines), int64(revealed))

	cents := num.Mul(num, big.NewInt(100))
	cents.Quo(cents, den)

	return float64(cents.Int64()) / 100
}

// MultiplierTable returns the multipliers for 1..safe reveals on the standard board.
func MultiplierTable(mines int) []float64 {
	if mines < MinMines || mines > MaxMines {
		return nil
	}
	safeCells := GridSize - mines

	table := make([]float64, safeCells)
	for reveals := 1; reveals <= safeCells; reveals++ {
		table[reveals-1] = Multiplier(mines, reveals)
	}
	return table
}
