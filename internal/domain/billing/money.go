package billing

import "math"

// GallonsPerCCF converts gallon-denominated meter readings to the CCF
// (hundred cubic feet) units utility bills are stated in.
const GallonsPerCCF = 748.0

// ReconcileTolerance is the maximum dollar difference allowed when
// reconciling calculated totals against the bill's stated totals. Covers
// accumulated per-line rounding drift.
const ReconcileTolerance = 0.02

// RoundToCents rounds a dollar amount to 2 decimal places.
func RoundToCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Cents converts a dollar amount to integer cents, rounding to the
// nearest cent.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Dollars converts integer cents back to a float64 dollar amount.
func Dollars(cents int64) float64 {
	return float64(cents) / 100
}

// SplitCents distributes totalCents across n slots so the slots sum
// exactly to totalCents. Every slot gets the floor share; the first
// remainder slots get one extra cent. Negative totals split symmetrically
// (the first slots carry the extra negative cent).
func SplitCents(totalCents int64, n int) []int64 {
	if n <= 0 {
		return nil
	}

	sign := int64(1)
	abs := totalCents
	if abs < 0 {
		sign = -1
		abs = -abs
	}

	base := abs / int64(n)
	remainder := abs % int64(n)

	shares := make([]int64, n)
	for i := range shares {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[i] = sign * share
	}
	return shares
}
