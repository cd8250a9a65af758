// Package prize holds the fixed payout schedule applied to a settled
// epoch's pool.
package prize

import "math/bits"

// Percentage shares of the settled pool by rank. The three shares need
// not sum to the pool exactly: floor division leaves a remainder in
// vault custody.
const (
	FirstPercent  = 50
	SecondPercent = 30
	ThirdPercent  = 20
)

// Amount returns the payout for a 1-based rank out of pool, using
// 128-bit intermediate math so large pools cannot overflow. Ranks
// outside 1..3 pay nothing.
func Amount(rank uint8, pool uint64) uint64 {
	var pct uint64
	switch rank {
	case 1:
		pct = FirstPercent
	case 2:
		pct = SecondPercent
	case 3:
		pct = ThirdPercent
	default:
		return 0
	}
	// pct <= 50 keeps the 128-bit quotient within 64 bits.
	hi, lo := bits.Mul64(pool, pct)
	q, _ := bits.Div64(hi, lo, 100)
	return q
}
