package engine

// FeeRateBps is the platform cut of the pooled stake, in basis points.
const FeeRateBps = 500

// Settle splits a pooled stake between the winner and the platform. The fee
// floors, so payout + fee always equals the pot exactly.
func Settle(pot int64) (payout, fee int64) {
	fee = pot * FeeRateBps / 10000
	payout = pot - fee
	return payout, fee
}
