package engine

import "testing"

func TestSettleSplitsExactly(t *testing.T) {
	for _, stake := range []int64{0, 1, 3, 999, 1_000_000, 123_456_789} {
		pot := 2 * stake
		payout, fee := Settle(pot)
		if payout+fee != pot {
			t.Fatalf("stake %d: payout %d + fee %d != pot %d", stake, payout, fee, pot)
		}
		if wantFee := pot * FeeRateBps / 10000; fee != wantFee {
			t.Fatalf("stake %d: fee %d, want %d", stake, fee, wantFee)
		}
		if payout < 0 || fee < 0 {
			t.Fatalf("stake %d: negative split %d/%d", stake, payout, fee)
		}
	}
}

func TestSettleScenario(t *testing.T) {
	payout, fee := Settle(2_000_000)
	if fee != 100_000 {
		t.Fatalf("fee = %d, want 100000", fee)
	}
	if payout != 1_900_000 {
		t.Fatalf("payout = %d, want 1900000", payout)
	}
}
