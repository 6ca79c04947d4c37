package models

import "testing"

func TestTierForXP(t *testing.T) {
	cases := []struct {
		xp   int64
		want string
	}{
		{0, TierBronze},
		{1, TierBronze},
		{499, TierBronze},
		{500, TierSilver},
		{510, TierSilver},
		{1999, TierSilver},
		{2000, TierGold},
		{4999, TierGold},
		{5000, TierPlatinum},
		{1_000_000, TierPlatinum},
	}
	for _, c := range cases {
		if got := TierForXP(c.xp); got != c.want {
			t.Errorf("TierForXP(%d) = %s, want %s", c.xp, got, c.want)
		}
	}
}

func TestTierForXPDeterministic(t *testing.T) {
	// same XP must always yield the same tier
	for i := 0; i < 100; i++ {
		if got := TierForXP(510); got != TierSilver {
			t.Fatalf("TierForXP(510) = %s on iteration %d", got, i)
		}
	}
}

func TestTierRank(t *testing.T) {
	order := []string{TierBronze, TierSilver, TierGold, TierPlatinum}
	for i := 1; i < len(order); i++ {
		if TierRank(order[i]) <= TierRank(order[i-1]) {
			t.Errorf("TierRank(%s) should be greater than TierRank(%s)", order[i], order[i-1])
		}
	}
	if TierRank("DIAMOND") != -1 {
		t.Errorf("TierRank of unknown tier should be -1, got %d", TierRank("DIAMOND"))
	}
}
