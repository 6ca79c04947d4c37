package models

// Tier names, lowest first.
const (
	TierBronze   = "BRONZE"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

// tierThresholds: minimum XP per tier, ascending. Tier is always derived
// from XP through TierForXP; the persisted User.Tier field is a cache.
var tierThresholds = []struct {
	Name  string
	MinXP int64
}{
	{TierBronze, 0},
	{TierSilver, 500},
	{TierGold, 2000},
	{TierPlatinum, 5000},
}

// TierForXP returns the tier bracket for a given XP total.
func TierForXP(xp int64) string {
	tier := TierBronze
	for _, t := range tierThresholds {
		if xp >= t.MinXP {
			tier = t.Name
		}
	}
	return tier
}

// TierRank returns the ordinal of a tier name (BRONZE=0), -1 if unknown.
func TierRank(name string) int {
	for i, t := range tierThresholds {
		if t.Name == name {
			return i
		}
	}
	return -1
}
