package raid

import "math/rand/v2"

// Ship tiers are cosmetic: the tier is chosen by viewer count at session
// start and the name is drawn at random within the tier.
var shipTiers = []struct {
	maxViewers int
	names      []string
}{
	{10, []string{
		"Merchant Sloop", "Fishing Vessel", "Supply Barge",
		"Coast Guard Cutter", "Pearl Diving Boat",
	}},
	{30, []string{
		"Merchant Brig", "Spice Trader", "Wine Transport",
		"Silk Runner", "Colonial Supply Ship",
	}},
	{100, []string{
		"Trade Galleon", "East India Trader", "Royal Merchant",
		"Treasure Galleon", "Portuguese Carrack",
	}},
	{0, []string{
		"Spanish Armada Ship", "Royal Treasury Fleet",
		"Imperial Gold Transport", "Sultan's Gift Fleet",
		"Portuguese Spice Armada",
	}},
}

// ShipTypeFor picks a ship name for the given audience size. rng may be nil,
// in which case the package-level source is used.
func ShipTypeFor(viewerCount int, rng *rand.Rand) string {
	names := shipTiers[len(shipTiers)-1].names
	for _, tier := range shipTiers {
		if tier.maxViewers > 0 && viewerCount <= tier.maxViewers {
			names = tier.names
			break
		}
	}
	if rng != nil {
		return names[rng.IntN(len(names))]
	}
	return names[rand.IntN(len(names))]
}
