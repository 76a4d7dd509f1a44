package pricing

// TieredCost computes the cost of totalUnits against an ordered tier list.
// Tiers are consumed in order; the last tier is open-ended, so any quantity
// left after its stated size is billed at the last tier's rate. An empty
// tier list costs nothing.
func TieredCost(totalUnits float64, tiers []Tier) float64 {
	if len(tiers) == 0 || totalUnits <= 0 {
		return 0
	}

	cost := 0.0
	remaining := totalUnits

	for i, tier := range tiers {
		if remaining <= 0 {
			break
		}

		consumed := min(remaining, tier.Quantity)
		cost += consumed * tier.UnitPrice
		remaining -= consumed

		if i == len(tiers)-1 && remaining > 0 {
			cost += remaining * tier.UnitPrice
			break
		}
	}

	return cost
}
