package analysis

// netCents converts a gross edge into expected realized profit per one-dollar
// set: trading fees are charged per side on the capital deployed, and a flat
// slippage haircut covers crossing the spread.
func netCents(grossCents, legCostDollars, feePerSide, slippageCents float64) float64 {
	feeCents := feePerSide * legCostDollars * 100
	return grossCents - feeCents - slippageCents
}
