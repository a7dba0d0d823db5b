package feedback

// Classify buckets a trade by its percentage gain. Boundaries are
// inclusive toward the stronger category: a gain of exactly 5% is a
// significant profit and a loss of exactly 10% is a significant loss,
// while a loss of exactly 2% still counts as break-even.
func Classify(entryPrice, exitPrice float64) Category {
	if entryPrice == 0 {
		return BreakEven
	}
	gain := (exitPrice - entryPrice) / entryPrice
	switch {
	case gain >= significantProfitThreshold:
		return SignificantProfit
	case gain > 0:
		return ModerateProfit
	case gain >= breakEvenFloor:
		return BreakEven
	case gain > significantLossThreshold:
		return ModerateLoss
	default:
		return SignificantLoss
	}
}
