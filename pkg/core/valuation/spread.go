package valuation

// CreditMetricsInput parameters for the debt pricing ratios
type CreditMetricsInput struct {
	Coupon       float64
	DebtValue    float64
	FirmValue    float64
	RiskFreeRate float64
}

// CreditMetricsResult holds the derived ratios
type CreditMetricsResult struct {
	DebtYield    float64 // C / D
	CreditSpread float64 // Yield over the riskless rate
	Leverage     float64 // D / F
}

// CalculateCreditMetrics derives yield, spread and market leverage from
// already priced claims. Zero debt has no yield and no spread.
func CalculateCreditMetrics(input CreditMetricsInput) CreditMetricsResult {
	var res CreditMetricsResult

	// 1. Yield and spread
	// y = C / D, spread = y − r
	if input.DebtValue > 0 {
		res.DebtYield = input.Coupon / input.DebtValue
		res.CreditSpread = res.DebtYield - input.RiskFreeRate
	}

	// 2. Market leverage
	if input.FirmValue > 0 {
		res.Leverage = input.DebtValue / input.FirmValue
	}

	return res
}
