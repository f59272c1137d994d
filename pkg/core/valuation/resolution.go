package valuation

// ResolutionMode is how bankruptcy is resolved at the default boundary.
type ResolutionMode string

const (
	Liquidation   ResolutionMode = "liquidation"
	Renegotiation ResolutionMode = "renegotiation"
)

// shareTolerance absorbs rounding when debt is exactly indifferent.
const shareTolerance = 1e-12

// Terms are the fractions of the going-concern value U(X_B) = X_B/(r−μ) that
// each class ends up with at default. DebtShare + EquityShare + DeadweightShare
// is always 1. Terms depend on Params only, not on the boundary.
type Terms struct {
	Mode            ResolutionMode `json:"mode"`
	DebtShare       float64        `json:"debt_share"`
	EquityShare     float64        `json:"equity_share"`
	DeadweightShare float64        `json:"deadweight_share"`
}

// Resolution is the realised split at a concrete boundary.
type Resolution struct {
	Mode           ResolutionMode `json:"mode"`
	GoingConcern   float64        `json:"going_concern"`
	DebtRecovery   float64        `json:"debt_recovery"`
	EquityRecovery float64        `json:"equity_recovery"`
	Deadweight     float64        `json:"deadweight"`
}

// LiquidationTerms: the asset is sold, α is lost and debt takes the proceeds.
func LiquidationTerms(p Params) Terms {
	return Terms{
		Mode:            Liquidation,
		DebtShare:       1 - p.BankruptcyCost,
		EquityShare:     0,
		DeadweightShare: p.BankruptcyCost,
	}
}

// RenegotiationTerms are the expected shares when the claimholders attempt an
// out-of-court restructuring that fails with probability q, in which case the
// firm is liquidated.
func RenegotiationTerms(p Params) Terms {
	alpha, eta, q := p.BankruptcyCost, p.RenegotiationShare, p.RenegotiationFailure

	// Shares of U(X_B) when the deal goes through.
	var debt, equity float64
	switch p.rule() {
	case BargainAsset:
		debt, equity = eta, 1-eta
	default:
		// Nash split of the saved cost α·U(X_B): equity gets η of it.
		debt, equity = 1-eta*alpha, eta*alpha
	}

	return Terms{
		Mode:            Renegotiation,
		DebtShare:       q*(1-alpha) + (1-q)*debt,
		EquityShare:     (1 - q) * equity,
		DeadweightShare: q * alpha,
	}
}

// ResolutionTerms picks the mode both classes would agree to. Debt accepts a
// renegotiation only if it recovers at least its liquidation payoff, and there
// is only something to negotiate over when renegotiating saves a positive
// bankruptcy cost. Ties go to Liquidation.
func ResolutionTerms(p Params) Terms {
	liq := LiquidationTerms(p)
	ren := RenegotiationTerms(p)

	surplus := liq.DeadweightShare - ren.DeadweightShare
	if ren.DebtShare >= liq.DebtShare-shareTolerance && surplus > 0 {
		return ren
	}
	return liq
}

// Resolve applies t at the boundary the pricer is bound to.
func Resolve(pr Pricer, t Terms) Resolution {
	v := pr.UnleveredValueAt(pr.Boundary())
	return Resolution{
		Mode:           t.Mode,
		GoingConcern:   v,
		DebtRecovery:   t.DebtShare * v,
		EquityRecovery: t.EquityShare * v,
		Deadweight:     t.DeadweightShare * v,
	}
}
