package valuation

import (
	"context"
	"errors"
	"runtime"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"
)

// consistencyTolerance is the relative tolerance for F = D + E.
const consistencyTolerance = 1e-8

// Claims is the value of every claim on the firm for one Params.
type Claims struct {
	FirmValue       float64        `json:"firm_value"`
	DebtValue       float64        `json:"debt_value"`
	EquityValue     float64        `json:"equity_value"`
	DefaultBoundary float64        `json:"default_boundary"`
	Resolution      ResolutionMode `json:"resolution_mode"`

	UnleveredValue float64 `json:"unlevered_value"`
	TaxBenefit     float64 `json:"tax_benefit"`
	BankruptcyCost float64 `json:"bankruptcy_cost"`
	DefaultPrice   float64 `json:"default_price"` // (X₀/X_B)^β₋
	DebtRecovery   float64 `json:"debt_recovery"`
	EquityRecovery float64 `json:"equity_recovery"`

	DebtYield    float64 `json:"debt_yield"`
	CreditSpread float64 `json:"credit_spread"`
	Leverage     float64 `json:"leverage"`

	Fallback   BoundaryCorner `json:"boundary_fallback,omitempty"`
	Iterations int            `json:"iterations"`
}

// Valuator prices claims. The zero value is usable; it carries configuration
// only and keeps no state between calls.
type Valuator struct {
	Budget  SolverBudget
	Workers int // parallelism for EvaluateCoupons, default GOMAXPROCS
	Logger  *zap.SugaredLogger
}

// NewValuator returns a Valuator with the default solver budget.
func NewValuator(logger *zap.SugaredLogger) Valuator {
	return Valuator{Budget: DefaultSolverBudget(), Logger: logger}
}

// ValueClaims prices p with a default Valuator.
func ValueClaims(ctx context.Context, p Params) (*Claims, error) {
	return Valuator{}.ValueClaims(ctx, p)
}

// ValueClaims solves the default boundary, resolves bankruptcy at it and
// assembles firm, debt and equity values.
func (v Valuator) ValueClaims(ctx context.Context, p Params) (*Claims, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pr, err := NewPricer(p)
	if err != nil {
		return nil, err
	}

	// 1. Resolution terms depend on Params alone; the boundary depends on
	// equity's share at default.
	terms := ResolutionTerms(p)

	// 2. Default boundary
	b, err := SolveBoundary(ctx, pr, terms, v.budget())
	if err != nil && !errors.Is(err, ErrNoInteriorSolution) {
		return nil, err
	}

	// 3. Payoffs at the boundary
	at := pr.WithBoundary(b.Boundary)
	res := Resolve(at, terms)

	// 4. Assemble
	// D = C/r·(1−p) + p·D_B
	// F = U(X₀) + τ·C/r·(1−p) − p·deadweight
	pvCoupon, err := at.PresentValueOfPerpetuity(p.DiscountRate, p.Coupon)
	if err != nil {
		return nil, err
	}
	debt := pvCoupon + at.DiscountedHittingValue(res.DebtRecovery)
	taxBenefit := p.TaxRate * pvCoupon
	bankruptcyCost := at.DiscountedHittingValue(res.Deadweight)
	firm := at.UnleveredAssetValue() + taxBenefit - bankruptcyCost
	equity := firm - debt

	// 5. Re-derive equity from its own cash flows and check F = D + E.
	// E = U(X₀) − (1−τ)·C/r·(1−p) − p·(U(X_B) − E_B)
	equityDirect := at.UnleveredAssetValue() - (1-p.TaxRate)*pvCoupon -
		at.DiscountedHittingValue(res.GoingConcern-res.EquityRecovery)
	if !scalar.EqualWithinAbsOrRel(firm, debt+equityDirect, consistencyTolerance, consistencyTolerance) {
		return nil, wrap(ErrAssertionFailed, "firm %.12g != debt %.12g + equity %.12g", firm, debt, equityDirect)
	}

	metrics := CalculateCreditMetrics(CreditMetricsInput{
		Coupon:       p.Coupon,
		DebtValue:    debt,
		FirmValue:    firm,
		RiskFreeRate: p.DiscountRate,
	})

	return &Claims{
		FirmValue:       firm,
		DebtValue:       debt,
		EquityValue:     equity,
		DefaultBoundary: b.Boundary,
		Resolution:      res.Mode,
		UnleveredValue:  at.UnleveredAssetValue(),
		TaxBenefit:      taxBenefit,
		BankruptcyCost:  bankruptcyCost,
		DefaultPrice:    at.HittingPrice(),
		DebtRecovery:    res.DebtRecovery,
		EquityRecovery:  res.EquityRecovery,
		DebtYield:       metrics.DebtYield,
		CreditSpread:    metrics.CreditSpread,
		Leverage:        metrics.Leverage,
		Fallback:        b.Corner,
		Iterations:      b.Iterations,
	}, nil
}

func (v Valuator) budget() SolverBudget {
	if v.Budget.MaxIterations <= 0 || !(v.Budget.Tolerance > 0) {
		return DefaultSolverBudget()
	}
	return v.Budget
}

func (v Valuator) workers() int {
	if v.Workers > 0 {
		return v.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (v Valuator) logger() *zap.SugaredLogger {
	if v.Logger != nil {
		return v.Logger
	}
	return zap.NewNop().Sugar()
}
