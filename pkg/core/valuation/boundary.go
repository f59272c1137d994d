package valuation

import (
	"context"
	"fmt"
	"math"
)

// SolverBudget bounds the boundary root finder.
type SolverBudget struct {
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"` // relative, on X_B
}

// DefaultSolverBudget is 100 iterations to a relative error of 1e-10.
func DefaultSolverBudget() SolverBudget {
	return SolverBudget{MaxIterations: 100, Tolerance: 1e-10}
}

// BoundaryCorner records which fallback was used when dE/dX_B does not change
// sign on (0, X₀).
type BoundaryCorner string

const (
	CornerNone BoundaryCorner = ""
	// CornerNeverDefault: equity loses value by defaulting at any level, so
	// X_B = 0. This is the C = 0 case.
	CornerNeverDefault BoundaryCorner = "never-default"
	// CornerImmediateDefault: equity gains by defaulting at any level up to
	// X₀, so default happens now and X_B = X₀. Reporting X_B = 0 here would
	// price the firm as never defaulting and leave equity negative.
	CornerImmediateDefault BoundaryCorner = "immediate-default"
)

// BoundaryResult is the outcome of SolveBoundary.
type BoundaryResult struct {
	Boundary   float64        `json:"boundary"`
	Iterations int            `json:"iterations"`
	Corner     BoundaryCorner `json:"corner,omitempty"`
}

// EquityAt is the equity value when equityholders commit to default at xb:
//
//	E(X_B) = U(X₀) − K − (X₀/X_B)^β₋ · [(1−e)·U(X_B) − K],  K = (1−τ)C/r
//
// where e is equity's share of U(X_B) at default.
func EquityAt(pr Pricer, t Terms, xb float64) float64 {
	p := pr.Params()
	k := (1 - p.TaxRate) * p.Coupon / p.DiscountRate
	at := pr.WithBoundary(xb)
	return pr.UnleveredAssetValue() - k - at.DiscountedHittingValue((1-t.EquityShare)*at.UnleveredValueAt(xb)-k)
}

// marginalEquity returns f(x) = x/(X₀/x)^β₋ · dE/dX_B and its slope. The
// positive factor keeps the sign of the smooth-pasting condition without the
// under- and overflow of the hitting price near zero:
//
//	dE/dX_B = −(X₀/X_B)^β₋ / X_B · [(1−e)(1−β₋)·U(X_B) + β₋·K]
func marginalEquity(pr Pricer, t Terms, x float64) (f, df float64) {
	p := pr.Params()
	beta, _ := pr.Roots()
	k := (1 - p.TaxRate) * p.Coupon / p.DiscountRate
	slope := (1 - t.EquityShare) * (1 - beta)

	f = -(slope*pr.UnleveredValueAt(x) + beta*k)
	df = -slope / (p.DiscountRate - p.Drift)
	return f, df
}

// SolveBoundary finds the default boundary X_B* at which equity is maximised
// (dE/dX_B = 0) using Newton steps safeguarded by bisection on (0, X₀).
//
// When the derivative keeps one sign over the whole interval it returns the
// corner in BoundaryResult together with ErrNoInteriorSolution. The context is
// only consulted between iterations.
func SolveBoundary(ctx context.Context, pr Pricer, t Terms, budget SolverBudget) (BoundaryResult, error) {
	if budget.MaxIterations <= 0 || !(budget.Tolerance > 0) {
		budget = DefaultSolverBudget()
	}

	x0 := pr.Params().AssetLevel
	lo, hi := 0.0, x0
	flo, _ := marginalEquity(pr, t, lo)
	fhi, _ := marginalEquity(pr, t, hi)

	// 1. Bracket. f(0) = −β₋K ≥ 0, so a sign change needs f(X₀) < 0.
	if flo <= 0 {
		return BoundaryResult{Boundary: 0, Corner: CornerNeverDefault},
			wrap(ErrNoInteriorSolution, "dE/dX_B ≤ 0 on (0, %g)", x0)
	}
	if fhi >= 0 {
		return BoundaryResult{Boundary: x0, Corner: CornerImmediateDefault},
			wrap(ErrNoInteriorSolution, "dE/dX_B ≥ 0 on (0, %g)", x0)
	}

	// 2. Newton from the midpoint, falling back to bisection whenever the step
	// leaves the bracket.
	x := 0.5 * (lo + hi)
	for iter := 1; iter <= budget.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return BoundaryResult{Boundary: x, Iterations: iter - 1},
				fmt.Errorf("boundary solve stopped after %d iterations: %w", iter-1, err)
		}

		f, df := marginalEquity(pr, t, x)
		if f == 0 {
			return BoundaryResult{Boundary: x, Iterations: iter}, nil
		}
		if f > 0 {
			lo = x
		} else {
			hi = x
		}

		next := 0.5 * (lo + hi)
		if df != 0 {
			if n := x - f/df; n > lo && n < hi {
				next = n
			}
		}

		if math.Abs(next-x) <= budget.Tolerance*math.Max(math.Abs(next), math.SmallestNonzeroFloat64) {
			return BoundaryResult{Boundary: next, Iterations: iter}, nil
		}
		x = next
	}

	return BoundaryResult{Boundary: x, Iterations: budget.MaxIterations}, nil
}
