// Package validate provides reusable checks on valuation output.
// These functions can be called from tests, API handlers, or the CLI
// to verify that a set of claim values is internally consistent.
package validate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"structural_valuation/pkg/core/valuation"
)

// DefaultTolerance is the relative tolerance for value identities.
const DefaultTolerance = 1e-8

// =============================================================================
// CLAIM IDENTITY
// =============================================================================

// BalanceCheck verifies Firm = Debt + Equity.
type BalanceCheck struct {
	FirmValue    float64
	DebtValue    float64
	EquityValue  float64
	ComputedFirm float64 // D + E
	Difference   float64
	IsBalanced   bool
	Tolerance    float64
}

// CheckClaimIdentity validates F = D + E within a relative tolerance.
func CheckClaimIdentity(firm, debt, equity, tolerance float64) *BalanceCheck {
	computed := debt + equity
	diff := firm - computed

	return &BalanceCheck{
		FirmValue:    firm,
		DebtValue:    debt,
		EquityValue:  equity,
		ComputedFirm: computed,
		Difference:   diff,
		IsBalanced:   scalar.EqualWithinAbsOrRel(firm, computed, tolerance, tolerance),
		Tolerance:    tolerance,
	}
}

// =============================================================================
// CLAIM BOUNDS
// =============================================================================

// Violation is one failed check.
type Violation struct {
	Check  string
	Reason string
}

// Report collects the checks run on one valuation.
type Report struct {
	Coupon     float64
	Balance    *BalanceCheck
	Violations []Violation
}

// Passed reports whether every check held.
func (r *Report) Passed() bool {
	return r.Balance.IsBalanced && len(r.Violations) == 0
}

func (r *Report) fail(check, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Check: check, Reason: fmt.Sprintf(format, args...)})
}

// CheckClaims runs every consistency check on c, the valuation of p.
func CheckClaims(p valuation.Params, c *valuation.Claims, tolerance float64) *Report {
	r := &Report{
		Coupon:  p.Coupon,
		Balance: CheckClaimIdentity(c.FirmValue, c.DebtValue, c.EquityValue, tolerance),
	}
	if !r.Balance.IsBalanced {
		r.fail("identity", "F=%.10g but D+E=%.10g", c.FirmValue, r.Balance.ComputedFirm)
	}

	slack := tolerance * math.Max(1, c.FirmValue)

	// Limited liability
	if c.EquityValue < -slack {
		r.fail("equity", "negative equity %.10g", c.EquityValue)
	}
	if c.DebtValue < -slack {
		r.fail("debt", "negative debt %.10g", c.DebtValue)
	}

	if c.DefaultBoundary < 0 || c.DefaultBoundary > p.AssetLevel {
		r.fail("boundary", "X_B=%.10g outside [0, %g]", c.DefaultBoundary, p.AssetLevel)
	}

	// Without a tax shield leverage cannot add value.
	if p.TaxRate == 0 && c.FirmValue > c.UnleveredValue+slack {
		r.fail("leverage", "F=%.10g exceeds U=%.10g without a tax shield", c.FirmValue, c.UnleveredValue)
	}
	// Expected bankruptcy cost is bounded by the whole firm.
	if c.BankruptcyCost < -slack || c.BankruptcyCost > (1+tolerance)*c.UnleveredValue {
		r.fail("bankruptcy cost", "%.10g outside [0, U]", c.BankruptcyCost)
	}
	return r
}

// =============================================================================
// TRADE-OFF CURVE
// =============================================================================

// OutlierCheck flags a jump in firm value between neighbouring coupons.
type OutlierCheck struct {
	Coupon     float64
	Value      float64
	PriorValue float64
	ChangePct  float64
	IsOutlier  bool
	Reason     string
	Threshold  float64
}

// CalculateChangePct returns (current - prior) / prior * 100.
func CalculateChangePct(current, prior float64) float64 {
	if prior == 0 {
		if current == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (current - prior) / prior * 100
}

// CheckCurve scans a coupon sweep for firm-value jumps larger than
// thresholdPct between neighbouring valued points. Failed points are skipped.
func CheckCurve(curve []valuation.CurvePoint, thresholdPct float64) []*OutlierCheck {
	var out []*OutlierCheck
	var prior *valuation.Claims
	for _, pt := range curve {
		if pt.Claims == nil {
			continue
		}
		if prior != nil {
			change := CalculateChangePct(pt.Claims.FirmValue, prior.FirmValue)
			if math.Abs(change) > thresholdPct {
				out = append(out, &OutlierCheck{
					Coupon:     pt.Coupon,
					Value:      pt.Claims.FirmValue,
					PriorValue: prior.FirmValue,
					ChangePct:  change,
					IsOutlier:  true,
					Reason:     fmt.Sprintf("Change of %.1f%% exceeds threshold of %.1f%%", change, thresholdPct),
					Threshold:  thresholdPct,
				})
			}
		}
		prior = pt.Claims
	}
	return out
}
