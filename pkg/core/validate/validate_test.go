package validate

import (
	"context"
	"math"
	"testing"

	"structural_valuation/pkg/core/valuation"
)

func baseParams() valuation.Params {
	return valuation.Params{
		AssetLevel:         100,
		Drift:              0.02,
		Volatility:         0.25,
		DiscountRate:       0.08,
		TaxRate:            0.15,
		Coupon:             6,
		BankruptcyCost:     0.3,
		RenegotiationShare: 0.5,
	}
}

// =============================================================================
// CLAIM IDENTITY TESTS
// =============================================================================

func TestCheckClaimIdentity(t *testing.T) {
	// Perfect balance
	check := CheckClaimIdentity(100, 60, 40, 1e-8)
	if !check.IsBalanced {
		t.Error("Perfect balance not detected")
	}

	// Relative rounding at large values
	check = CheckClaimIdentity(1e6, 6e5, 4e5+1e-3, 1e-8)
	if !check.IsBalanced {
		t.Error("Balance within relative tolerance not detected")
	}

	// Imbalanced
	check = CheckClaimIdentity(100, 60, 30, 1e-8)
	if check.IsBalanced {
		t.Error("Imbalance not detected")
	}
	if math.Abs(check.Difference-10) > 1e-12 {
		t.Errorf("Expected difference 10, got %f", check.Difference)
	}
}

func TestCheckClaims_ValuationPasses(t *testing.T) {
	for _, coupon := range []float64{0, 6, 60, 300} {
		p := baseParams().WithCoupon(coupon)
		c, err := valuation.ValueClaims(context.Background(), p)
		if err != nil {
			t.Fatalf("C=%g: unexpected error: %v", coupon, err)
		}

		r := CheckClaims(p, c, DefaultTolerance)
		if !r.Passed() {
			t.Errorf("C=%g: expected all checks to pass, got %+v", coupon, r.Violations)
		}
	}
}

func TestCheckClaims_DetectsViolations(t *testing.T) {
	p := baseParams()
	p.TaxRate = 0
	c := &valuation.Claims{
		FirmValue:       120,
		DebtValue:       130,
		EquityValue:     -5,
		DefaultBoundary: 150,
		UnleveredValue:  100,
	}

	r := CheckClaims(p, c, DefaultTolerance)
	if r.Passed() {
		t.Fatal("Expected violations")
	}

	found := map[string]bool{}
	for _, v := range r.Violations {
		found[v.Check] = true
	}
	for _, want := range []string{"identity", "equity", "boundary", "leverage"} {
		if !found[want] {
			t.Errorf("Expected a %s violation, got %+v", want, r.Violations)
		}
	}
	if found["debt"] {
		t.Error("debt is positive and should not be flagged")
	}
}

// =============================================================================
// TRADE-OFF CURVE TESTS
// =============================================================================

func TestCheckCurve(t *testing.T) {
	claims := func(f float64) *valuation.Claims { return &valuation.Claims{FirmValue: f} }

	curve := []valuation.CurvePoint{
		{Coupon: 0, Claims: claims(100)},
		{Coupon: 1, Claims: claims(102)},
		{Coupon: 2, Error: "invalid parameter set"},
		{Coupon: 3, Claims: claims(150)},
		{Coupon: 4, Claims: claims(151)},
	}

	outliers := CheckCurve(curve, 10)
	if len(outliers) != 1 {
		t.Fatalf("Expected 1 outlier, got %d", len(outliers))
	}
	if outliers[0].Coupon != 3 || outliers[0].PriorValue != 102 {
		t.Errorf("Expected the jump at C=3 from 102, got %+v", outliers[0])
	}
	t.Logf("Outlier reason: %s", outliers[0].Reason)
}

func TestCheckCurve_SmoothSweep(t *testing.T) {
	grid, _ := valuation.CouponGrid(valuation.CouponBounds{Min: 0, Max: 150}, 31)
	points, err := valuation.NewValuator(nil).EvaluateCoupons(context.Background(), baseParams(), grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	curve := make([]valuation.CurvePoint, len(points))
	for i, pt := range points {
		curve[i] = pt.Record()
	}
	if outliers := CheckCurve(curve, 5); len(outliers) != 0 {
		t.Errorf("Expected a smooth trade-off curve, got %d jumps: %s", len(outliers), outliers[0].Reason)
	}
}

func TestCalculateChangePct(t *testing.T) {
	if got := CalculateChangePct(105, 100); math.Abs(got-5) > 1e-12 {
		t.Errorf("Expected 5%%, got %f", got)
	}
	if got := CalculateChangePct(0, 0); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
	if got := CalculateChangePct(1, 0); !math.IsInf(got, 1) {
		t.Errorf("Expected +Inf, got %f", got)
	}
}
