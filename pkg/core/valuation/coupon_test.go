package valuation

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCouponGrid(t *testing.T) {
	grid, err := CouponGrid(CouponBounds{Min: 0, Max: 10}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 2.5, 5, 7.5, 10}
	if len(grid) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(grid))
	}
	for i := range want {
		if math.Abs(grid[i]-want[i]) > 1e-12 {
			t.Errorf("point %d: expected %f, got %f", i, want[i], grid[i])
		}
	}

	single, _ := CouponGrid(CouponBounds{Min: 4, Max: 4}, 10)
	if len(single) != 1 || single[0] != 4 {
		t.Errorf("Expected [4] for a degenerate interval, got %v", single)
	}

	for _, bad := range []struct {
		b     CouponBounds
		steps int
	}{
		{CouponBounds{Min: -1, Max: 5}, 3},
		{CouponBounds{Min: 5, Max: 1}, 3},
		{CouponBounds{Min: 0, Max: math.Inf(1)}, 3},
		{CouponBounds{Min: 0, Max: 5}, 0},
		{CouponBounds{Min: 0, Max: 5}, MaxGridSteps + 1},
		{CouponBounds{Min: 0, Max: 5}, math.MaxInt},
	} {
		if _, err := CouponGrid(bad.b, bad.steps); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("%+v/%d: expected ErrInvalidParameters, got %v", bad.b, bad.steps, err)
		}
	}
}

func TestSweepCoupons_RestartableAndRecordsFailures(t *testing.T) {
	v := NewValuator(nil)
	coupons := []float64{0, 6, -1, math.NaN(), 12}
	seq := v.SweepCoupons(context.Background(), baseParams(), coupons)

	collect := func() []SweepPoint {
		var out []SweepPoint
		for pt := range seq {
			out = append(out, pt)
		}
		return out
	}

	first := collect()
	second := collect()
	if len(first) != len(coupons) || len(second) != len(coupons) {
		t.Fatalf("Expected %d points per pass, got %d and %d", len(coupons), len(first), len(second))
	}

	for i, pt := range first {
		failed := i == 2 || i == 3
		if failed {
			if !errors.Is(pt.Err, ErrInvalidParameters) || pt.Claims != nil {
				t.Errorf("point %d: expected a recorded ErrInvalidParameters, got %+v", i, pt)
			}
			if pt.Record().Error == "" {
				t.Errorf("point %d: expected the error to survive Record()", i)
			}
			continue
		}
		if pt.Err != nil || pt.Claims == nil {
			t.Fatalf("point %d: unexpected failure %v", i, pt.Err)
		}
		if *pt.Claims != *second[i].Claims {
			t.Errorf("point %d: second pass differs", i)
		}
	}
}

func TestSweepCoupons_EarlyBreak(t *testing.T) {
	v := NewValuator(nil)
	count := 0
	for range v.SweepCoupons(context.Background(), baseParams(), []float64{1, 2, 3, 4}) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("Expected to stop after 2 points, got %d", count)
	}
}

func TestSweepCoupons_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var points []SweepPoint
	for pt := range NewValuator(nil).SweepCoupons(ctx, baseParams(), []float64{1, 2, 3}) {
		points = append(points, pt)
	}
	if len(points) != 1 || !errors.Is(points[0].Err, context.Canceled) {
		t.Errorf("Expected a single cancelled point, got %+v", points)
	}
}

func TestEvaluateCoupons_MatchesSequentialSweep(t *testing.T) {
	v := Valuator{Workers: 3}
	grid, _ := CouponGrid(CouponBounds{Min: 0, Max: 60}, 13)

	parallel, err := v.EvaluateCoupons(context.Background(), baseParams(), grid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	i := 0
	for pt := range v.SweepCoupons(context.Background(), baseParams(), grid) {
		if parallel[i].Coupon != pt.Coupon {
			t.Errorf("point %d: expected coupon %f, got %f", i, pt.Coupon, parallel[i].Coupon)
		}
		if *parallel[i].Claims != *pt.Claims {
			t.Errorf("point %d: parallel result differs", i)
		}
		i++
	}
}

func TestOptimizeCoupon_BeatsGrid(t *testing.T) {
	v := NewValuator(nil)
	bounds := CouponBounds{Min: 0, Max: 150}

	opt, err := v.OptimizeCoupon(context.Background(), baseParams(), bounds, 31)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opt.Coupon < bounds.Min || opt.Coupon > bounds.Max {
		t.Errorf("optimum %f outside bounds", opt.Coupon)
	}
	if len(opt.Curve) != 31 {
		t.Errorf("Expected the full curve of 31 points, got %d", len(opt.Curve))
	}
	for _, pt := range opt.Curve {
		if pt.Err == nil && pt.Claims.FirmValue > opt.Claims.FirmValue+1e-9 {
			t.Errorf("grid coupon %f has firm value %f above optimum %f", pt.Coupon, pt.Claims.FirmValue, opt.Claims.FirmValue)
		}
	}

	// Levering up adds value with a tax shield.
	if opt.Coupon == 0 || opt.Claims.FirmValue <= opt.Claims.UnleveredValue {
		t.Errorf("Expected an interior optimum above U, got C=%f F=%f", opt.Coupon, opt.Claims.FirmValue)
	}
}

func TestOptimizeCoupon_NoTaxesNoDebt(t *testing.T) {
	p := baseParams()
	p.TaxRate = 0

	opt, err := NewValuator(nil).OptimizeCoupon(context.Background(), p, CouponBounds{Min: 0, Max: 50}, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Renegotiation avoids deadweight loss and there is no tax shield, so no
	// coupon changes firm value.
	if !closeRel(opt.Claims.FirmValue, opt.Claims.UnleveredValue, 1e-12) {
		t.Errorf("Expected F = U = %f, got %f at C=%f", opt.Claims.UnleveredValue, opt.Claims.FirmValue, opt.Coupon)
	}
}
