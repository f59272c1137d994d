package valuation

import (
	"context"
	"fmt"
	"iter"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// CouponBounds is the closed coupon interval searched by the optimizer.
type CouponBounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// SweepPoint is one evaluation of the coupon trade-off curve. Exactly one of
// Claims and Err is set.
type SweepPoint struct {
	Coupon float64
	Claims *Claims
	Err    error
}

// CurvePoint is the serialisable form of a SweepPoint.
type CurvePoint struct {
	Coupon float64 `json:"coupon"`
	Claims *Claims `json:"claims,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Record converts the point for storage and transport.
func (sp SweepPoint) Record() CurvePoint {
	cp := CurvePoint{Coupon: sp.Coupon, Claims: sp.Claims}
	if sp.Err != nil {
		cp.Error = sp.Err.Error()
	}
	return cp
}

// CouponOptimum is the result of OptimizeCoupon.
type CouponOptimum struct {
	Coupon  float64      `json:"coupon"`
	Claims  *Claims      `json:"claims"`
	Refined bool         `json:"refined"`
	Curve   []SweepPoint `json:"-"`
}

// MaxGridSteps caps the number of coupons in one grid.
const MaxGridSteps = 10000

// CouponGrid returns steps evenly spaced coupons spanning b.
func CouponGrid(b CouponBounds, steps int) ([]float64, error) {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Max, 0) || b.Min < 0 || b.Max < b.Min {
		return nil, wrap(ErrInvalidParameters, "coupon bounds [%g, %g]", b.Min, b.Max)
	}
	if steps < 1 {
		return nil, wrap(ErrInvalidParameters, "coupon grid needs at least one step, got %d", steps)
	}
	if steps > MaxGridSteps {
		return nil, wrap(ErrInvalidParameters, "coupon grid of %d steps exceeds %d", steps, MaxGridSteps)
	}
	if steps == 1 || b.Min == b.Max {
		return []float64{b.Min}, nil
	}
	return floats.Span(make([]float64, steps), b.Min, b.Max), nil
}

// SweepCoupons lazily values template at each coupon. The sequence can be
// ranged over any number of times and stops early when the consumer breaks
// or ctx is done, in which case the last point carries ctx.Err().
// Per-point failures are yielded, never dropped.
func (v Valuator) SweepCoupons(ctx context.Context, template Params, coupons []float64) iter.Seq[SweepPoint] {
	return func(yield func(SweepPoint) bool) {
		for _, c := range coupons {
			if err := ctx.Err(); err != nil {
				yield(SweepPoint{Coupon: c, Err: err})
				return
			}
			if !yield(v.evaluate(ctx, template, c)) {
				return
			}
		}
	}
}

// EvaluateCoupons values template at every coupon on up to v.Workers
// goroutines. The result is in grid order. Only cancellation of ctx aborts the
// batch; valuation failures are recorded on their points.
func (v Valuator) EvaluateCoupons(ctx context.Context, template Params, coupons []float64) ([]SweepPoint, error) {
	points := make([]SweepPoint, len(coupons))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers())
	for i, c := range coupons {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points[i] = v.evaluate(gctx, template, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return points, fmt.Errorf("coupon sweep interrupted: %w", err)
	}
	return points, nil
}

// OptimizeCoupon finds the coupon in b that maximises firm value. It values
// the steps-point grid, then refines around the best grid point with
// Nelder-Mead restricted to the neighbouring grid cells.
func (v Valuator) OptimizeCoupon(ctx context.Context, template Params, b CouponBounds, steps int) (*CouponOptimum, error) {
	grid, err := CouponGrid(b, steps)
	if err != nil {
		return nil, err
	}
	points, err := v.EvaluateCoupons(ctx, template, grid)
	if err != nil {
		return nil, err
	}

	// 1. Best grid point
	best := -1
	for i, pt := range points {
		if pt.Err != nil {
			continue
		}
		if best < 0 || pt.Claims.FirmValue > points[best].Claims.FirmValue {
			best = i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("no coupon in [%g, %g] could be valued: %w", b.Min, b.Max, points[0].Err)
	}

	opt := &CouponOptimum{
		Coupon: points[best].Coupon,
		Claims: points[best].Claims,
		Curve:  points,
	}
	if len(grid) < 3 {
		return opt, nil
	}

	// 2. Refine inside the neighbouring cells
	lo := grid[max(best-1, 0)]
	hi := grid[min(best+1, len(grid)-1)]
	clamp := func(c float64) float64 { return math.Min(math.Max(c, lo), hi) }

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			c, err := v.ValueClaims(ctx, template.WithCoupon(clamp(x[0])))
			if err != nil {
				return math.Inf(1)
			}
			return -c.FirmValue
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: 200,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-12,
			Iterations: 20,
		},
	}
	method := &optimize.NelderMead{SimplexSize: (hi - lo) / 4}

	result, err := optimize.Minimize(problem, []float64{opt.Coupon}, settings, method)
	if err != nil {
		v.logger().Debugw("coupon refinement failed, keeping grid optimum", "error", err)
		return opt, nil
	}

	refined := clamp(result.X[0])
	claims, err := v.ValueClaims(ctx, template.WithCoupon(refined))
	if err == nil && claims.FirmValue > opt.Claims.FirmValue {
		opt.Coupon = refined
		opt.Claims = claims
		opt.Refined = true
	}
	return opt, nil
}

func (v Valuator) evaluate(ctx context.Context, template Params, coupon float64) SweepPoint {
	claims, err := v.ValueClaims(ctx, template.WithCoupon(coupon))
	if err != nil {
		v.logger().Warnw("coupon valuation failed", "coupon", coupon, "error", err)
		return SweepPoint{Coupon: coupon, Err: err}
	}
	return SweepPoint{Coupon: coupon, Claims: claims}
}
