package valuation

import "math"

// Pricer values perpetual claims on X that stop when X first falls to a
// boundary X_B below X₀. It caches the characteristic roots and the unlevered
// value for one Params and is meant to live for a single valuation call.
// The zero boundary means default never happens.
type Pricer struct {
	params    Params
	negRoot   float64
	posRoot   float64
	unlevered float64
	boundary  float64
}

// NewPricer builds the computation context for p.
func NewPricer(p Params) (Pricer, error) {
	if p.DiscountRate <= p.Drift {
		return Pricer{}, wrap(ErrNonConvergent, "r=%g, μ=%g", p.DiscountRate, p.Drift)
	}
	if !(p.Volatility > 0) || !(p.AssetLevel > 0) {
		return Pricer{}, wrap(ErrInvalidParameters, "σ=%g, X₀=%g", p.Volatility, p.AssetLevel)
	}
	if 0.5*p.Volatility*p.Volatility == 0 {
		return Pricer{}, wrap(ErrInvalidParameters, "σ=%g underflows σ²/2", p.Volatility)
	}

	neg, pos := CharacteristicRoots(p.Drift, p.Volatility, p.DiscountRate)
	if math.IsNaN(neg) || math.IsNaN(pos) || math.IsInf(neg, 0) {
		return Pricer{}, wrap(ErrInvalidParameters, "degenerate roots for μ=%g, σ=%g, r=%g", p.Drift, p.Volatility, p.DiscountRate)
	}
	return Pricer{
		params:    p,
		negRoot:   neg,
		posRoot:   pos,
		unlevered: p.AssetLevel / (p.DiscountRate - p.Drift),
	}, nil
}

// CharacteristicRoots returns the two roots of
//
//	½σ²β(β−1) + μβ − r = 0
//
// with neg < 0 < 1 < pos whenever r > 0.
func CharacteristicRoots(drift, volatility, rate float64) (neg, pos float64) {
	a := 0.5 * volatility * volatility
	b := drift - a
	c := -rate

	// q = −½(b + sign(b)·√Δ) avoids cancellation; roots are q/a and c/q.
	sq := math.Sqrt(b*b - 4*a*c)
	q := -0.5 * (b + math.Copysign(sq, b))
	r1, r2 := q/a, c/q
	if r1 < r2 {
		return r1, r2
	}
	return r2, r1
}

// Roots returns the cached characteristic roots.
func (pr Pricer) Roots() (neg, pos float64) { return pr.negRoot, pr.posRoot }

// Gamma is the decay exponent γ = −β₋ > 0, so that the price of a unit paid at
// default is (X_B/X₀)^γ. γ is the magnitude of the negative root; it is not
// itself a root of ½σ²γ(γ−1) + μγ − r = 0. The positive root would price a
// claim on a boundary below X₀ above one.
func (pr Pricer) Gamma() float64 { return -pr.negRoot }

// Params returns the parameter set the pricer was built for.
func (pr Pricer) Params() Params { return pr.params }

// Boundary returns the boundary the pricer is bound to.
func (pr Pricer) Boundary() float64 { return pr.boundary }

// WithBoundary returns a copy bound to the candidate boundary xb.
func (pr Pricer) WithBoundary(xb float64) Pricer {
	pr.boundary = xb
	return pr
}

// HittingPrice is the Arrow-Debreu price (X₀/X_B)^β₋ of one unit paid the
// first time X reaches the boundary.
func (pr Pricer) HittingPrice() float64 {
	return hittingPrice(pr.params.AssetLevel, pr.boundary, pr.negRoot)
}

// PresentValueOfPerpetuity values a flow of level per unit time, discounted
// at rate, that stops at default.
func (pr Pricer) PresentValueOfPerpetuity(rate, level float64) (float64, error) {
	if rate <= pr.params.Drift {
		return 0, wrap(ErrNonConvergent, "rate=%g, μ=%g", rate, pr.params.Drift)
	}

	price := pr.HittingPrice()
	if rate != pr.params.DiscountRate {
		neg, _ := CharacteristicRoots(pr.params.Drift, pr.params.Volatility, rate)
		price = hittingPrice(pr.params.AssetLevel, pr.boundary, neg)
	}
	return level / rate * (1 - price), nil
}

// DiscountedHittingValue is the present value of payoff received at default.
func (pr Pricer) DiscountedHittingValue(payoff float64) float64 {
	return payoff * pr.HittingPrice()
}

// UnleveredAssetValue is X₀/(r−μ), the value of the cash flows with no debt.
func (pr Pricer) UnleveredAssetValue() float64 { return pr.unlevered }

// UnleveredValueAt is x/(r−μ).
func (pr Pricer) UnleveredValueAt(x float64) float64 {
	return x / (pr.params.DiscountRate - pr.params.Drift)
}

func hittingPrice(x0, xb, neg float64) float64 {
	switch {
	case xb <= 0:
		return 0
	case xb >= x0:
		return 1
	}
	return math.Pow(x0/xb, neg)
}
