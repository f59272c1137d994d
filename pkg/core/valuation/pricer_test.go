package valuation

import (
	"errors"
	"math"
	"testing"
)

func TestCharacteristicRoots_SolveQuadratic(t *testing.T) {
	for _, mu := range []float64{0, 0.01, 0.02, 0.05} {
		for _, sigma := range []float64{0.05, 0.1, 0.25, 0.6} {
			for _, r := range []float64{0.04, 0.06, 0.08, 0.15} {
				if r <= mu {
					continue
				}
				neg, pos := CharacteristicRoots(mu, sigma, r)

				for _, beta := range []float64{neg, pos} {
					residual := 0.5*sigma*sigma*beta*(beta-1) + mu*beta - r
					if math.Abs(residual) > 1e-10 {
						t.Errorf("μ=%g σ=%g r=%g: root %g leaves residual %g", mu, sigma, r, beta, residual)
					}
				}
				if neg >= 0 {
					t.Errorf("μ=%g σ=%g r=%g: expected negative root, got %g", mu, sigma, r, neg)
				}
				if pos <= 1 {
					t.Errorf("μ=%g σ=%g r=%g: expected root above one, got %g", mu, sigma, r, pos)
				}
			}
		}
	}
}

func TestCharacteristicRoots_ReferenceValues(t *testing.T) {
	neg, pos := CharacteristicRoots(0.02, 0.25, 0.08)

	if math.Abs(neg-(-1.4300931650062987)) > 1e-12 {
		t.Errorf("Expected β₋ -1.4300931650, got %.12f", neg)
	}
	if math.Abs(pos-1.7900931650062986) > 1e-12 {
		t.Errorf("Expected β₊ 1.7900931650, got %.12f", pos)
	}
}

func TestNewPricer_RejectsDivergentRate(t *testing.T) {
	p := baseParams()
	p.DiscountRate = 0.02

	if _, err := NewPricer(p); !errors.Is(err, ErrNonConvergent) {
		t.Errorf("Expected ErrNonConvergent, got %v", err)
	}
}

func TestNewPricer_RejectsUnderflowingVolatility(t *testing.T) {
	p := baseParams()
	p.Drift = 0
	p.Volatility = 1e-200

	if _, err := NewPricer(p); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("Expected ErrInvalidParameters, got %v", err)
	}
}

func TestPricer_GammaIsNegativeRootMagnitude(t *testing.T) {
	pr, err := NewPricer(baseParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	neg, _ := pr.Roots()
	if pr.Gamma() != -neg || pr.Gamma() <= 0 {
		t.Errorf("Expected γ = −β₋ > 0, got γ=%g β₋=%g", pr.Gamma(), neg)
	}
}

func TestPricer_HittingPriceLimits(t *testing.T) {
	pr, err := NewPricer(baseParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := pr.WithBoundary(0).HittingPrice(); got != 0 {
		t.Errorf("Expected zero hitting price for X_B = 0, got %f", got)
	}
	if got := pr.WithBoundary(100).HittingPrice(); got != 1 {
		t.Errorf("Expected unit hitting price at X_B = X₀, got %f", got)
	}

	// (X_B/X₀)^γ with γ = −β₋
	at := pr.WithBoundary(50)
	want := math.Pow(0.5, pr.Gamma())
	if math.Abs(at.HittingPrice()-want) > 1e-14 {
		t.Errorf("Expected hitting price %f, got %f", want, at.HittingPrice())
	}

	// Closer boundaries are more likely to be hit.
	if pr.WithBoundary(80).HittingPrice() <= pr.WithBoundary(20).HittingPrice() {
		t.Error("hitting price should increase with the boundary")
	}
}

func TestPricer_PresentValueOfPerpetuity(t *testing.T) {
	pr, _ := NewPricer(baseParams())

	// No default: plain perpetuity C/r.
	pv, err := pr.PresentValueOfPerpetuity(0.08, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(pv-75) > 1e-12 {
		t.Errorf("Expected 75, got %f", pv)
	}

	at := pr.WithBoundary(25)
	pv, _ = at.PresentValueOfPerpetuity(0.08, 6)
	want := 75 * (1 - at.HittingPrice())
	if math.Abs(pv-want) > 1e-12 {
		t.Errorf("Expected %f, got %f", want, pv)
	}

	// A different rate uses its own root.
	pv, _ = at.PresentValueOfPerpetuity(0.1, 6)
	neg, _ := CharacteristicRoots(0.02, 0.25, 0.1)
	want = 60 * (1 - math.Pow(4, neg))
	if math.Abs(pv-want) > 1e-12 {
		t.Errorf("Expected %f at r=0.1, got %f", want, pv)
	}

	if _, err := at.PresentValueOfPerpetuity(0.02, 6); !errors.Is(err, ErrNonConvergent) {
		t.Errorf("Expected ErrNonConvergent for rate ≤ μ, got %v", err)
	}
}

func TestPricer_UnleveredValue(t *testing.T) {
	pr, _ := NewPricer(baseParams())

	if math.Abs(pr.UnleveredAssetValue()-100/0.06) > 1e-10 {
		t.Errorf("Expected %f, got %f", 100/0.06, pr.UnleveredAssetValue())
	}
	if math.Abs(pr.UnleveredValueAt(3)-50) > 1e-10 {
		t.Errorf("Expected 50, got %f", pr.UnleveredValueAt(3))
	}
	if got := pr.DiscountedHittingValue(10); got != 0 {
		t.Errorf("Expected nothing paid when default never happens, got %f", got)
	}
}
