// Package valuation prices the claims of a levered firm whose after-tax
// operating cash flow X follows a geometric Brownian motion
//
//	dX/X = μ dt + σ dW
//
// Equityholders service a perpetual coupon C until X first hits an
// endogenous default boundary X_B. At X_B the firm is either liquidated,
// losing a fraction α of its going-concern value, or renegotiated out of
// court. Everything in this package is a pure function of Params.
package valuation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BargainingRule selects how the going-concern value is split when debt is
// renegotiated.
type BargainingRule string

const (
	// BargainSurplus gives equity its bargaining power times the bankruptcy
	// cost saved by not liquidating; debt keeps the rest.
	BargainSurplus BargainingRule = "surplus"
	// BargainAsset gives debt RenegotiationShare of the going-concern value
	// and equity the remainder.
	BargainAsset BargainingRule = "asset"
)

// Params describes the economic environment of one valuation.
//
// Symbols: AssetLevel X₀, Drift μ, Volatility σ, DiscountRate r, TaxRate τ,
// Coupon C, BankruptcyCost α.
type Params struct {
	AssetLevel     float64 `json:"asset_level" yaml:"asset_level" validate:"gt=0"`
	Drift          float64 `json:"drift" yaml:"drift" validate:"gte=0"`
	Volatility     float64 `json:"volatility" yaml:"volatility" validate:"gt=0"`
	DiscountRate   float64 `json:"discount_rate" yaml:"discount_rate" validate:"gt=0"`
	TaxRate        float64 `json:"tax_rate" yaml:"tax_rate" validate:"gte=0,lt=1"`
	Coupon         float64 `json:"coupon" yaml:"coupon" validate:"gte=0"`
	BankruptcyCost float64 `json:"bankruptcy_cost" yaml:"bankruptcy_cost" validate:"gte=0,lte=1"`

	// RenegotiationShare is equity's bargaining power under BargainSurplus and
	// debt's share of the going-concern value under BargainAsset.
	RenegotiationShare float64 `json:"renegotiation_share" yaml:"renegotiation_share" validate:"gte=0,lte=1"`

	// RenegotiationFailure is the probability that an out-of-court deal falls
	// through and the firm is liquidated anyway.
	RenegotiationFailure float64 `json:"renegotiation_failure,omitempty" yaml:"renegotiation_failure,omitempty" validate:"gte=0,lte=1"`

	Bargaining BargainingRule `json:"bargaining,omitempty" yaml:"bargaining,omitempty" validate:"omitempty,oneof=surplus asset"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewParams validates p and returns it with defaults applied.
func NewParams(p Params) (Params, error) {
	if p.Bargaining == "" {
		p.Bargaining = BargainSurplus
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the ranges of every field and that r > μ.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"AssetLevel":           p.AssetLevel,
		"Drift":                p.Drift,
		"Volatility":           p.Volatility,
		"DiscountRate":         p.DiscountRate,
		"TaxRate":              p.TaxRate,
		"Coupon":               p.Coupon,
		"BankruptcyCost":       p.BankruptcyCost,
		"RenegotiationShare":   p.RenegotiationShare,
		"RenegotiationFailure": p.RenegotiationFailure,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return wrap(ErrInvalidParameters, "%s must be finite, got %v", name, v)
		}
	}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s%s", fe.Field(), fe.Tag(), paramSuffix(fe.Param())))
			}
			return wrap(ErrInvalidParameters, "%s", strings.Join(msgs, "; "))
		}
		return wrap(ErrInvalidParameters, "%v", err)
	}

	if p.DiscountRate <= p.Drift {
		return wrap(ErrNonConvergent, "r=%g, μ=%g", p.DiscountRate, p.Drift)
	}
	return nil
}

// WithCoupon returns a copy of p paying coupon c.
func (p Params) WithCoupon(c float64) Params {
	p.Coupon = c
	return p
}

// rule returns the bargaining rule, treating the zero value as BargainSurplus.
func (p Params) rule() BargainingRule {
	if p.Bargaining == BargainAsset {
		return BargainAsset
	}
	return BargainSurplus
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}
