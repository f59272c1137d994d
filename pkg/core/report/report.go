// Package report renders valuation results as Markdown tables and HTML.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"structural_valuation/pkg/core/valuation"
)

// Decimal places per quantity kind.
const (
	valuePlaces = 4
	ratePlaces  = 6
)

var renderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// Document is everything one report shows.
type Document struct {
	Title    string
	Subtitle string
	RunID    string
	Params   valuation.Params
	Claims   *valuation.Claims
	Optimum  *valuation.CouponOptimum
	Curve    []valuation.CurvePoint
}

// Markdown renders doc as a Markdown document.
func Markdown(doc Document) string {
	var sb strings.Builder

	title := doc.Title
	if title == "" {
		title = "Capital structure valuation"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if doc.Subtitle != "" {
		fmt.Fprintf(&sb, "%s\n\n", doc.Subtitle)
	}
	if doc.RunID != "" {
		fmt.Fprintf(&sb, "Run `%s`\n\n", doc.RunID)
	}

	sb.WriteString(ParamsTable(doc.Params))

	if doc.Claims != nil {
		sb.WriteString("\n## Claims\n\n")
		sb.WriteString(ClaimsTable(doc.Claims))
	}
	if doc.Optimum != nil {
		sb.WriteString("\n## Optimal coupon\n\n")
		fmt.Fprintf(&sb, "Firm value peaks at coupon **%s** (%s).\n\n",
			Round(doc.Optimum.Coupon, valuePlaces), Round(doc.Optimum.Claims.FirmValue, valuePlaces))
		sb.WriteString(ClaimsTable(doc.Optimum.Claims))
	}
	if len(doc.Curve) > 0 {
		sb.WriteString("\n## Coupon sweep\n\n")
		sb.WriteString(CurveTable(doc.Curve))
	}
	return sb.String()
}

// HTML renders doc's Markdown to HTML.
func HTML(doc Document) (string, error) {
	return ToHTML(Markdown(doc))
}

// ToHTML converts Markdown with GFM tables to HTML.
func ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// ParamsTable lists the inputs.
func ParamsTable(p valuation.Params) string {
	rule := p.Bargaining
	if rule == "" {
		rule = valuation.BargainSurplus
	}

	var sb strings.Builder
	sb.WriteString("| Parameter | Value |\n|---|---:|\n")
	rows := []struct {
		name  string
		value string
	}{
		{"Cash flow X₀", Round(p.AssetLevel, valuePlaces)},
		{"Drift μ", Round(p.Drift, ratePlaces)},
		{"Volatility σ", Round(p.Volatility, ratePlaces)},
		{"Discount rate r", Round(p.DiscountRate, ratePlaces)},
		{"Tax rate τ", Round(p.TaxRate, ratePlaces)},
		{"Coupon C", Round(p.Coupon, valuePlaces)},
		{"Bankruptcy cost α", Round(p.BankruptcyCost, ratePlaces)},
		{"Renegotiation share η", Round(p.RenegotiationShare, ratePlaces)},
		{"Renegotiation failure q", Round(p.RenegotiationFailure, ratePlaces)},
		{"Bargaining", string(rule)},
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | %s |\n", r.name, r.value)
	}
	return sb.String()
}

// ClaimsTable lists one valuation.
func ClaimsTable(c *valuation.Claims) string {
	var sb strings.Builder
	sb.WriteString("| Claim | Value |\n|---|---:|\n")
	rows := []struct {
		name  string
		value string
	}{
		{"Firm value", Round(c.FirmValue, valuePlaces)},
		{"Debt value", Round(c.DebtValue, valuePlaces)},
		{"Equity value", Round(c.EquityValue, valuePlaces)},
		{"Unlevered value", Round(c.UnleveredValue, valuePlaces)},
		{"Tax benefit", Round(c.TaxBenefit, valuePlaces)},
		{"Bankruptcy cost", Round(c.BankruptcyCost, valuePlaces)},
		{"Default boundary", Round(c.DefaultBoundary, valuePlaces)},
		{"Default price", Round(c.DefaultPrice, ratePlaces)},
		{"Resolution", string(c.Resolution)},
		{"Debt recovery", Round(c.DebtRecovery, valuePlaces)},
		{"Equity recovery", Round(c.EquityRecovery, valuePlaces)},
		{"Debt yield", Percent(c.DebtYield)},
		{"Credit spread", Percent(c.CreditSpread)},
		{"Leverage", Percent(c.Leverage)},
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | %s |\n", r.name, r.value)
	}
	if c.Fallback != valuation.CornerNone {
		fmt.Fprintf(&sb, "\n> No interior default boundary: %s.\n", c.Fallback)
	}
	return sb.String()
}

// CurveTable lists a coupon sweep, one row per coupon.
func CurveTable(curve []valuation.CurvePoint) string {
	var sb strings.Builder
	sb.WriteString("| Coupon | Firm | Debt | Equity | X_B | Mode | Spread |\n")
	sb.WriteString("|---:|---:|---:|---:|---:|---|---:|\n")
	for _, pt := range curve {
		if pt.Claims == nil {
			fmt.Fprintf(&sb, "| %s | – | – | – | – | error: %s | – |\n",
				Round(pt.Coupon, valuePlaces), escapeCell(pt.Error))
			continue
		}
		c := pt.Claims
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			Round(pt.Coupon, valuePlaces),
			Round(c.FirmValue, valuePlaces),
			Round(c.DebtValue, valuePlaces),
			Round(c.EquityValue, valuePlaces),
			Round(c.DefaultBoundary, valuePlaces),
			c.Resolution,
			Percent(c.CreditSpread))
	}
	return sb.String()
}

// Round formats v to places decimals. Non-finite values print as "n/a";
// decimal cannot represent them.
func Round(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Percent formats a rate as a percentage with two decimals.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
