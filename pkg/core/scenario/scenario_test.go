package scenario

import (
	"errors"
	"testing"

	"structural_valuation/pkg/core/valuation"
)

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		file     string
		name     string
		rule     valuation.BargainingRule
		hasSweep bool
	}{
		{"testdata/base.yaml", "base", valuation.BargainSurplus, true},
		{"testdata/asset_rule.hjson", "asset_rule", valuation.BargainAsset, false},
		{"testdata/sloppy.json", "sloppy", valuation.BargainSurplus, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			s, err := Load(tt.file)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Name != tt.name {
				t.Errorf("Expected name %q, got %q", tt.name, s.Name)
			}

			p, err := s.Validated()
			if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if p.Bargaining != tt.rule {
				t.Errorf("Expected rule %s, got %s", tt.rule, p.Bargaining)
			}
			if p.AssetLevel != 100 || p.Coupon != 6 || p.RenegotiationShare != 0.5 {
				t.Errorf("unexpected params %+v", p)
			}
			if (s.Sweep != nil) != tt.hasSweep {
				t.Errorf("Expected sweep present = %v, got %+v", tt.hasSweep, s.Sweep)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("params: [unclosed"), ".yaml"); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidated_RejectsBadParams(t *testing.T) {
	s, err := Parse([]byte(`{"params": {"asset_level": 100, "drift": 0.1, "volatility": 0.2, "discount_rate": 0.05}}`), ".json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Validated(); !errors.Is(err, valuation.ErrNonConvergent) {
		t.Errorf("Expected ErrNonConvergent for r < μ, got %v", err)
	}
}

func TestBounds(t *testing.T) {
	s, _ := Load("testdata/base.yaml")
	b, steps := s.Bounds()
	if b.Min != 0 || b.Max != 150 || steps != 31 {
		t.Errorf("Expected [0, 150]/31, got %+v/%d", b, steps)
	}

	s.Sweep = nil
	b, steps = s.Bounds()
	if b.Max != 200 || steps != defaultSweepSteps {
		t.Errorf("Expected default [0, 200]/%d, got %+v/%d", defaultSweepSteps, b, steps)
	}
}
