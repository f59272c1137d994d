// Package scenario loads named parameter sets from YAML, Hjson or JSON files.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"structural_valuation/pkg/core/utils"
	"structural_valuation/pkg/core/valuation"
)

// Default sweep used when a scenario does not name one.
const (
	defaultSweepSteps    = 41
	defaultSweepMaxRatio = 2.0 // coupon ceiling as a multiple of X₀
)

// Scenario is a named parameter set with an optional coupon sweep.
type Scenario struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Params      valuation.Params `json:"params" yaml:"params"`
	Sweep       *Sweep           `json:"sweep,omitempty" yaml:"sweep,omitempty"`
}

// Sweep is the coupon grid searched by the optimizer.
type Sweep struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Steps int     `json:"steps" yaml:"steps"`
}

// Load reads a scenario file. The format follows the extension: .yaml/.yml,
// .hjson, anything else is treated as (possibly hand-mangled) JSON.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	s, err := Parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes data in the format named by ext.
func Parse(data []byte, ext string) (*Scenario, error) {
	var s Scenario
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("invalid YAML scenario: %w", err)
		}
	case ".hjson":
		converted, err := utils.ParseHJSON(string(data))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(converted), &s); err != nil {
			return nil, fmt.Errorf("invalid Hjson scenario: %w", err)
		}
	default:
		if _, err := utils.SmartParse(string(data), &s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Validated returns the scenario's Params with defaults applied.
func (s *Scenario) Validated() (valuation.Params, error) {
	return valuation.NewParams(s.Params)
}

// Bounds returns the coupon interval and grid size to sweep. Without an
// explicit sweep the grid spans [0, 2·X₀].
func (s *Scenario) Bounds() (valuation.CouponBounds, int) {
	if s.Sweep == nil {
		return valuation.CouponBounds{Min: 0, Max: defaultSweepMaxRatio * s.Params.AssetLevel}, defaultSweepSteps
	}
	steps := s.Sweep.Steps
	if steps == 0 {
		steps = defaultSweepSteps
	}
	return valuation.CouponBounds{Min: s.Sweep.Min, Max: s.Sweep.Max}, steps
}
