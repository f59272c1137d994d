package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"structural_valuation/pkg/core/valuation"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("valuation run not found")

// fingerprintSpace namespaces the SHA-1 UUIDs derived from run inputs.
var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("structural_valuation/runs"))

// ValuationRun is one persisted valuation: the inputs, a single valuation
// and/or an optimised coupon sweep.
type ValuationRun struct {
	ID          uuid.UUID                `json:"id"`
	Scenario    string                   `json:"scenario,omitempty"`
	Fingerprint uuid.UUID                `json:"fingerprint"`
	Params      valuation.Params         `json:"params"`
	Claims      *valuation.Claims        `json:"claims,omitempty"`
	Optimum     *valuation.CouponOptimum `json:"optimum,omitempty"`
	Curve       []valuation.CurvePoint   `json:"curve,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// Fingerprint derives a stable ID from the JSON encoding of key. Identical
// inputs always map to the same fingerprint, so a stored run can be reused
// instead of recomputed.
func Fingerprint(key any) (uuid.UUID, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to fingerprint run inputs: %w", err)
	}
	return uuid.NewSHA1(fingerprintSpace, data), nil
}

// prepare assigns an ID and timestamp to a run that has none.
func (r *ValuationRun) prepare() {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

// ValueFingerprint keys a single valuation of p.
func ValueFingerprint(p valuation.Params) (uuid.UUID, error) {
	return Fingerprint(struct {
		Kind   string           `json:"kind"`
		Params valuation.Params `json:"params"`
	}{"value", p})
}

// SweepFingerprint keys a coupon search over bounds with steps grid points.
func SweepFingerprint(p valuation.Params, bounds valuation.CouponBounds, steps int) (uuid.UUID, error) {
	return Fingerprint(struct {
		Kind   string                 `json:"kind"`
		Params valuation.Params       `json:"params"`
		Bounds valuation.CouponBounds `json:"bounds"`
		Steps  int                    `json:"steps"`
	}{"sweep", p, bounds, steps})
}
