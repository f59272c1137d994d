package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"structural_valuation/pkg/core/report"
	"structural_valuation/pkg/core/store"
	"structural_valuation/pkg/core/utils"
	"structural_valuation/pkg/core/valuation"
)

// maxBodyBytes caps request bodies; a parameter set is a few hundred bytes.
const maxBodyBytes = 1 << 20

// Default coupon grid when a sweep request names no bounds.
const defaultSweepSteps = 41

// RunStore persists valuation runs.
type RunStore interface {
	Save(ctx context.Context, run *store.ValuationRun) error
	Load(ctx context.Context, id uuid.UUID) (*store.ValuationRun, error)
	FindByFingerprint(ctx context.Context, fp uuid.UUID) (*store.ValuationRun, error)
}

// Handler holds dependencies for the claims endpoints
type Handler struct {
	Valuator valuation.Valuator
	Runs     RunStore // optional
	Log      *zap.SugaredLogger
}

// NewHandler creates a new claims handler
func NewHandler(v valuation.Valuator, runs RunStore, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{Valuator: v, Runs: runs, Log: log}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/claims/value", withCORS(h.HandleValue))
	mux.HandleFunc("POST /api/claims/sweep", withCORS(h.HandleSweep))
	mux.HandleFunc("GET /api/claims/runs/{id}", withCORS(h.HandleRun))
	mux.HandleFunc("GET /api/claims/report", withCORS(h.HandleReport))
	mux.HandleFunc("OPTIONS /api/claims/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

type ValueRequest struct {
	Scenario string           `json:"scenario,omitempty"`
	Params   valuation.Params `json:"params"`
}

type ValueResponse struct {
	RunID  string            `json:"run_id,omitempty"`
	Cached bool              `json:"cached"`
	Claims *valuation.Claims `json:"claims"`
}

type SweepRequest struct {
	Scenario string                  `json:"scenario,omitempty"`
	Params   valuation.Params        `json:"params"`
	Bounds   *valuation.CouponBounds `json:"bounds,omitempty"`
	Steps    int                     `json:"steps,omitempty"`
}

type SweepResponse struct {
	RunID   string                   `json:"run_id,omitempty"`
	Cached  bool                     `json:"cached"`
	Optimum *valuation.CouponOptimum `json:"optimum"`
	Curve   []valuation.CurvePoint   `json:"curve"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleValue prices one parameter set.
func (h *Handler) HandleValue(w http.ResponseWriter, r *http.Request) {
	var req ValueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	params, err := valuation.NewParams(req.Params)
	if err != nil {
		writeError(w, err)
		return
	}

	fp, _ := store.ValueFingerprint(params)

	// 1. Reuse a stored run with identical inputs
	if run := h.lookup(r.Context(), fp); run != nil && run.Claims != nil {
		writeJSON(w, http.StatusOK, ValueResponse{RunID: run.ID.String(), Cached: true, Claims: run.Claims})
		return
	}

	// 2. Price
	claims, err := h.Valuator.ValueClaims(r.Context(), params)
	if err != nil {
		h.Log.Warnw("valuation failed", "scenario", req.Scenario, "error", err)
		writeError(w, err)
		return
	}

	// 3. Persist
	run := &store.ValuationRun{Scenario: req.Scenario, Fingerprint: fp, Params: params, Claims: claims}
	writeJSON(w, http.StatusOK, ValueResponse{RunID: h.save(r.Context(), run), Claims: claims})
}

// HandleSweep values a coupon grid and returns the firm-value maximising coupon
// together with the full curve.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	params, err := valuation.NewParams(req.Params)
	if err != nil {
		writeError(w, err)
		return
	}

	bounds := valuation.CouponBounds{Min: 0, Max: 2 * params.AssetLevel}
	if req.Bounds != nil {
		bounds = *req.Bounds
	}
	steps := req.Steps
	if steps == 0 {
		steps = defaultSweepSteps
	}

	fp, _ := store.SweepFingerprint(params, bounds, steps)

	if run := h.lookup(r.Context(), fp); run != nil && run.Optimum != nil {
		writeJSON(w, http.StatusOK, SweepResponse{RunID: run.ID.String(), Cached: true, Optimum: run.Optimum, Curve: run.Curve})
		return
	}

	opt, err := h.Valuator.OptimizeCoupon(r.Context(), params, bounds, steps)
	if err != nil {
		h.Log.Warnw("coupon sweep failed", "scenario", req.Scenario, "error", err)
		writeError(w, err)
		return
	}

	curve := make([]valuation.CurvePoint, len(opt.Curve))
	for i, pt := range opt.Curve {
		curve[i] = pt.Record()
	}

	run := &store.ValuationRun{
		Scenario:    req.Scenario,
		Fingerprint: fp,
		Params:      params.WithCoupon(opt.Coupon),
		Claims:      opt.Claims,
		Optimum:     opt,
		Curve:       curve,
	}
	writeJSON(w, http.StatusOK, SweepResponse{RunID: h.save(r.Context(), run), Optimum: opt, Curve: curve})
}

// HandleRun returns a stored run as JSON.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.loadRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleReport renders a stored run as an HTML report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	run, err := h.loadRun(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	html, err := report.HTML(report.Document{
		Title:   run.Scenario,
		RunID:   run.ID.String(),
		Params:  run.Params,
		Claims:  run.Claims,
		Optimum: run.Optimum,
		Curve:   run.Curve,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (h *Handler) lookup(ctx context.Context, fp uuid.UUID) *store.ValuationRun {
	if h.Runs == nil {
		return nil
	}
	run, err := h.Runs.FindByFingerprint(ctx, fp)
	if err != nil {
		h.Log.Warnw("run lookup failed", "fingerprint", fp, "error", err)
		return nil
	}
	return run
}

// save persists run and returns its ID, or "" when nothing was stored.
// Storage failures never fail the request.
func (h *Handler) save(ctx context.Context, run *store.ValuationRun) string {
	if h.Runs == nil {
		return ""
	}
	if err := h.Runs.Save(ctx, run); err != nil {
		h.Log.Warnw("failed to persist run", "scenario", run.Scenario, "error", err)
		return ""
	}
	return run.ID.String()
}

func (h *Handler) loadRun(ctx context.Context, raw string) (*store.ValuationRun, error) {
	if h.Runs == nil {
		return nil, store.ErrRunNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &requestError{fmt.Errorf("invalid run id %q", raw)}
	}
	return h.Runs.Load(ctx, id)
}

// requestError marks a malformed request.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// decodeBody accepts strict JSON and, for hand-written requests, repairable
// or Hjson input.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &requestError{fmt.Errorf("failed to read body: %w", err)}
	}
	if _, err := utils.SmartParse(string(data), v); err != nil {
		return &requestError{errors.New("invalid request body")}
	}
	return nil
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine and store errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Code: "INTERNAL", Message: err.Error()}

	var reqErr *requestError
	var valErr *valuation.Error
	switch {
	case errors.As(err, &reqErr):
		status, resp.Code = http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, store.ErrRunNotFound):
		status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, resp.Code = http.StatusServiceUnavailable, "CANCELLED"
	case errors.As(err, &valErr):
		resp.Code = valErr.Code
		switch {
		case errors.Is(err, valuation.ErrInvalidParameters):
			status = http.StatusBadRequest
		case errors.Is(err, valuation.ErrNonConvergent), errors.Is(err, valuation.ErrNoInteriorSolution):
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, resp)
}
