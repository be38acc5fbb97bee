package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/facility-valuation/internal/leaseback"
	"github.com/iwvelando/facility-valuation/internal/montecarlo"
	"github.com/iwvelando/facility-valuation/internal/scenario"
	"github.com/iwvelando/facility-valuation/internal/sensitivity"
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/fieldpath"
	"github.com/iwvelando/facility-valuation/pkg/output"
	"github.com/iwvelando/facility-valuation/pkg/validation"
)

const shutdownTimeout = 10 * time.Second

type handler struct {
	logger    *zap.Logger
	cfg       Config
	base      settings.Settings
	engine    *valuation.Engine
	runner    *sensitivity.Runner
	simulator *montecarlo.Simulator
}

// NewHandler constructs the HTTP handler that serves the valuation API.
// Scenario documents overlay their settings on base.
func NewHandler(logger *zap.Logger, cfg Config, base settings.Settings) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.normalize()

	engine := valuation.NewEngine(logger)
	h := &handler{
		logger:    logger,
		cfg:       cfg,
		base:      base,
		engine:    engine,
		runner:    sensitivity.NewRunner(logger, engine),
		simulator: montecarlo.NewSimulator(logger, engine),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)

		r.Group(func(r chi.Router) {
			r.Use(h.limitBody)
			r.Post("/valuation", h.handleValuation)
			r.Post("/sensitivity", h.handleSensitivity)
			r.Post("/sensitivity/curve", h.handleSensitivityCurve)
			r.Post("/montecarlo", h.handleMonteCarlo)
			r.Post("/leaseback", h.handleLeaseback)
			r.Post("/settings/validate", h.handleSettingsValidate)
		})
	})

	return r
}

// ListenAndServe serves handler on cfg.Address until ctx is cancelled, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, cfg Config, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.normalize()

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("valuation API listening",
		zap.String("op", "server.ListenAndServe"),
		zap.String("address", cfg.Address),
		zap.String("version", cfg.Version),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrapf(err, "server: listen on %s", cfg.Address)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down valuation API", zap.String("op", "server.ListenAndServe"))
		return srv.Shutdown(shutdownCtx)
	}
}

type valuationResponse struct {
	Result   valuation.ValuationResult `json:"result"`
	Warnings []string                  `json:"warnings,omitempty"`
	CSV      string                    `json:"csv"`
	Duration string                    `json:"duration"`
}

type sensitivityResponse struct {
	sensitivity.Report
	Warnings []string `json:"warnings,omitempty"`
	Duration string   `json:"duration"`
}

type curveResponse struct {
	Parameter string              `json:"parameter"`
	Points    []sensitivity.Point `json:"points"`
}

type monteCarloResponse struct {
	Result   montecarlo.Result `json:"result"`
	Warnings []string          `json:"warnings,omitempty"`
}

func (h *handler) handleValuation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValuation"
	start := time.Now()

	f, sc, ok := h.decodeScenario(w, r, op)
	if !ok {
		return
	}

	result, err := h.engine.ValueScenario(sc)
	if err != nil {
		h.respondErr(w, r, err, op)
		return
	}

	var csv bytes.Buffer
	if err := output.CsvValuation(&csv, result); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, valuationResponse{
		Result:   result,
		Warnings: f.Warnings(),
		CSV:      csv.String(),
		Duration: time.Since(start).String(),
	})
}

func (h *handler) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSensitivity"
	start := time.Now()

	f, sc, ok := h.decodeScenario(w, r, op)
	if !ok {
		return
	}
	if len(f.Parameters) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "no sensitivity parameters supplied", op)
		return
	}

	report, err := h.runner.Run(r.Context(), sc, f.Parameters, sensitivity.Options{Locked: f.Locked})
	if err != nil {
		h.respondErr(w, r, err, op)
		return
	}
	if report.Cancelled {
		h.logger.Warn("sensitivity run cancelled by client",
			zap.String("op", op),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Int("parameters", len(report.Results)),
		)
	}

	h.writeJSON(w, http.StatusOK, sensitivityResponse{
		Report:   report,
		Warnings: f.Warnings(),
		Duration: time.Since(start).String(),
	})
}

func (h *handler) handleSensitivityCurve(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSensitivityCurve"

	id := strings.TrimSpace(r.URL.Query().Get("parameter"))
	if id == "" {
		h.respondError(w, r, http.StatusBadRequest, "missing parameter query value", op)
		return
	}

	f, sc, ok := h.decodeScenario(w, r, op)
	if !ok {
		return
	}

	points, err := h.runner.Curve(r.Context(), sc, f.Parameters, id)
	if err != nil {
		h.respondErr(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, curveResponse{Parameter: id, Points: points})
}

func (h *handler) handleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleMonteCarlo"

	f, sc, ok := h.decodeScenario(w, r, op)
	if !ok {
		return
	}
	if len(f.Distributions) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "no distributions supplied", op)
		return
	}

	opts := h.monteCarloOptions(f.MonteCarlo)
	if err := validation.ValidateIterations(opts.Iterations); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	// The request context ends when the client goes away, which stops the run.
	result, err := h.simulator.Run(r.Context(), sc, f.Distributions, opts)
	if err != nil {
		h.respondErr(w, r, err, op)
		return
	}
	if result.Cancelled {
		h.logger.Warn("monte carlo run cancelled by client",
			zap.String("op", op),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Int("iterations", result.Iterations),
		)
	}

	h.writeJSON(w, http.StatusOK, monteCarloResponse{Result: result, Warnings: f.Warnings()})
}

func (h *handler) handleLeaseback(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLeaseback"

	f, sc, ok := h.decodeScenario(w, r, op)
	if !ok {
		return
	}

	result, err := leaseback.Analyze(f.LeasebackInput(), sc.Settings.SaleLeaseback)
	if err != nil {
		h.respondErr(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// handleSettingsValidate overlays the posted settings document on the
// defaults and reports every structural problem.
func (h *handler) handleSettingsValidate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSettingsValidate"

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}
	var override map[string]any
	if err := yaml.Unmarshal(body, &override); err != nil {
		h.respondDecodeError(w, r, err, op)
		return
	}

	merged, err := settings.Merge(settings.Default(), override)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, settings.Validate(merged))
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.cfg.Version,
	})
}

func (h *handler) decodeScenario(w http.ResponseWriter, r *http.Request, op string) (scenario.File, valuation.Scenario, bool) {
	body, ok := h.readBody(w, r, op)
	if !ok {
		return scenario.File{}, valuation.Scenario{}, false
	}
	f, err := scenario.Decode(bytes.NewReader(body))
	if err != nil {
		h.respondDecodeError(w, r, err, op)
		return scenario.File{}, valuation.Scenario{}, false
	}
	sc, err := f.Scenario(h.base)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error(), op)
		return scenario.File{}, valuation.Scenario{}, false
	}
	return f, sc, true
}

// readBody reads the whole request so a body over the size limit surfaces as
// a MaxBytesError rather than a decode error.
func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondDecodeError(w, r, err, op)
		return nil, false
	}
	return body, true
}

func (h *handler) monteCarloOptions(req *montecarlo.Options) montecarlo.Options {
	defaults := h.cfg.MonteCarlo
	opts := montecarlo.Options{
		Iterations:       defaults.Iterations,
		Buckets:          defaults.Buckets,
		Seed:             defaults.Seed,
		Workers:          defaults.Workers,
		ProgressInterval: defaults.ProgressInterval,
	}.Overlay(req)
	// Progress callbacks are never taken from a request body.
	opts.Progress = nil
	return opts
}

func (h *handler) respondDecodeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds limit of %d bytes", h.cfg.MaxBodySize), op)
		return
	}
	h.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
}

// respondErr maps input errors from the engines to 422 and anything else to 500.
func (h *handler) respondErr(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := http.StatusInternalServerError
	for _, target := range []error{
		settings.ErrUnknownAssetType,
		valuation.ErrNegativeBeds,
		valuation.ErrZeroDenominator,
		sensitivity.ErrInvalidRange,
		sensitivity.ErrInvalidStep,
		sensitivity.ErrInvalidParameter,
		montecarlo.ErrInvalidDistribution,
		fieldpath.ErrInvalidPath,
		fieldpath.ErrNotNumeric,
		leaseback.ErrZeroDenominator,
	} {
		if errors.Is(err, target) {
			status = http.StatusUnprocessableEntity
			break
		}
	}
	h.respondError(w, r, status, err.Error(), op)
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("valuation request failed",
		zap.String("op", op),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
