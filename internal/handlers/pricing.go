package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/dto"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/services"
)

// PricingHandler serves the pricing API - DUMB HTTP layer only
type PricingHandler struct {
	engine   *fdmc.Engine
	requests *services.RequestService
	format   models.Formatter
	audit    bool
}

// NewPricingHandler creates a handler over engine
func NewPricingHandler(cfg *config.Config, engine *fdmc.Engine) *PricingHandler {
	return &PricingHandler{
		engine:   engine,
		requests: services.NewRequestService(),
		format:   models.Formatter{Decimals: cfg.Output.Decimals},
		audit:    cfg.Audit.Enabled,
	}
}

// setHeaders sets CORS headers and answers preflight requests
func setHeaders(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// StatusFor maps an error class to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrConfig), errors.Is(err, errs.ErrDomain):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNumericalInstability):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, errs.ErrConfig):
		return "config"
	case errors.Is(err, errs.ErrDomain):
		return "domain"
	case errors.Is(err, errs.ErrNumericalInstability):
		return "instability"
	}
	return "internal"
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error.Printf("❌ request failed: %v", err)
	}
	writeJSON(w, code, models.ErrorResponse{Success: false, Error: err.Error(), Class: errorClass(err)})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn.Printf("⚠️ failed to encode response: %v", err)
	}
}

func (h *PricingHandler) meta(engine string, workers int, start time.Time, runID string) models.ResponseMetadata {
	mode := "sequential"
	if workers > 1 {
		mode = "parallel"
	}
	return models.ResponseMetadata{
		Engine:         engine,
		ExecutionMode:  mode,
		Workers:        workers,
		Timestamp:      time.Now().Format(time.RFC3339),
		ProcessingTime: time.Since(start).Seconds() * 1000,
		RunID:          runID,
	}
}

// AnalyticHandler prices with the closed form
func (h *PricingHandler) AnalyticHandler(w http.ResponseWriter, r *http.Request) {
	if setHeaders(w, r, "POST") {
		return
	}
	start := time.Now()

	c, spot, err := h.requests.ParseAnalyticRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.engine.PriceAnalytic(c, spot)
	if err != nil {
		writeError(w, err)
		return
	}

	f := h.format
	writeJSON(w, http.StatusOK, models.PricingResponse{
		Success: true,
		Data: models.FormattedResult{
			"type":  f.Text(string(c.Type)),
			"spot":  f.Price(spot),
			"price": f.Price(res.Price),
			"delta": f.Greek(res.Greeks.Delta),
			"gamma": f.Greek(res.Greeks.Gamma),
			"vega":  f.Greek(res.Greeks.Vega),
			"theta": f.Greek(res.Greeks.Theta),
			"rho":   f.Greek(res.Greeks.Rho),
		},
		Meta: h.meta("analytic", 1, start, ""),
	})
}

// PDEHandler prices with the finite-difference solver
func (h *PricingHandler) PDEHandler(w http.ResponseWriter, r *http.Request) {
	if setHeaders(w, r, "POST") {
		return
	}
	start := time.Now()

	req, err := h.requests.ParsePDERequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Debug.Printf("=== PDE REQUEST === %s K=%g T=%g S=%g J=%d N=%d",
		req.Contract.Type, req.Contract.Strike, req.Contract.Maturity, req.Spot, req.J, req.N)

	res, err := h.engine.PricePDE(r.Context(), *req)
	if err != nil {
		writeError(w, err)
		return
	}

	f := h.format
	writeJSON(w, http.StatusOK, models.PricingResponse{
		Success: true,
		Data: models.FormattedResult{
			"type":            f.Text(string(req.Contract.Type)),
			"spot":            f.Price(res.Spot),
			"price":           f.Price(res.Price),
			"analytic":        f.Price(res.Analytic),
			"abs_error":       f.Error(res.AbsError),
			"delta":           f.Greek(res.Greeks.Delta),
			"gamma":           f.Greek(res.Greeks.Gamma),
			"theta":           f.Greek(res.Greeks.Theta),
			"smax":            f.Price(res.Smax),
			"j":               f.Count(int64(res.J)),
			"n":               f.Count(int64(res.N)),
			"stability_ratio": f.Greek(res.Ratio),
			"stable":          f.Flag(res.Stable),
			"elapsed":         f.Duration(res.Elapsed),
		},
		Meta: h.meta("pde", res.Workers, start, res.RunID),
	})
}

// MonteCarloHandler prices with the path simulator
func (h *PricingHandler) MonteCarloHandler(w http.ResponseWriter, r *http.Request) {
	if setHeaders(w, r, "POST") {
		return
	}
	start := time.Now()

	req, err := h.requests.ParseMCRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.engine.PriceMonteCarlo(r.Context(), *req, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.PricingResponse{
		Success: true,
		Data:    h.formatMC(res),
		Meta:    h.meta("montecarlo", res.Workers, start, res.RunID),
	})
}

func (h *PricingHandler) formatMC(res *fdmc.MCResult) models.FormattedResult {
	f := h.format
	return models.FormattedResult{
		"spot":        f.Price(res.Spot),
		"price":       f.Price(res.Price),
		"analytic":    f.Price(res.Analytic),
		"abs_error":   f.Error(res.AbsError),
		"std_dev":     f.Error(res.StdDev),
		"std_err":     f.Error(res.StdErr),
		"paths":       f.Count(int64(res.Paths)),
		"steps":       f.Count(int64(res.Steps)),
		"origin_hits": f.Count(res.OriginHits),
		"generator":   f.Text(res.Generator),
		"scheme":      f.Text(res.Scheme),
		"elapsed":     f.Duration(res.Elapsed),
	}
}

// CompareHandler runs every engine across a set of spots
func (h *PricingHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if setHeaders(w, r, "POST") {
		return
	}
	start := time.Now()

	req, err := h.requests.ParseCompareRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.engine.Compare(r.Context(), *req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CompareResponse{
		Success: true,
		Rows:    res.Rows,
		Timing:  res.Timing,
		Meta:    h.meta("compare", res.Workers, start, ""),
	})
}

// HealthHandler reports the engine configuration
func (h *PricingHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if setHeaders(w, r, "GET") {
		return
	}
	writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:        "ok",
		ExecutionMode: string(h.engine.Mode()),
		Workers:       h.engine.Workers(),
		Audit:         h.audit,
		Timestamp:     time.Now().Format(time.RFC3339),
	})
}
