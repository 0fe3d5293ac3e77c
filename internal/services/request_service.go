package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/dto"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/utils"
)

// maxBody caps request bodies
const maxBody = 1 << 20

// RequestService handles HTTP request parsing
type RequestService struct {
	now func() time.Time
}

// NewRequestService creates a new request service
func NewRequestService() *RequestService {
	return &RequestService{now: time.Now}
}

// decode reads one JSON body; parse problems are configuration errors
func (s *RequestService) decode(r *http.Request, v interface{}) error {
	if r.Method != http.MethodPost {
		return fmt.Errorf("method not allowed: %s", r.Method)
	}
	return DecodeJSON(io.LimitReader(r.Body, maxBody), v)
}

// DecodeJSON decodes a request body, rejecting unknown fields
func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Config("body", "failed to decode request: %v", err)
	}
	return nil
}

// Contract converts the shared contract fields into a validated contract
func (s *RequestService) Contract(req dto.ContractRequest) (models.Contract, error) {
	t, err := models.ParseOptionType(req.Type)
	if err != nil {
		return models.Contract{}, errs.Config("type", "%v", err)
	}

	maturity := req.Maturity
	if maturity == 0 && req.Expiration != "" {
		maturity, err = utils.ParseMaturity(req.Expiration, s.now())
		if err != nil {
			return models.Contract{}, errs.Config("expiration", "%v", err)
		}
	}

	c := models.Contract{
		Strike:     req.Strike,
		Maturity:   maturity,
		Rate:       req.Rate,
		Volatility: req.Volatility,
		Dividend:   req.Dividend,
		Type:       t,
	}
	if err := c.Validate(); err != nil {
		return models.Contract{}, errs.Config("contract", "%v", err)
	}
	return c, nil
}

// ParseAnalyticRequest parses a closed-form request
func (s *RequestService) ParseAnalyticRequest(r *http.Request) (models.Contract, float64, error) {
	var req dto.AnalyticRequest
	if err := s.decode(r, &req); err != nil {
		return models.Contract{}, 0, err
	}
	c, err := s.Contract(req.ContractRequest)
	if err != nil {
		return models.Contract{}, 0, err
	}
	if !(req.Spot > 0) {
		return models.Contract{}, 0, errs.Config("spot", "must be positive, got %g", req.Spot)
	}
	return c, req.Spot, nil
}

// ParsePDERequest parses a finite-difference request; zero grid fields keep
// the engine defaults
func (s *RequestService) ParsePDERequest(r *http.Request) (*fdmc.PDERequest, error) {
	var req dto.PDERequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	c, err := s.Contract(req.ContractRequest)
	if err != nil {
		return nil, err
	}
	return &fdmc.PDERequest{
		Contract:  c,
		Spot:      req.Spot,
		Smax:      req.Smax,
		J:         req.J,
		N:         req.N,
		Stability: req.Stability,
	}, nil
}

// ParseMCRequest parses a Monte Carlo request from an HTTP body
func (s *RequestService) ParseMCRequest(r *http.Request) (*fdmc.MCRequest, error) {
	var req dto.MCRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	return s.MCRequest(req)
}

// MCRequest converts a decoded Monte Carlo request
func (s *RequestService) MCRequest(req dto.MCRequest) (*fdmc.MCRequest, error) {
	c, err := s.Contract(req.ContractRequest)
	if err != nil {
		return nil, err
	}
	return &fdmc.MCRequest{
		Contract:      c,
		Spot:          req.Spot,
		Steps:         req.Steps,
		Paths:         req.Paths,
		Seed:          req.Seed,
		Generator:     req.Generator,
		Scheme:        req.Scheme,
		Beta:          req.Beta,
		ProgressEvery: req.ProgressEvery,
	}, nil
}

// ParseCompareRequest parses an engine comparison request
func (s *RequestService) ParseCompareRequest(r *http.Request) (*fdmc.CompareRequest, error) {
	var req dto.CompareRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	c, err := s.Contract(req.ContractRequest)
	if err != nil {
		return nil, err
	}
	if len(req.Spots) == 0 {
		return nil, errs.Config("spots", "are required")
	}
	return &fdmc.CompareRequest{
		Contract:  c,
		Spots:     req.Spots,
		Smax:      req.Smax,
		J:         req.J,
		N:         req.N,
		Stability: req.Stability,
		Steps:     req.Steps,
		Paths:     req.Paths,
		Seed:      req.Seed,
		Generator: req.Generator,
		Scheme:    req.Scheme,
	}, nil
}
