package models

import (
	"fmt"
	"math"
	"strings"
)

// OptionType is the payoff sign of a European contract
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" and the single-letter forms "C"/"P"
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// Sign returns +1 for calls and -1 for puts
func (o OptionType) Sign() float64 {
	if o == Put {
		return -1
	}
	return 1
}

// Contract describes a European option. It is not modified during a pricing run
// and is shared by pointer between the process description and the payoff.
type Contract struct {
	Strike     float64    `json:"strike"`
	Maturity   float64    `json:"maturity"`
	Rate       float64    `json:"rate"`
	Volatility float64    `json:"volatility"`
	Dividend   float64    `json:"dividend"`
	Type       OptionType `json:"type"`
}

// Payoff evaluates max(K-x, 0) for puts and max(x-K, 0) for calls
func (c *Contract) Payoff(x float64) float64 {
	return math.Max(c.Type.Sign()*(x-c.Strike), 0)
}

// Discount returns e^(-rT)
func (c *Contract) Discount() float64 {
	return math.Exp(-c.Rate * c.Maturity)
}

// Validate checks the fields every engine relies on
func (c *Contract) Validate() error {
	switch {
	case c.Type != Call && c.Type != Put:
		return fmt.Errorf("option type must be call or put, got %q", c.Type)
	case !(c.Strike > 0) || math.IsInf(c.Strike, 0):
		return fmt.Errorf("strike must be positive and finite, got %g", c.Strike)
	case !(c.Maturity > 0) || math.IsInf(c.Maturity, 0):
		return fmt.Errorf("maturity must be positive and finite, got %g", c.Maturity)
	case !(c.Volatility >= 0) || math.IsInf(c.Volatility, 0):
		return fmt.Errorf("volatility must be non-negative and finite, got %g", c.Volatility)
	case math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0):
		return fmt.Errorf("rate must be finite, got %g", c.Rate)
	case math.IsNaN(c.Dividend) || math.IsInf(c.Dividend, 0):
		return fmt.Errorf("dividend must be finite, got %g", c.Dividend)
	}
	return nil
}

// WithType returns a copy of the contract with a different payoff sign
func (c Contract) WithType(t OptionType) *Contract {
	c.Type = t
	return &c
}

// FieldValue represents a field with both raw data and formatted display
type FieldValue struct {
	Raw     interface{} `json:"raw"`     // For CSV/sorting: 1234.56
	Display string      `json:"display"` // For UI: "1234.560000"
	Type    string      `json:"type"`    // "price", "error", "count", "duration"
}

// FormattedResult is an engine result keyed by field name
type FormattedResult map[string]FieldValue

// ResponseMetadata describes how a result was produced
type ResponseMetadata struct {
	Engine         string  `json:"engine"`
	ExecutionMode  string  `json:"execution_mode"`
	Workers        int     `json:"workers"`
	Timestamp      string  `json:"timestamp"`
	ProcessingTime float64 `json:"processing_time"`
	RunID          string  `json:"run_id,omitempty"`
}

// PricingResponse is the envelope returned by every pricing endpoint
type PricingResponse struct {
	Success bool             `json:"success"`
	Data    FormattedResult  `json:"data"`
	Meta    ResponseMetadata `json:"meta"`
}

// CompareRow is one spot level priced by every engine
type CompareRow struct {
	Spot       float64 `json:"spot"`
	Analytic   float64 `json:"analytic"`
	PDE        float64 `json:"pde"`
	PDEError   float64 `json:"pde_error"`
	MonteCarlo float64 `json:"monte_carlo"`
	MCStdErr   float64 `json:"mc_std_err"`
	MCError    float64 `json:"mc_error"`
}

// CompareResponse is the envelope returned by the engine comparison endpoint
type CompareResponse struct {
	Success bool               `json:"success"`
	Rows    []CompareRow       `json:"rows"`
	Timing  map[string]float64 `json:"timing_ms"`
	Meta    ResponseMetadata   `json:"meta"`
}

// ErrorResponse is returned on any failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Class   string `json:"class"`
}
