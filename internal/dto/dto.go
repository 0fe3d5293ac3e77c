package dto

// ContractRequest is the contract part shared by every pricing request.
// Maturity is a year fraction; Expiration ("2026-12-18" or "next") is used
// when Maturity is omitted.
type ContractRequest struct {
	Type       string  `json:"type"`
	Strike     float64 `json:"strike"`
	Maturity   float64 `json:"maturity"`
	Expiration string  `json:"expiration"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
	Dividend   float64 `json:"dividend"`
}

// AnalyticRequest represents a closed-form pricing request
type AnalyticRequest struct {
	ContractRequest
	Spot float64 `json:"spot"`
}

// PDERequest represents a finite-difference pricing request
type PDERequest struct {
	ContractRequest
	Spot      float64 `json:"spot"`
	Smax      float64 `json:"smax"`
	J         int     `json:"j"`
	N         int     `json:"n"`
	Stability string  `json:"stability"`
}

// MCRequest represents a Monte Carlo pricing request
type MCRequest struct {
	ContractRequest
	Spot          float64 `json:"spot"`
	Steps         int     `json:"steps"`
	Paths         int     `json:"paths"`
	Seed          uint64  `json:"seed"`
	Generator     string  `json:"generator"`
	Scheme        string  `json:"scheme"`
	Beta          float64 `json:"beta"`
	ProgressEvery int     `json:"progress_every"`
}

// CompareRequest represents an engine comparison across spot levels
type CompareRequest struct {
	ContractRequest
	Spots []float64 `json:"spots"`

	Smax      float64 `json:"smax"`
	J         int     `json:"j"`
	N         int     `json:"n"`
	Stability string  `json:"stability"`

	Steps     int    `json:"steps"`
	Paths     int    `json:"paths"`
	Seed      uint64 `json:"seed"`
	Generator string `json:"generator"`
	Scheme    string `json:"scheme"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status        string `json:"status"`
	ExecutionMode string `json:"execution_mode"`
	Workers       int    `json:"workers"`
	Audit         bool   `json:"audit"`
	Timestamp     string `json:"timestamp"`
}
