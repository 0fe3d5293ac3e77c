package handlers

import (
	"github.com/gorilla/mux"

	"github.com/jwaldner/fdmc/internal/metrics"
)

// NewRouter wires every endpoint. m may be nil, which disables /metrics.
func NewRouter(pricing *PricingHandler, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	stream := NewStreamHandler(pricing)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analytic", pricing.AnalyticHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/pde", pricing.PDEHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/mc", pricing.MonteCarloHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/compare", pricing.CompareHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/health", pricing.HealthHandler).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws/mc", stream.MonteCarloStream).Methods("GET")

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
		r.Use(Instrument(m))
	}
	return r
}
