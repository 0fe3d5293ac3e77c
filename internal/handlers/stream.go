package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwaldner/fdmc/internal/dto"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/montecarlo"
)

// outboundMessage is one frame of the progress stream
type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type progressMessage struct {
	Done       int64   `json:"done"`
	Total      int64   `json:"total"`
	OriginHits int64   `json:"origin_hits"`
	Price      float64 `json:"price"`
	StdErr     float64 `json:"std_err"`
}

// StreamHandler runs Monte Carlo simulations over a websocket
type StreamHandler struct {
	pricing  *PricingHandler
	upgrader websocket.Upgrader
}

// NewStreamHandler creates the websocket endpoint
func NewStreamHandler(pricing *PricingHandler) *StreamHandler {
	return &StreamHandler{
		pricing:  pricing,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// MonteCarloStream reads one Monte Carlo request, streams "progress" frames
// while the simulation runs and finishes with a "result" or "error" frame.
// Closing the socket cancels the run: a hijacked connection no longer cancels
// r.Context(), so a reader goroutine watches for the close instead.
func (s *StreamHandler) MonteCarloStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var in dto.MCRequest
	if err := conn.ReadJSON(&in); err != nil {
		logger.Debug.Printf("🔌 WS: bad request frame: %v", err)
		return
	}
	start := time.Now()
	req, err := s.pricing.requests.MCRequest(in)
	if err != nil {
		conn.WriteJSON(errorMessage(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	// progress arrives from worker goroutines; websocket writes need one writer
	var mu sync.Mutex
	broken := false
	progress := func(p montecarlo.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if broken {
			return
		}
		msg := outboundMessage{Type: "progress", Data: progressMessage{
			Done:       p.Done,
			Total:      p.Total,
			OriginHits: p.OriginHits,
			Price:      p.Estimate.Price,
			StdErr:     p.Estimate.StdErr,
		}}
		if err := conn.WriteJSON(msg); err != nil {
			broken = true
		}
	}

	res, err := s.pricing.engine.PriceMonteCarlo(ctx, *req, progress)

	mu.Lock()
	defer mu.Unlock()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Debug.Printf("🔌 WS: client went away, run cancelled: %v", err)
		return
	}
	if broken {
		return
	}
	if err != nil {
		conn.WriteJSON(errorMessage(err))
		return
	}
	conn.WriteJSON(outboundMessage{Type: "result", Data: models.PricingResponse{
		Success: true,
		Data:    s.pricing.formatMC(res),
		Meta:    s.pricing.meta("montecarlo", res.Workers, start, res.RunID),
	}})
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Data: models.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Class:   errorClass(err),
	}}
}
