package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and latency by route template.
// Websocket routes are skipped; the hijacked connection has no status.
func Instrument(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			m.RecordHTTPRequest(route, rec.status, elapsed)
			logger.Verbose.Printf("🌐 %s %s → %d in %v", r.Method, route, rec.status, elapsed)
		})
	}
}
