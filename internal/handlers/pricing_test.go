package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/metrics"
	"github.com/jwaldner/fdmc/internal/models"
)

const putBody = `"type":"put","strike":65,"maturity":0.25,"rate":0.08,"volatility":0.3`

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.MonteCarlo.Paths = 4000
	cfg.MonteCarlo.Steps = 20
	cfg.PDE.SpaceSteps = 100
	cfg.Output.Decimals = 4

	m := metrics.New("fdmc")
	if err := m.Register(); err != nil {
		t.Fatal(err)
	}
	engine := fdmc.NewEngineForced("sequential", cfg, fdmc.WithMetrics(m))
	srv := httptest.NewServer(NewRouter(NewPricingHandler(cfg, engine), m))
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestPDEEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := postJSON(t, srv.URL+"/api/pde", `{`+putBody+`,"spot":60}`)
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	var resp models.PricingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Meta.Engine != "pde" {
		t.Errorf("response = %+v", resp)
	}
	price := resp.Data["price"]
	if price.Type != "price" || len(strings.SplitN(price.Display, ".", 2)[1]) != 4 {
		t.Errorf("price field = %+v", price)
	}
	if resp.Data["stable"].Display != "true" {
		t.Errorf("stable = %+v", resp.Data["stable"])
	}
}

func TestErrorStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		body  string
		code  int
		class string
	}{
		{"malformed", "/api/pde", `{"type":`, http.StatusBadRequest, "config"},
		{"bad contract", "/api/mc", `{"type":"put","strike":-1,"maturity":1,"volatility":0.2,"spot":60}`, http.StatusBadRequest, "config"},
		{"small domain", "/api/pde", `{` + putBody + `,"spot":60,"smax":70}`, http.StatusBadRequest, "domain"},
		{"unstable grid", "/api/pde", `{` + putBody + `,"spot":60,"smax":130,"j":200,"n":800}`, http.StatusUnprocessableEntity, "instability"},
	}
	for _, tt := range tests {
		code, body := postJSON(t, srv.URL+tt.path, tt.body)
		if code != tt.code {
			t.Errorf("%s: status %d, want %d (%s)", tt.name, code, tt.code, body)
			continue
		}
		var resp models.ErrorResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if resp.Success || resp.Class != tt.class {
			t.Errorf("%s: response = %+v", tt.name, resp)
		}
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(fmt.Errorf("wrapped: %w", &errs.InstabilityError{Engine: "pde"})); got != http.StatusUnprocessableEntity {
		t.Errorf("instability → %d", got)
	}
	if got := StatusFor(errors.New("disk on fire")); got != http.StatusInternalServerError {
		t.Errorf("unclassified → %d", got)
	}
}

func TestAnalyticMCAndCompareEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := postJSON(t, srv.URL+"/api/analytic", `{`+putBody+`,"spot":60}`)
	if code != http.StatusOK || !strings.Contains(string(body), `"vega"`) {
		t.Errorf("analytic: %d %s", code, body)
	}

	code, body = postJSON(t, srv.URL+"/api/mc", `{`+putBody+`,"spot":60,"seed":3}`)
	if code != http.StatusOK || !strings.Contains(string(body), `"std_err"`) {
		t.Errorf("mc: %d %s", code, body)
	}

	code, body = postJSON(t, srv.URL+"/api/compare", `{`+putBody+`,"spots":[60,65]}`)
	if code != http.StatusOK {
		t.Fatalf("compare: %d %s", code, body)
	}
	var resp models.CompareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Rows) != 2 || resp.Timing["pde"] <= 0 {
		t.Errorf("compare response = %+v", resp)
	}
}

func TestHealthPreflightAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/mc", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", resp.StatusCode, resp.Header)
	}

	postJSON(t, srv.URL+"/api/pde", `{`+putBody+`,"spot":60}`)

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`fdmc_runs_total{engine="pde",outcome="ok"} 1`,
		`fdmc_http_requests_total{code="200",route="/api/pde"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMonteCarloStream(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{
		"type": "put", "strike": 65, "maturity": 0.25, "rate": 0.08, "volatility": 0.3,
		"spot": 60, "paths": 2000, "progress_every": 500,
	}); err != nil {
		t.Fatal(err)
	}

	progress := 0
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "progress" {
			progress++
			continue
		}
		if msg.Type != "result" {
			t.Fatalf("unexpected frame %s: %s", msg.Type, msg.Data)
		}
		var resp models.PricingResponse
		if err := json.Unmarshal(msg.Data, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Data["paths"].Display != "2000" {
			t.Errorf("paths = %+v", resp.Data["paths"])
		}
		break
	}
	if progress != 4 {
		t.Errorf("progress frames = %d, want 4", progress)
	}
}

func TestMonteCarloStreamCancelsOnClose(t *testing.T) {
	srv, m := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	// far more work than the test waits for
	if err := conn.WriteJSON(map[string]interface{}{
		"type": "put", "strike": 65, "maturity": 0.25, "rate": 0.08, "volatility": 0.3,
		"spot": 60, "paths": 20000000, "steps": 50, "progress_every": 1000,
	}); err != nil {
		t.Fatal(err)
	}
	var msg outboundMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "progress" {
		t.Fatalf("first frame = %+v, %v", msg, err)
	}
	conn.Close()

	canceled := m.RunsTotal.WithLabelValues("montecarlo", metrics.OutcomeCanceled)
	deadline := time.Now().Add(10 * time.Second)
	for testutil.ToFloat64(canceled) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("run kept going after the client closed the socket")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("montecarlo", metrics.OutcomeOK)); got != 0 {
		t.Errorf("completed runs = %g, want 0", got)
	}
}

func TestMonteCarloStreamRejectsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(map[string]interface{}{"type": "straddle", "strike": 65, "maturity": 0.25, "volatility": 0.3, "spot": 60})
	var msg outboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" {
		t.Errorf("frame type = %s", msg.Type)
	}
}
