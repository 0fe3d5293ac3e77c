package services

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jwaldner/fdmc/internal/dto"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/models"
)

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/pde", strings.NewReader(body))
}

func TestParsePDERequest(t *testing.T) {
	s := NewRequestService()
	req, err := s.ParsePDERequest(post(`{"type":"put","strike":65,"maturity":0.25,"rate":0.08,"volatility":0.3,"spot":60,"j":100}`))
	if err != nil {
		t.Fatalf("ParsePDERequest: %v", err)
	}
	if req.Contract.Type != models.Put || req.Contract.Strike != 65 || req.Spot != 60 || req.J != 100 {
		t.Errorf("parsed %+v", req)
	}
	if req.N != 0 || req.Smax != 0 {
		t.Errorf("omitted grid fields should stay zero: %+v", req)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	s := NewRequestService()
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"type":`},
		{"unknown field", `{"type":"put","strike":65,"maturity":0.25,"volatility":0.3,"colour":"red"}`},
		{"bad type", `{"type":"straddle","strike":65,"maturity":0.25,"volatility":0.3}`},
		{"no strike", `{"type":"call","maturity":0.25,"volatility":0.3}`},
		{"bad expiration", `{"type":"call","strike":65,"expiration":"soon","volatility":0.3}`},
	}
	for _, tt := range tests {
		if _, err := s.ParsePDERequest(post(tt.body)); !errors.Is(err, errs.ErrConfig) {
			t.Errorf("%s: got %v, want config error", tt.name, err)
		}
	}

	get := httptest.NewRequest(http.MethodGet, "/api/pde", nil)
	if _, err := s.ParsePDERequest(get); err == nil {
		t.Error("GET should be rejected")
	}
}

func TestContractFromExpiration(t *testing.T) {
	s := &RequestService{now: func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }}
	c, err := s.Contract(dto.ContractRequest{Type: "C", Strike: 100, Expiration: "2027-01-02", Volatility: 0.2})
	if err != nil {
		t.Fatalf("Contract: %v", err)
	}
	if c.Type != models.Call || c.Maturity < 0.99 || c.Maturity > 1.01 {
		t.Errorf("contract = %+v", c)
	}
}

func TestParseAnalyticAndCompare(t *testing.T) {
	s := NewRequestService()
	c, spot, err := s.ParseAnalyticRequest(post(`{"type":"call","strike":100,"maturity":1,"volatility":0.2,"spot":105}`))
	if err != nil || c.Strike != 100 || spot != 105 {
		t.Fatalf("analytic: %+v %g %v", c, spot, err)
	}
	if _, _, err := s.ParseAnalyticRequest(post(`{"type":"call","strike":100,"maturity":1,"volatility":0.2}`)); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("missing spot: got %v", err)
	}

	cmp, err := s.ParseCompareRequest(post(`{"type":"put","strike":65,"maturity":0.25,"volatility":0.3,"spots":[55,65],"paths":5000}`))
	if err != nil || len(cmp.Spots) != 2 || cmp.Paths != 5000 {
		t.Fatalf("compare: %+v %v", cmp, err)
	}
	if _, err := s.ParseCompareRequest(post(`{"type":"put","strike":65,"maturity":0.25,"volatility":0.3}`)); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("missing spots: got %v", err)
	}

	mc, err := s.ParseMCRequest(post(`{"type":"put","strike":155,"maturity":1.28,"volatility":0.27,"spot":150,"scheme":"milstein","beta":0.5}`))
	if err != nil || mc.Scheme != "milstein" || mc.Beta != 0.5 {
		t.Fatalf("mc: %+v %v", mc, err)
	}
}
