package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutesStripPrefix(t *testing.T) {
	odds, bets := upstream(t, "odds"), upstream(t, "bets")
	h, err := New(zap.NewNop(), Targets{Odds: odds.URL, Bets: bets.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/api/odds/fixtures/537785/odds", "odds /fixtures/537785/odds"},
		{"/api/odds/matchdays", "odds /matchdays"},
		{"/api/bets/bets/3", "bets /bets/3"},
		{"/api/bets/bettors", "bets /bettors"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != tt.want {
			t.Errorf("%s -> %d %q, want %q", tt.path, rec.Code, rec.Body.String(), tt.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet/x", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown prefix = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	odds := upstream(t, "odds")
	h, err := New(zap.NewNop(), Targets{Odds: odds.URL, Bets: odds.URL}, []string{"http://localhost:3000"})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/odds/teams", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("preflight = %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/odds/teams", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unexpected allow origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestUpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	h, err := New(zap.NewNop(), Targets{Odds: dead.URL, Bets: dead.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bets/bettors", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("code = %d, want 502", rec.Code)
	}
}
