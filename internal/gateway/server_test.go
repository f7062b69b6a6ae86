package gateway_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"fdp-go/internal/fdp"
	"fdp-go/internal/gateway"
	"fdp-go/internal/vault"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := gateway.New(vault.NewMemoryVault(), fdp.NewNopLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Content(t *testing.T) {
	ts := newTestServer(t)
	addr := fdp.ContentAddress([]byte("block")).String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "get before put", method: http.MethodGet, path: "/content/" + addr, want: http.StatusNotFound},
		{name: "head before put", method: http.MethodHead, path: "/content/" + addr, want: http.StatusNotFound},
		{name: "pin before put", method: http.MethodPut, path: "/pins/" + addr, want: http.StatusNotFound},
		{name: "put", method: http.MethodPut, path: "/content/" + addr, body: "block", want: http.StatusCreated},
		{name: "put wrong body", method: http.MethodPut, path: "/content/" + addr, body: "other", want: http.StatusBadRequest},
		{name: "put invalid address", method: http.MethodPut, path: "/content/xyz", body: "block", want: http.StatusBadRequest},
		{name: "head after put", method: http.MethodHead, path: "/content/" + addr, want: http.StatusOK},
		{name: "not pinned", method: http.MethodGet, path: "/pins/" + addr, want: http.StatusNotFound},
		{name: "pin", method: http.MethodPut, path: "/pins/" + addr, want: http.StatusNoContent},
		{name: "pinned", method: http.MethodGet, path: "/pins/" + addr, want: http.StatusOK},
	}

	// steps depend on each other, so no t.Parallel
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
			}
		})
	}

	resp := do(t, http.MethodGet, ts.URL+"/content/"+addr, "")
	got, _ := io.ReadAll(resp.Body)
	if string(got) != "block" {
		t.Errorf("GET content body = %q, want %q", got, "block")
	}
}

func TestServer_Feeds(t *testing.T) {
	ts := newTestServer(t)
	slot := strings.Repeat("0f", 32)

	latest := func() int64 {
		resp := do(t, http.MethodGet, ts.URL+"/feeds/"+slot, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET latest status = %d, want 200", resp.StatusCode)
		}
		var fv gateway.FeedVersion
		if err := json.NewDecoder(resp.Body).Decode(&fv); err != nil {
			t.Fatalf("decoding feed version: %v", err)
		}
		return fv.Version
	}

	if v := latest(); v != 0 {
		t.Fatalf("latest version = %d, want 0", v)
	}

	if resp := do(t, http.MethodPut, ts.URL+"/feeds/"+slot+"/1", "first"); resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT version 1 status = %d, want 201", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, ts.URL+"/feeds/"+slot+"/0", "zero"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("PUT version 0 status = %d, want 400", resp.StatusCode)
	}
	if v := latest(); v != 1 {
		t.Errorf("latest version = %d, want 1", v)
	}

	resp := do(t, http.MethodGet, ts.URL+"/feeds/"+slot+"/1", "")
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "first" {
		t.Errorf("GET version 1 = %q, want %q", body, "first")
	}
	if resp := do(t, http.MethodGet, ts.URL+"/feeds/"+slot+"/2", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET version 2 status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	if resp := do(t, http.MethodGet, ts.URL+"/health", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `fdp_gateway_requests_total{code="200",method="GET",route="/health"} 1`) {
		t.Errorf("metrics missing health request counter:\n%s", body)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := gateway.New(vault.NewMemoryVault(), fdp.NewNopLogger(), reg); err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	if _, err := gateway.New(vault.NewMemoryVault(), fdp.NewNopLogger(), reg); err == nil {
		t.Error("second New() on the same registry expected error")
	}
}
