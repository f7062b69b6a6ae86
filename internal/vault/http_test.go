package vault

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"fdp-go/internal/fdp"
	"fdp-go/internal/gateway"
	"fdp-go/internal/vault/vaulttest"
)

func newGatewayVault(t *testing.T, backend fdp.Vault) *HTTPVault {
	t.Helper()
	srv, err := gateway.New(backend, fdp.NewNopLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	v, err := NewHTTPVault(ts.URL+"/", ts.Client())
	if err != nil {
		t.Fatalf("NewHTTPVault() error = %v", err)
	}
	return v
}

func TestHTTPVault(t *testing.T) {
	vaulttest.Run(t, func(t *testing.T) fdp.Vault {
		return newGatewayVault(t, NewMemoryVault())
	})
}

func TestHTTPVault_RejectsMismatchedContent(t *testing.T) {
	v := newGatewayVault(t, NewMemoryVault())

	wrong := fdp.ContentAddress([]byte("something else")).String()
	err := v.PutContent(t.Context(), wrong, strings.NewReader("payload"), 7)
	if err == nil {
		t.Fatal("PutContent() expected error for mismatched address")
	}
	if errors.Is(err, fdp.ErrNotFound) {
		t.Errorf("PutContent() error = %v, want a non-not-found gateway error", err)
	}
}

func TestHTTPVault_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	v, err := NewHTTPVault(url, nil)
	if err != nil {
		t.Fatalf("NewHTTPVault() error = %v", err)
	}
	_, err = v.LatestFeedVersion(t.Context(), strings.Repeat("ab", 32))
	if err == nil {
		t.Fatal("LatestFeedVersion() expected transport error")
	}
	if errors.Is(err, fdp.ErrNotFound) {
		t.Errorf("LatestFeedVersion() error = %v, transport failure must not be ErrNotFound", err)
	}
}
