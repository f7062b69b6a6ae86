// Package gateway exposes a fdp.Vault over HTTP so that several clients
// can share one backend. The HTTP vault in internal/vault is its client.
package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fdp-go/internal/fdp"
)

// MaxObjectSize bounds request bodies. Blocks default to 1MB; this leaves
// room for larger configured block sizes plus encryption overhead.
const MaxObjectSize = 64 << 20

// Server routes vault requests.
type Server struct {
	vault   fdp.Vault
	logger  fdp.Logger
	router  *mux.Router
	metrics *metrics
}

// New creates a Server over v. Metrics are registered on reg and served
// from it at /metrics.
func New(v fdp.Vault, logger fdp.Logger, reg *prometheus.Registry) (*Server, error) {
	m, err := newMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	s := &Server{vault: v, logger: logger, router: mux.NewRouter(), metrics: m}

	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.NewRoute().Subrouter()
	api.Use(m.middleware)
	api.HandleFunc("/content/{address}", s.putContent).Methods(http.MethodPut)
	api.HandleFunc("/content/{address}", s.getContent).Methods(http.MethodGet)
	api.HandleFunc("/content/{address}", s.headContent).Methods(http.MethodHead)
	api.HandleFunc("/pins/{address}", s.pin).Methods(http.MethodPut)
	api.HandleFunc("/pins/{address}", s.isPinned).Methods(http.MethodGet)
	api.HandleFunc("/feeds/{slot}/{version:[0-9]+}", s.putFeedUpdate).Methods(http.MethodPut)
	api.HandleFunc("/feeds/{slot}/{version:[0-9]+}", s.getFeedUpdate).Methods(http.MethodGet)
	api.HandleFunc("/feeds/{slot}", s.latestFeedVersion).Methods(http.MethodGet)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// hexKey validates a 32-byte hex path variable.
func hexKey(r *http.Request, name string) (string, bool) {
	v := mux.Vars(r)[name]
	b, err := hex.DecodeString(v)
	if err != nil || len(b) != fdp.ReferenceSize {
		return "", false
	}
	return v, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, fdp.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.logger.Error("vault request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxObjectSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "object too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "failed to read body", http.StatusBadRequest)
		}
		return nil, false
	}
	return body, true
}

func (s *Server) putContent(w http.ResponseWriter, r *http.Request) {
	address, ok := hexKey(r, "address")
	if !ok {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if fdp.ContentAddress(body).String() != address {
		http.Error(w, "content does not match address", http.StatusBadRequest)
		return
	}

	if err := s.vault.PutContent(r.Context(), address, bytes.NewReader(body), int64(len(body))); err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.bytesIn.Add(float64(len(body)))
	s.logger.Debug("content stored", "address", address, "size", len(body))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	address, ok := hexKey(r, "address")
	if !ok {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	// buffer so a not-found error can still set the status
	var buf bytes.Buffer
	if err := s.vault.GetContent(r.Context(), address, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

func (s *Server) headContent(w http.ResponseWriter, r *http.Request) {
	address, ok := hexKey(r, "address")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	found, err := s.vault.HasContent(r.Context(), address)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) pin(w http.ResponseWriter, r *http.Request) {
	address, ok := hexKey(r, "address")
	if !ok {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	if err := s.vault.Pin(r.Context(), address); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) isPinned(w http.ResponseWriter, r *http.Request) {
	address, ok := hexKey(r, "address")
	if !ok {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	pinned, err := s.vault.IsPinned(r.Context(), address)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !pinned {
		http.Error(w, "not pinned", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func feedVars(r *http.Request) (string, int64, bool) {
	slot, ok := hexKey(r, "slot")
	if !ok {
		return "", 0, false
	}
	version, err := strconv.ParseInt(mux.Vars(r)["version"], 10, 64)
	if err != nil || version < 1 {
		return "", 0, false
	}
	return slot, version, true
}

func (s *Server) putFeedUpdate(w http.ResponseWriter, r *http.Request) {
	slot, version, ok := feedVars(r)
	if !ok {
		http.Error(w, "invalid slot or version", http.StatusBadRequest)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := s.vault.PutFeedUpdate(r.Context(), slot, version, bytes.NewReader(body), int64(len(body))); err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.bytesIn.Add(float64(len(body)))
	s.logger.Debug("feed update stored", "slot", slot, "version", version)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getFeedUpdate(w http.ResponseWriter, r *http.Request) {
	slot, version, ok := feedVars(r)
	if !ok {
		http.Error(w, "invalid slot or version", http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := s.vault.GetFeedUpdate(r.Context(), slot, version, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(buf.Bytes())
}

// FeedVersion is the body of GET /feeds/{slot}.
type FeedVersion struct {
	Version int64 `json:"version"`
}

func (s *Server) latestFeedVersion(w http.ResponseWriter, r *http.Request) {
	slot, ok := hexKey(r, "slot")
	if !ok {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}
	version, err := s.vault.LatestFeedVersion(r.Context(), slot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(FeedVersion{Version: version})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.vault.ValidateSetup(r.Context()); err != nil {
		s.logger.Warn("vault setup check failed", "error", err)
		http.Error(w, "vault unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, "ok\n")
}
