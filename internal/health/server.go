package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/strategy/scoring"
)

// StatusSource lists failover manager snapshots. *failover.Registry
// implements it.
type StatusSource interface {
	Statuses() []failover.Status
}

// Server provides HTTP endpoints for RPC health.
type Server struct {
	checker  *Checker
	statuses StatusSource
	scorer   scoring.Scorer
	defaults []string
	server   *http.Server
}

// NewServer creates a health server. defaults replaces DefaultChains when
// non-empty. A nil scorer disables POST /score.
func NewServer(checker *Checker, statuses StatusSource, scorer scoring.Scorer, defaults []string, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checker:  checker,
		statuses: statuses,
		scorer:   scorer,
		defaults: defaults,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/rpc", s.handleRPC)
	mux.HandleFunc("GET /health/failover", s.handleFailover)
	mux.HandleFunc("POST /score", s.handleScore)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	values, present := r.URL.Query()["chains"]

	var chains []string
	switch {
	case !present:
		chains = s.defaultChains()
	default:
		raw := strings.Join(values, ",")
		if strings.TrimSpace(raw) == "" {
			writeError(w, ErrInvalidChainList)
			return
		}
		parsed, err := ParseChains(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		chains = parsed
	}

	report := s.checker.Check(r.Context(), chains)

	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleFailover(w http.ResponseWriter, r *http.Request) {
	var statuses []failover.Status
	if s.statuses != nil {
		statuses = s.statuses.Statuses()
	}
	if statuses == nil {
		statuses = []failover.Status{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"managers": statuses})
}

func (s *Server) defaultChains() []string {
	if len(s.defaults) > 0 {
		return append([]string(nil), s.defaults...)
	}
	return append([]string(nil), DefaultChains...)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"ok":    false,
		"error": fmt.Sprintf("%v: expected comma separated chain names", err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
