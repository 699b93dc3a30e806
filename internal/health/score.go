package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/strategy/scoring"
)

const maxScoreBody = 64 << 10

// ScoreRequest is the body of POST /score. When Chain names a managed chain
// and rpc_latency_ms is zero, the latency of the chain's current endpoint is
// used.
type ScoreRequest struct {
	Chain string `json:"chain,omitempty"`
	scoring.Features
}

// ScoreResponse carries the features actually scored and the decision.
type ScoreResponse struct {
	Chain    string           `json:"chain,omitempty"`
	Features scoring.Features `json:"features"`
	scoring.Decision
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "scoring disabled"})
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid score request: " + err.Error()})
		return
	}

	resp := ScoreResponse{Features: req.Features}
	if req.Chain != "" {
		alias := domain.Normalize(req.Chain)
		resp.Chain = string(alias)
		if resp.Features.RPCLatencyMS == 0 {
			resp.Features.RPCLatencyMS = s.currentLatencyMS(alias)
		}
	}
	resp.Decision = s.scorer.Score(resp.Features)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) currentLatencyMS(chain domain.ChainAlias) float64 {
	if s.statuses == nil {
		return 0
	}
	for _, st := range s.statuses.Statuses() {
		if st.Chain == chain {
			return float64(st.CurrentLatency()) / float64(time.Millisecond)
		}
	}
	return 0
}
