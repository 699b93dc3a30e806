// Package scoring rates trading opportunities. A model-backed scorer is used
// when a weights artifact is available, otherwise a rule-based one; both
// honor the same contract so callers never know which is active.
package scoring

import (
	"errors"
	"log/slog"
	"os"
)

// Features is the input vector for one opportunity.
type Features struct {
	SpreadBps    float64 `json:"spread_bps"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	GasCostUSD   float64 `json:"gas_cost_usd"`
	Volatility   float64 `json:"volatility"`     // 0..1
	RPCLatencyMS float64 `json:"rpc_latency_ms"` // latency of the current endpoint
}

// Decision is a scorer's verdict.
type Decision struct {
	Confidence float64 `json:"confidence"` // 0..1
	Execute    bool    `json:"execute"`
	Source     string  `json:"source"`
}

// Scorer turns features into a decision.
type Scorer interface {
	Score(f Features) Decision
	Name() string
}

// ErrNoModel is returned when no weights artifact is configured.
var ErrNoModel = errors.New("no model artifact")

// Select picks the scorer once at startup: the model when modelPath points to
// a loadable artifact, the rules otherwise.
func Select(modelPath string, minConfidence float64, log *slog.Logger) Scorer {
	if log == nil {
		log = slog.Default()
	}

	if modelPath != "" {
		if _, err := os.Stat(modelPath); err == nil {
			m, err := LoadModel(modelPath, minConfidence)
			if err == nil {
				log.Info("Using model scorer", "path", modelPath)
				return m
			}
			log.Warn("Failed to load model, using rules", "path", modelPath, "error", err)
		} else {
			log.Warn("Model artifact not found, using rules", "path", modelPath)
		}
	}

	log.Info("Using rule scorer")
	return NewRuleScorer(minConfidence)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
