package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Weights is the artifact produced by the offline training job.
type Weights struct {
	Version string             `json:"version"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// ModelScorer is a logistic model over Features.
type ModelScorer struct {
	w             Weights
	minConfidence float64
}

// LoadModel reads a weights artifact from path.
func LoadModel(path string, minConfidence float64) (*ModelScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	return NewModelScorer(w, minConfidence)
}

func NewModelScorer(w Weights, minConfidence float64) (*ModelScorer, error) {
	if len(w.Weights) == 0 {
		return nil, fmt.Errorf("model has no weights")
	}
	for name := range w.Weights {
		if _, ok := featureValue(Features{}, name); !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
	}
	return &ModelScorer{w: w, minConfidence: minConfidence}, nil
}

func (s *ModelScorer) Name() string { return "model" }

func (s *ModelScorer) Score(f Features) Decision {
	z := s.w.Bias
	for name, weight := range s.w.Weights {
		v, _ := featureValue(f, name)
		z += weight * v
	}

	confidence := 1 / (1 + math.Exp(-z))
	if math.IsNaN(confidence) {
		confidence = 0
	}
	return Decision{
		Confidence: confidence,
		Execute:    confidence >= s.minConfidence,
		Source:     s.Name(),
	}
}

func featureValue(f Features, name string) (float64, bool) {
	switch name {
	case "spread_bps":
		return f.SpreadBps, true
	case "liquidity_usd":
		return f.LiquidityUSD, true
	case "gas_cost_usd":
		return f.GasCostUSD, true
	case "volatility":
		return f.Volatility, true
	case "rpc_latency_ms":
		return f.RPCLatencyMS, true
	}
	return 0, false
}
