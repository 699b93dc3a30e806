package scoring

// RuleScorer applies fixed deductions to a perfect score.
type RuleScorer struct {
	minConfidence float64
}

func NewRuleScorer(minConfidence float64) *RuleScorer {
	return &RuleScorer{minConfidence: minConfidence}
}

func (s *RuleScorer) Name() string { return "rules" }

func (s *RuleScorer) Score(f Features) Decision {
	// Not profitable after gas: never execute.
	if f.SpreadBps <= 0 || f.LiquidityUSD <= 0 {
		return Decision{Confidence: 0, Source: s.Name()}
	}
	profitUSD := f.LiquidityUSD * f.SpreadBps / 10_000
	if profitUSD <= f.GasCostUSD {
		return Decision{Confidence: 0, Source: s.Name()}
	}

	score := 100.0

	if f.SpreadBps < 5 {
		score -= 40
	} else if f.SpreadBps < 15 {
		score -= 20
	} else if f.SpreadBps < 30 {
		score -= 10
	}

	if f.LiquidityUSD < 1_000 {
		score -= 40
	} else if f.LiquidityUSD < 10_000 {
		score -= 20
	}

	if f.RPCLatencyMS > 3000 {
		score -= 40
	} else if f.RPCLatencyMS > 1000 {
		score -= 20
	} else if f.RPCLatencyMS > 500 {
		score -= 10
	}

	score -= clamp01(f.Volatility) * 30
	score -= f.GasCostUSD / profitUSD * 20

	confidence := clamp01(score / 100)
	return Decision{
		Confidence: confidence,
		Execute:    confidence >= s.minConfidence,
		Source:     s.Name(),
	}
}
