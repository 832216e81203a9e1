package agent

// NewAnalyzer maps a selected agent ID to its analyzer implementation.
// Unknown IDs fall back to the momentum analyzer so a run with a
// misspelled analyst still produces signal instead of failing setup.
func NewAnalyzer(agentID string, cfg *ModelConfig) Analyzer {
	switch agentID {
	case "fundamentals_analyst":
		return NewFundamentals()
	case "momentum_analyst":
		return NewMomentum(defaultFastPeriod, defaultSlowPeriod)
	default:
		return NewMomentum(defaultFastPeriod, defaultSlowPeriod)
	}
}
