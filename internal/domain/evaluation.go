package domain

// Evaluation is the score sheet attached to one GeneratedResult. At most one
// evaluation exists per result per run. OverallScore is nil while a deferred
// (manual) evaluation waits for a human rating.
type Evaluation struct {
	ResultID       string
	OverallScore   *float64
	CriteriaScores map[string]float64
	Reasoning      string
	Strategy       string
	ClampAdjusted  bool
}

// Scored reports whether the evaluation carries a usable numeric score.
func (e Evaluation) Scored() bool {
	return e.OverallScore != nil
}

// Score returns the overall score, or 0 when the evaluation is still pending.
func (e Evaluation) Score() float64 {
	if e.OverallScore == nil {
		return 0
	}
	return *e.OverallScore
}

// ScoreRef wraps a concrete score value for assignment to OverallScore.
func ScoreRef(v float64) *float64 {
	return &v
}
