package rag

// Relevance buckets how well a result set answers its query.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
	RelevanceNone   Relevance = "none"
)

// Top-score thresholds for the relevance buckets.
const (
	HighRelevanceThreshold   = 0.6
	MediumRelevanceThreshold = 0.4
)

// Evaluation describes a ranked result set. It never reorders results.
type Evaluation struct {
	Relevance Relevance `json:"relevance"`
	// Useful is false when the best match is too weak to ground an answer.
	Useful      bool    `json:"useful"`
	TopScore    float64 `json:"topScore"`
	ScoreSpread float64 `json:"scoreSpread"` // top minus runner-up
}

// Evaluate rates results, which must already be sorted by descending
// similarity as Search returns them.
func Evaluate(results []Result) Evaluation {
	if len(results) == 0 {
		return Evaluation{Relevance: RelevanceNone}
	}

	ev := Evaluation{TopScore: results[0].Similarity}
	if len(results) >= 2 {
		ev.ScoreSpread = ev.TopScore - results[1].Similarity
	}

	switch {
	case ev.TopScore >= HighRelevanceThreshold:
		ev.Relevance, ev.Useful = RelevanceHigh, true
	case ev.TopScore >= MediumRelevanceThreshold:
		ev.Relevance, ev.Useful = RelevanceMedium, true
	default:
		ev.Relevance = RelevanceLow
	}
	return ev
}
