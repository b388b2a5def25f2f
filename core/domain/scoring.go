package domain

// ScoreWeights configures the weighted sum behind TotalScore.
// Weights are configuration, not constants, but ship with sane defaults.
type ScoreWeights struct {
	Activity         float64
	Reproducibility  float64
	License          float64
	Novelty          float64
	Relevance        float64
}

// DefaultScoreWeights returns the baseline weights. They sum to 1.0.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Activity:        0.15,
		Reproducibility: 0.30,
		License:         0.15,
		Novelty:         0.15,
		Relevance:       0.25,
	}
}

// Sum returns the sum of all five weights, used to validate configuration.
func (w ScoreWeights) Sum() float64 {
	return w.Activity + w.Reproducibility + w.License + w.Novelty + w.Relevance
}

const (
	penaltyAlgorithmPaper = 5.0
	penaltyNotBenchmark   = 3.0

	priorityHighThreshold   = 8.0
	priorityMediumThreshold = 6.0
)

// CalculateTotalScore computes total_score: a weighted sum of the
// five required dimensions, minus a penalty, clamped to [0, 10].
func CalculateTotalScore(c ScoredCandidate, weights ScoreWeights) float64 {
	weighted := weights.Activity*c.ActivityScore +
		weights.Reproducibility*c.ReproducibilityScore +
		weights.License*c.LicenseScore +
		weights.Novelty*c.NoveltyScore +
		weights.Relevance*c.RelevanceScore

	weighted -= penaltyFor(c)

	if weighted < 0 {
		return 0
	}
	if weighted > 10 {
		return 10
	}
	return weighted
}

func penaltyFor(c ScoredCandidate) float64 {
	if c.NonBenchmarkCategory == CategoryAlgorithmPaper {
		return penaltyAlgorithmPaper
	}
	if c.IsNotBenchmark {
		return penaltyNotBenchmark
	}
	return 0
}

// DerivePriority maps a clamped total_score to its three-level priority tag.
func DerivePriority(totalScore float64) Priority {
	switch {
	case totalScore >= priorityHighThreshold:
		return PriorityHigh
	case totalScore >= priorityMediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ApplyScoring sets TotalScore and Priority on c using weights, returning the
// updated value (ScoredCandidate is passed and returned by value throughout
// the scoring package).
func ApplyScoring(c ScoredCandidate, weights ScoreWeights) ScoredCandidate {
	c.TotalScore = CalculateTotalScore(c, weights)
	c.Priority = DerivePriority(c.TotalScore)
	return c
}
