package types

// Score tier boundaries shared by every view that colors or labels a score.
const (
	GoodThreshold    = 80
	WarningThreshold = 70

	MinScore = 0
	MaxScore = 100
)

// ScoreTier buckets a score for display
type ScoreTier string

const (
	TierGood    ScoreTier = "good"
	TierWarning ScoreTier = "warning"
	TierPoor    ScoreTier = "poor"
)

// TierFor maps a score to its tier: >= 80 good, 70-79 warning, below 70 poor.
func TierFor(score int) ScoreTier {
	switch {
	case score >= GoodThreshold:
		return TierGood
	case score >= WarningThreshold:
		return TierWarning
	default:
		return TierPoor
	}
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	return max(MinScore, min(MaxScore, score))
}
