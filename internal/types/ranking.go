package types

// Ranking labels the model is asked to choose from.
const (
	LabelStrongMatch = "Strong Match"
	LabelGoodFit     = "Good Fit"
	LabelPossible    = "Possible"
	LabelWeakFit     = "Weak Fit"
)

// Ranking priorities the model is asked to choose from.
const (
	PriorityApplyToday    = "Apply Today"
	PriorityApplyThisWeek = "Apply This Week"
	PriorityLower         = "Lower Priority"
	PrioritySkip          = "Skip"
)

// MinScore and MaxScore bound RankingResult.Score.
const (
	MinScore = 0
	MaxScore = 10
)

// RankingResult is the evaluation of a single job against the candidate profile.
type RankingResult struct {
	ID       int64  `json:"id"`
	Score    int    `json:"score"`
	Label    string `json:"label"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`

	// Overridden is set when a deterministic rule replaced the model's answer.
	Overridden bool `json:"overridden,omitempty"`
}
