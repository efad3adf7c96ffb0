// Package risk scores IP addresses from stored exit-node observations.
// It derives jittered features from the raw signals, runs them through a
// frozen scaler and classifier, and maps the resulting probability to a
// 0–100 score with a qualitative level.
package risk

import "context"

// Level is the qualitative risk classification attached to a Result.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
	LevelError  Level = "Error"
)

// Rank orders the scoring levels: Low < Medium < High. Error ranks below Low.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	default:
		return 0
	}
}

// Result is the outcome of a scoring run.
type Result struct {
	// Score is the risk score (0–100). Always 0 when Level is LevelError.
	Score int `json:"risk_score"`

	// Level is derived from Score:
	//   0–24   → "Low"
	//   25–64  → "Medium"
	//   65–100 → "High"
	Level Level `json:"risk_level"`

	Explanation string `json:"explanation"`
}

// Scaler standardizes the numeric features before classification.
// Implementations must be safe for concurrent use.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// Classifier returns the probability that a feature vector belongs to the
// high-risk class. Implementations must be safe for concurrent use.
type Classifier interface {
	PredictProbability(x []float64) (float64, error)
}

// Scorer scores one set of observed signals for an address.
type Scorer interface {
	Score(ctx context.Context, address string, s Signals) Result
}
