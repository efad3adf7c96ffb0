package risk

import "math"

// Explanations returned with each level. Clients match on these strings.
const (
	ExplanationLow          = "Low risk based on low request frequency and country score."
	ExplanationMedium       = "Medium risk due to moderate activity and/or country score."
	ExplanationHigh         = "High risk due to high activity and/or high-risk country."
	ExplanationInvalidData  = "Invalid data detected. Please review inputs."
	ExplanationPredictError = "Prediction error due to invalid input data."
)

// Interpret maps a probability in [0,1] to a score and level. The score is
// floor(p*100), so a probability of exactly 1.0 scores 100.
func Interpret(p float64) Result {
	score := int(math.Floor(p * 100))
	switch {
	case score < 25:
		return Result{Score: score, Level: LevelLow, Explanation: ExplanationLow}
	case score < 65:
		return Result{Score: score, Level: LevelMedium, Explanation: ExplanationMedium}
	default:
		return Result{Score: score, Level: LevelHigh, Explanation: ExplanationHigh}
	}
}

func invalidDataResult() Result {
	return Result{Score: 0, Level: LevelError, Explanation: ExplanationInvalidData}
}

func predictionErrorResult() Result {
	return Result{Score: 0, Level: LevelError, Explanation: ExplanationPredictError}
}
