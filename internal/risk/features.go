package risk

import (
	"errors"
	"math/rand/v2"
)

// ErrInvalidInput is returned by DeriveFeatures when a signal is missing.
var ErrInvalidInput = errors.New("missing signal")

// Signals are the raw per-address observations. A nil field is an absent
// signal.
type Signals struct {
	IsExitNode       *bool
	RequestFrequency *int
	Country          *string
}

// Complete reports whether all three signals are present.
func (s Signals) Complete() bool {
	return s.IsExitNode != nil && s.RequestFrequency != nil && s.Country != nil
}

// FeatureVector holds the classifier inputs in trained order.
type FeatureVector struct {
	IsExitNode  float64
	Frequency   float64
	CountryRisk float64
}

// Slice returns [isExitNode, frequency, countryRisk].
func (f FeatureVector) Slice() []float64 {
	return []float64{f.IsExitNode, f.Frequency, f.CountryRisk}
}

// IntSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type IntSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Jitter bounds, inclusive.
const (
	frequencyJitterMin = -50
	frequencyJitterMax = 100
	countryJitterMin   = -15
	countryJitterMax   = 15
)

// highRiskCountries is a static policy table, not learned.
var highRiskCountries = map[string]bool{
	"CN": true, "RU": true, "IR": true, "KP": true,
}

// CountryRiskBase returns the base country risk score for an ISO code.
func CountryRiskBase(code string) int {
	if highRiskCountries[code] {
		return 30
	}
	return 5
}

// DeriveFeatures turns raw signals into a jittered FeatureVector. Both
// jittered values are floored at 1; there is no ceiling.
func DeriveFeatures(s Signals, src IntSource) (FeatureVector, error) {
	if !s.Complete() {
		return FeatureVector{}, ErrInvalidInput
	}
	if src == nil {
		src = globalSource{}
	}

	freq := max(1, *s.RequestFrequency+uniform(src, frequencyJitterMin, frequencyJitterMax))
	country := max(1, CountryRiskBase(*s.Country)+uniform(src, countryJitterMin, countryJitterMax))

	exit := 0.0
	if *s.IsExitNode {
		exit = 1
	}
	return FeatureVector{
		IsExitNode:  exit,
		Frequency:   float64(freq),
		CountryRisk: float64(country),
	}, nil
}

// uniform returns an integer in [lo, hi].
func uniform(src IntSource, lo, hi int) int {
	return lo + src.IntN(hi-lo+1)
}
