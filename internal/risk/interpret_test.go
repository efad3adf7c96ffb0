package risk_test

import (
	"testing"

	"github.com/jmerrifield20/exitrisk/internal/risk"
)

func TestInterpret_boundaries(t *testing.T) {
	tests := []struct {
		p     float64
		score int
		level risk.Level
	}{
		{0, 0, risk.LevelLow},
		{0.24999, 24, risk.LevelLow},
		{0.25, 25, risk.LevelMedium},
		{0.5, 50, risk.LevelMedium},
		{0.649, 64, risk.LevelMedium},
		{0.65, 65, risk.LevelHigh},
		{0.999, 99, risk.LevelHigh},
		{1.0, 100, risk.LevelHigh},
	}
	for _, tt := range tests {
		got := risk.Interpret(tt.p)
		if got.Score != tt.score {
			t.Errorf("Interpret(%v).Score = %d, want %d", tt.p, got.Score, tt.score)
		}
		if got.Level != tt.level {
			t.Errorf("Interpret(%v).Level = %q, want %q", tt.p, got.Level, tt.level)
		}
	}
}

func TestInterpret_explanations(t *testing.T) {
	if got := risk.Interpret(0.1).Explanation; got != "Low risk based on low request frequency and country score." {
		t.Errorf("low explanation: %q", got)
	}
	if got := risk.Interpret(0.4).Explanation; got != "Medium risk due to moderate activity and/or country score." {
		t.Errorf("medium explanation: %q", got)
	}
	if got := risk.Interpret(0.9).Explanation; got != "High risk due to high activity and/or high-risk country." {
		t.Errorf("high explanation: %q", got)
	}
}

func TestInterpret_monotonic(t *testing.T) {
	prev := risk.Interpret(0)
	for i := 1; i <= 1000; i++ {
		cur := risk.Interpret(float64(i) / 1000)
		if cur.Level.Rank() < prev.Level.Rank() {
			t.Fatalf("level decreased at p=%v: %s -> %s", float64(i)/1000, prev.Level, cur.Level)
		}
		if cur.Score < prev.Score {
			t.Fatalf("score decreased at p=%v", float64(i)/1000)
		}
		prev = cur
	}
}
