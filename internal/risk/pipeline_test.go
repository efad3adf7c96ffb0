package risk_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jmerrifield20/exitrisk/internal/risk"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type identityScaler struct{}

func (identityScaler) Transform(x []float64) ([]float64, error) {
	return append([]float64(nil), x...), nil
}

type errScaler struct{}

func (errScaler) Transform([]float64) ([]float64, error) {
	return nil, errors.New("shape mismatch")
}

type constClassifier struct {
	p   float64
	err error
	got []float64
}

func (c *constClassifier) PredictProbability(x []float64) (float64, error) {
	c.got = x
	return c.p, c.err
}

type panicClassifier struct{}

func (panicClassifier) PredictProbability([]float64) (float64, error) {
	panic("index out of range")
}

// ── Tests ────────────────────────────────────────────────────────────────

func ptr[T any](v T) *T { return &v }

func fullSignals() risk.Signals {
	return risk.Signals{IsExitNode: ptr(true), RequestFrequency: ptr(500), Country: ptr("RU")}
}

func TestPipeline_scores(t *testing.T) {
	clf := &constClassifier{p: 0.7}
	p := risk.NewPipeline(identityScaler{}, clf, zap.NewNop())

	res := p.Score(context.Background(), "1.2.3.4", fullSignals())
	if res.Level != risk.LevelHigh || res.Score != 70 {
		t.Fatalf("expected High/70, got %+v", res)
	}
	if len(clf.got) != 3 || clf.got[0] != 1 {
		t.Errorf("classifier input: got %v, want [1, freq, country]", clf.got)
	}
}

func TestPipeline_missingSignal(t *testing.T) {
	p := risk.NewPipeline(identityScaler{}, &constClassifier{p: 0.9}, zap.NewNop())

	s := fullSignals()
	s.Country = nil
	res := p.Score(context.Background(), "1.2.3.4", s)
	want := risk.Result{Score: 0, Level: risk.LevelError, Explanation: risk.ExplanationInvalidData}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
}

func TestPipeline_computationErrors(t *testing.T) {
	want := risk.Result{Score: 0, Level: risk.LevelError, Explanation: risk.ExplanationPredictError}

	cases := map[string]*risk.Pipeline{
		"scaler error":     risk.NewPipeline(errScaler{}, &constClassifier{p: 0.5}, zap.NewNop()),
		"classifier error": risk.NewPipeline(identityScaler{}, &constClassifier{err: errors.New("bad shape")}, zap.NewNop()),
		"classifier panic": risk.NewPipeline(identityScaler{}, panicClassifier{}, zap.NewNop()),
		"NaN probability":  risk.NewPipeline(identityScaler{}, &constClassifier{p: math.NaN()}, zap.NewNop()),
		"probability > 1":  risk.NewPipeline(identityScaler{}, &constClassifier{p: 1.5}, zap.NewNop()),
		"negative":         risk.NewPipeline(identityScaler{}, &constClassifier{p: -0.1}, zap.NewNop()),
	}
	for name, p := range cases {
		res := p.Score(context.Background(), "1.2.3.4", fullSignals())
		if res != want {
			t.Errorf("%s: got %+v, want %+v", name, res, want)
		}
	}
}

func TestPipeline_neverErrorsOnValidInput(t *testing.T) {
	// The classifier echoes a squashed frequency so results vary with jitter.
	clf := classifierFunc(func(x []float64) (float64, error) {
		return x[1] / (x[1] + 400), nil
	})
	p := risk.NewPipeline(identityScaler{}, clf, zap.NewNop())

	for i := 0; i < 500; i++ {
		res := p.Score(context.Background(), "1.2.3.4", fullSignals())
		if res.Level == risk.LevelError {
			t.Fatalf("trial %d: unexpected Error result %+v", i, res)
		}
		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("trial %d: score out of range: %d", i, res.Score)
		}
	}
}

type classifierFunc func(x []float64) (float64, error)

func (f classifierFunc) PredictProbability(x []float64) (float64, error) { return f(x) }
