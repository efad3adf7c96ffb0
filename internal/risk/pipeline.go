package risk

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Pipeline is the default Scorer. It holds only read-only state and is safe
// for concurrent use.
type Pipeline struct {
	scaler     Scaler
	classifier Classifier
	src        IntSource
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIntSource replaces the jitter source. The source must be safe for
// concurrent use if the Pipeline is shared between goroutines.
func WithIntSource(src IntSource) Option {
	return func(p *Pipeline) {
		p.src = src
	}
}

// NewPipeline returns a Pipeline backed by the given frozen artifacts.
func NewPipeline(scaler Scaler, classifier Classifier, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		scaler:     scaler,
		classifier: classifier,
		src:        globalSource{},
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Score implements Scorer. It never panics and never fails: missing signals
// and computation failures come back as LevelError results with a score of 0.
func (p *Pipeline) Score(_ context.Context, address string, s Signals) (res Result) {
	log := p.logger.With(zap.String("address", address))

	if !s.Complete() {
		log.Error("missing values for prediction inputs")
		return invalidDataResult()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("prediction panicked", zap.Any("panic", r))
			res = predictionErrorResult()
		}
	}()

	fv, err := DeriveFeatures(s, p.src)
	if err != nil {
		log.Error("derive features", zap.Error(err))
		return invalidDataResult()
	}
	if !finite(fv.IsExitNode, fv.Frequency, fv.CountryRisk) {
		log.Error("input data contains NaN values prior to scaling")
		return invalidDataResult()
	}

	prob, err := p.predict(fv)
	if err != nil {
		log.Error("prediction failed", zap.Error(err))
		return predictionErrorResult()
	}

	res = Interpret(prob)
	log.Info("risk scored",
		zap.Float64("probability", prob),
		zap.Int("score", res.Score),
		zap.String("level", string(res.Level)),
	)
	return res
}

func (p *Pipeline) predict(fv FeatureVector) (float64, error) {
	scaled, err := p.scaler.Transform([]float64{fv.Frequency, fv.CountryRisk})
	if err != nil {
		return 0, fmt.Errorf("scale features: %w", err)
	}
	if len(scaled) != 2 {
		return 0, fmt.Errorf("scaler returned %d features, want 2", len(scaled))
	}
	if !finite(scaled...) {
		return 0, errors.New("scaled features are not finite")
	}

	prob, err := p.classifier.PredictProbability([]float64{fv.IsExitNode, scaled[0], scaled[1]})
	if err != nil {
		return 0, fmt.Errorf("classify: %w", err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, fmt.Errorf("probability %v outside [0,1]", prob)
	}
	return prob, nil
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
