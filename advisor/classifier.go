package advisor

import (
	"context"
	"fmt"
)

// Classifier exposes the trained crop model. Label order is a property of the
// loaded model and never changes between calls.
type Classifier interface {
	Predict(ctx context.Context, m Measurements) (Prediction, error)
	Labels() []string
	Close() error
}

// StaticClassifier returns a fixed distribution. It backs tests and dry runs
// where no model file is available.
type StaticClassifier struct {
	labels []string
	probs  []float64
}

// NewStaticClassifier validates and stores a fixed distribution.
func NewStaticClassifier(labels []string, probabilities []float64) (*StaticClassifier, error) {
	if len(labels) == 0 {
		return nil, errNoLabels
	}
	if len(labels) != len(probabilities) {
		return nil, fmt.Errorf("%d labels but %d probabilities", len(labels), len(probabilities))
	}
	if err := checkDistinct(labels); err != nil {
		return nil, err
	}
	return &StaticClassifier{
		labels: append([]string(nil), labels...),
		probs:  append([]float64(nil), probabilities...),
	}, nil
}

// Predict implements Classifier.
func (c *StaticClassifier) Predict(ctx context.Context, _ Measurements) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	return Prediction{
		Labels:        c.Labels(),
		Probabilities: append([]float64(nil), c.probs...),
	}, nil
}

// Labels implements Classifier.
func (c *StaticClassifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Close implements Classifier.
func (c *StaticClassifier) Close() error { return nil }
