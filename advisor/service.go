package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service ties the classifier, the ranking and the text generation together.
// Front ends hold one Service and pass sessions explicitly.
type Service struct {
	classifier Classifier
	generator  Generator

	cfgMu sync.RWMutex
	cfg   Config

	explainer *Explainer
	followUp  *FollowUp

	logger  zerolog.Logger
	metrics Recorder
}

// NewService constructs a service. rec may be nil.
func NewService(classifier Classifier, generator Generator, cfg Config, logger zerolog.Logger, rec Recorder) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	cfg.ApplyDefaults()
	s := &Service{
		classifier: classifier,
		generator:  generator,
		logger:     logger,
		metrics:    rec,
	}
	s.applyConfig(generator, cfg)
	return s, nil
}

func (s *Service) applyConfig(gen Generator, cfg Config) {
	var ttl time.Duration
	if cfg.CacheExplanations {
		ttl = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}
	opts := cfg.Generation.Options()
	explainer := NewExplainer(gen, opts,
		WithParallel(cfg.ParallelExplanations),
		WithExplanationCache(ttl),
		WithLogger(s.logger),
		WithRecorder(s.metrics),
	)
	followUp := NewFollowUp(gen, opts, s.logger, s.metrics)

	s.cfgMu.Lock()
	s.generator = gen
	s.cfg = cfg
	s.explainer = explainer
	s.followUp = followUp
	s.cfgMu.Unlock()
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig replaces the configuration. The explanation cache is reset.
func (s *Service) UpdateConfig(cfg Config) {
	cfg.ApplyDefaults()
	s.cfgMu.RLock()
	gen := s.generator
	s.cfgMu.RUnlock()
	s.applyConfig(gen, cfg)
}

// SetGenerator swaps the text generation backend.
func (s *Service) SetGenerator(g Generator) {
	if g == nil {
		return
	}
	s.applyConfig(g, s.Config())
}

// Labels returns the classifier vocabulary in model order.
func (s *Service) Labels() []string {
	return s.classifier.Labels()
}

// Close releases the classifier.
func (s *Service) Close() error {
	return s.classifier.Close()
}

// Recommend clamps the readings, runs the classifier and returns a new
// session holding the top TopK crops.
func (s *Service) Recommend(ctx context.Context, m Measurements) (*Session, error) {
	m = m.Clamp()
	start := time.Now()
	pred, err := s.classifier.Predict(ctx, m)
	if err != nil {
		s.metrics.Inc(ctx, "rankings_total", map[string]string{"status": "error"}, 1)
		return nil, fmt.Errorf("predict: %w", err)
	}
	ranked := Rank(pred.Labels, pred.Probabilities, TopK)
	sess := NewSession(m, ranked)
	s.metrics.Inc(ctx, "rankings_total", map[string]string{"status": "ok"}, 1)
	s.logger.Info().
		Str("session", sess.ID).
		Strs("crops", sess.Labels()).
		Dur("took", time.Since(start)).
		Msg("ranking complete")
	return sess, nil
}

// Explain generates one explanation per ranked crop of sess.
func (s *Service) Explain(ctx context.Context, sess *Session) []Explanation {
	s.cfgMu.RLock()
	e := s.explainer
	s.cfgMu.RUnlock()
	return e.Explain(ctx, sess)
}

// Ask answers a follow-up question about sess. The boolean is false when
// nothing was asked.
func (s *Service) Ask(ctx context.Context, sess *Session, question string) (Answer, bool) {
	s.cfgMu.RLock()
	f := s.followUp
	s.cfgMu.RUnlock()
	return f.Ask(ctx, sess, question)
}

// RecommendBatch ranks every record in order. A failed row keeps its error in
// BatchResult.Err and does not stop the batch. With explain set, each ranked
// row also gets its explanations.
func (s *Service) RecommendBatch(ctx context.Context, records []MeasurementRecord, explain bool) []BatchResult {
	results := make([]BatchResult, len(records))
	for i, rec := range records {
		results[i].Record = rec
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		sess, err := s.Recommend(ctx, rec.Measurements)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Ranked = sess.Ranked
		if explain {
			results[i].Explanations = s.Explain(ctx, sess)
		}
	}
	return results
}

// Failed counts results that carry an error.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
