package advisor

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Recorder counts events. internal/metrics.Registry satisfies it.
type Recorder interface {
	Inc(ctx context.Context, name string, labels map[string]string, n int64)
}

type nopRecorder struct{}

func (nopRecorder) Inc(context.Context, string, map[string]string, int64) {}

// Generation kinds used as metric labels.
const (
	KindExplanation = "explanation"
	KindFollowUp    = "followup"
)

// Explainer asks the generator for a short justification of every ranked crop.
type Explainer struct {
	gen      Generator
	opts     GenerationOptions
	parallel bool
	cache    *cache.Cache
	logger   zerolog.Logger
	metrics  Recorder
}

// ExplainerOption customises an Explainer.
type ExplainerOption func(*Explainer)

// WithParallel runs the per-crop generations concurrently.
func WithParallel(on bool) ExplainerOption {
	return func(e *Explainer) { e.parallel = on }
}

// WithExplanationCache keeps successful explanations for ttl, keyed by crop and
// readings. A non-positive ttl disables caching.
func WithExplanationCache(ttl time.Duration) ExplainerOption {
	return func(e *Explainer) {
		if ttl <= 0 {
			e.cache = nil
			return
		}
		e.cache = cache.New(ttl, 2*ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ExplainerOption {
	return func(e *Explainer) { e.logger = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) ExplainerOption {
	return func(e *Explainer) {
		if r != nil {
			e.metrics = r
		}
	}
}

// NewExplainer creates an Explainer that sends opts with every prompt.
func NewExplainer(gen Generator, opts GenerationOptions, options ...ExplainerOption) *Explainer {
	e := &Explainer{
		gen:     gen,
		opts:    opts,
		logger:  zerolog.Nop(),
		metrics: nopRecorder{},
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Explain returns one explanation per ranked crop, in rank order. Generation
// failures yield FallbackText entries and never abort the other crops.
func (e *Explainer) Explain(ctx context.Context, sess *Session) []Explanation {
	if sess.Empty() {
		return []Explanation{}
	}
	out := make([]Explanation, len(sess.Ranked))
	if !e.parallel {
		for i, r := range sess.Ranked {
			out[i] = e.explainOne(ctx, sess.Measurements, r)
		}
		return out
	}

	var g errgroup.Group
	for i, r := range sess.Ranked {
		g.Go(func() error {
			out[i] = e.explainOne(ctx, sess.Measurements, r)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Explainer) explainOne(ctx context.Context, m Measurements, r RankedCrop) Explanation {
	key := r.Key() + "@" + m.Fingerprint()
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			e.logger.Debug().Str("crop", r.Label).Msg("explanation cache hit")
			return Explanation{Label: r.Label, Rank: r.Rank, Text: v.(string), Status: GenerationOK}
		}
	}

	start := time.Now()
	res := e.gen.Generate(ctx, ExplanationPrompt(r.Label), e.opts)
	e.metrics.Inc(ctx, "generations_total", map[string]string{"kind": KindExplanation, "status": string(res.Status)}, 1)
	if res.Fallback() {
		e.logger.Warn().Err(res.Err).Str("crop", r.Label).Str("status", string(res.Status)).Msg("explanation fallback")
	} else {
		e.logger.Debug().Str("crop", r.Label).Dur("took", time.Since(start)).Msg("explanation generated")
		if e.cache != nil {
			e.cache.SetDefault(key, res.Text)
		}
	}
	return Explanation{Label: r.Label, Rank: r.Rank, Text: res.Text, Status: res.Status}
}
