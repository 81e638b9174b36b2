package advisor

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// FollowUp answers free-form questions about the current ranking.
type FollowUp struct {
	gen     Generator
	opts    GenerationOptions
	logger  zerolog.Logger
	metrics Recorder
}

// NewFollowUp creates a handler. logger and rec may be zero values.
func NewFollowUp(gen Generator, opts GenerationOptions, logger zerolog.Logger, rec Recorder) *FollowUp {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &FollowUp{gen: gen, opts: opts, logger: logger, metrics: rec}
}

// Ask sends one generation request built from the session and the question.
// It reports false, without calling the generator, when there is no ranking
// yet or the question is blank.
func (f *FollowUp) Ask(ctx context.Context, sess *Session, question string) (Answer, bool) {
	if sess.Empty() {
		f.metrics.Inc(ctx, "followups_total", map[string]string{"status": "skipped"}, 1)
		return Answer{}, false
	}
	// whitespace-only counts as blank
	if strings.TrimSpace(question) == "" {
		f.metrics.Inc(ctx, "followups_total", map[string]string{"status": "skipped"}, 1)
		return Answer{}, false
	}

	res := f.gen.Generate(ctx, FollowUpPrompt(sess.Measurements, sess.Labels(), question), f.opts)
	f.metrics.Inc(ctx, "generations_total", map[string]string{"kind": KindFollowUp, "status": string(res.Status)}, 1)
	f.metrics.Inc(ctx, "followups_total", map[string]string{"status": string(res.Status)}, 1)
	if res.Fallback() {
		f.logger.Warn().Err(res.Err).Str("session", sess.ID).Msg("follow-up fallback")
	}
	return Answer{Question: question, Text: res.Text, Status: res.Status}, true
}
