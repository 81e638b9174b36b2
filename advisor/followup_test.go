package advisor

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpNoOps(t *testing.T) {
	gen := &fakeGenerator{}
	f := NewFollowUp(gen, testOpts, zerolog.Nop(), nil)

	_, ok := f.Ask(context.Background(), nil, "is rice good?")
	assert.False(t, ok)
	_, ok = f.Ask(context.Background(), &Session{}, "is rice good?")
	assert.False(t, ok)
	_, ok = f.Ask(context.Background(), testSession(), "   \t ")
	assert.False(t, ok)
	assert.Zero(t, gen.calls())
}

func TestFollowUpAsksOnce(t *testing.T) {
	gen := &fakeGenerator{}
	rec := &countingRecorder{}
	f := NewFollowUp(gen, testOpts, zerolog.Nop(), rec)
	sess := testSession()

	ans, ok := f.Ask(context.Background(), sess, "Can maize grow in sandy soil?")

	require.True(t, ok)
	assert.Equal(t, "Can maize grow in sandy soil?", ans.Question)
	assert.Equal(t, GenerationOK, ans.Status)
	require.Equal(t, 1, gen.calls())
	assert.Equal(t, testOpts, gen.opts[0])
	assert.Contains(t, gen.prompts[0], "maize, banana, rice")
	assert.Contains(t, gen.prompts[0], "Can maize grow in sandy soil?")
	assert.Contains(t, gen.prompts[0], "N=50, P=50, K=50,")
	assert.EqualValues(t, 1, rec.get("followups_total,status=ok"))
}

func TestFollowUpFallback(t *testing.T) {
	gen := &fakeGenerator{reply: func(string) Generation { return Unavailable(ErrGenerationUnavailable) }}
	f := NewFollowUp(gen, testOpts, zerolog.Nop(), nil)

	ans, ok := f.Ask(context.Background(), testSession(), "why?")

	require.True(t, ok)
	assert.Equal(t, FallbackText, ans.Text)
	assert.Equal(t, GenerationUnavailable, ans.Status)
}
