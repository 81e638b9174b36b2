package advisor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	opts    []GenerationOptions
	reply   func(prompt string) Generation
	delay   time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts GenerationOptions) Generation {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Unavailable(ctx.Err())
		}
	}
	if f.reply == nil {
		return Generation{Text: "- " + firstLine(prompt), Status: GenerationOK}
	}
	return f.reply(prompt)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) sortedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.prompts...)
	sort.Strings(out)
	return out
}

func firstLine(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Explain why ") {
			return line
		}
	}
	return "answer"
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (r *countingRecorder) Inc(_ context.Context, name string, labels map[string]string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int64{}
	}
	key := name
	for _, k := range []string{"kind", "status"} {
		if v, ok := labels[k]; ok {
			key += "," + k + "=" + v
		}
	}
	r.counts[key] += n
}

func (r *countingRecorder) get(key string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func testSession() *Session {
	return NewSession(DefaultMeasurements(), []RankedCrop{
		{Label: "maize", Probability: 0.6, Rank: 1, Index: 1},
		{Label: "banana", Probability: 0.25, Rank: 2, Index: 3},
		{Label: "rice", Probability: 0.1, Rank: 3, Index: 0},
	})
}
