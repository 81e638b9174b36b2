package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/cropadvisor/advisor"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (s *scriptedGenerator) Generate(_ context.Context, prompt string, _ advisor.GenerationOptions) advisor.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return advisor.Generation{Text: fmt.Sprintf("reply %d", len(s.prompts)), Status: advisor.GenerationOK}
}

func (s *scriptedGenerator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func testDeps(gen advisor.Generator) deps {
	return deps{
		newClassifier: func(advisor.ModelConfig) (advisor.Classifier, error) {
			return advisor.NewStaticClassifier([]string{"rice", "maize", "chickpea", "banana"}, []float64{0.1, 0.6, 0.05, 0.25})
		},
		newGenerator: func(advisor.GenerationConfig) advisor.Generator { return gen },
	}
}

func runCLI(t *testing.T, d deps, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(d)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "config.json")))
	err := cmd.Execute()
	return out.String(), err
}

func TestRecommendPrintsRanking(t *testing.T) {
	gen := &scriptedGenerator{}

	out, err := runCLI(t, testDeps(gen), "", "recommend", "--no-explain", "--nitrogen", "90")

	require.NoError(t, err)
	assert.Contains(t, out, "1. 🌽 MAIZE  (60.0%)")
	assert.Contains(t, out, "2. 🍌 BANANA")
	assert.Contains(t, out, "3. 🌾 RICE")
	assert.NotContains(t, out, "CHICKPEA")
	assert.Zero(t, gen.count())
}

func TestRecommendJSONWithQuestions(t *testing.T) {
	gen := &scriptedGenerator{}

	out, err := runCLI(t, testDeps(gen), "", "recommend", "--json", "--ask", "why maize?", "--ask", "  ", "--rainfall", "900")

	require.NoError(t, err)
	var res recommendResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"maize", "banana", "rice"}, res.Session.Labels())
	assert.Equal(t, 500.0, res.Session.Measurements.Rainfall)
	assert.Len(t, res.Explanations, 3)
	require.Len(t, res.Answers, 1)
	assert.Equal(t, "why maize?", res.Answers[0].Question)
	assert.Equal(t, 4, gen.count())
}

func TestRecommendChatLoop(t *testing.T) {
	gen := &scriptedGenerator{}

	out, err := runCLI(t, testDeps(gen), "what about water?\n\nignored\n", "recommend", "--no-explain", "--chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Q: what about water?")
	assert.Equal(t, 1, gen.count())
	assert.Contains(t, gen.prompts[0], "what about water?")
}

func TestRecommendModelUnavailable(t *testing.T) {
	d := testDeps(&scriptedGenerator{})
	d.newClassifier = func(advisor.ModelConfig) (advisor.Classifier, error) {
		return nil, fmt.Errorf("%w: missing file", advisor.ErrModelUnavailable)
	}

	_, err := runCLI(t, d, "", "recommend")

	require.Error(t, err)
	assert.True(t, errors.Is(err, advisor.ErrModelUnavailable))
}

func TestBatchWritesCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "fields.csv")
	require.NoError(t, os.WriteFile(input, []byte("id,N,P,K,temperature,humidity,ph,rainfall\nplot-1,90,42,43,20.8,82,6.5,202.9\nplot-2,,,,,,,\n"), 0o644))
	output := filepath.Join(dir, "out", "result.csv")

	out, err := runCLI(t, testDeps(&scriptedGenerator{}), "", "batch", "--input", input, "--output", output)

	require.NoError(t, err)
	assert.Contains(t, out, "Ranked 2 rows (0 failed)")
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "plot-1,90,42,43,20.8,82.0,6.5,202.9,maize,0.6000,banana,0.2500,rice,0.1000"))
}

func TestBatchStdoutWithExplanations(t *testing.T) {
	input := filepath.Join(t.TempDir(), "fields.tsv")
	require.NoError(t, os.WriteFile(input, []byte("90\t42\t43\t20.8\t82\t6.5\t202.9\n"), 0o644))
	gen := &scriptedGenerator{}

	out, err := runCLI(t, testDeps(gen), "", "batch", "--input", input, "--explain", "--stdout")

	require.NoError(t, err)
	assert.Contains(t, out, "explanation_1")
	assert.Contains(t, out, "reply 1")
	assert.Equal(t, 3, gen.count())
}

func TestBatchRequiresInput(t *testing.T) {
	_, err := runCLI(t, testDeps(&scriptedGenerator{}), "", "batch")
	assert.Error(t, err)
}
