package app

import (
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/cropadvisor/advisor"
)

func newTestUI(t *testing.T) *uiState {
	t.Helper()
	cls, err := advisor.NewStaticClassifier([]string{"rice", "maize", "chickpea", "banana"}, []float64{0.1, 0.6, 0.05, 0.25})
	require.NoError(t, err)
	svc, err := advisor.NewService(cls, advisor.NewOllamaClient("http://127.0.0.1:1", "phi3:mini", 0), advisor.DefaultConfig(), zerolog.Nop(), nil)
	require.NoError(t, err)
	a := test.NewApp()
	t.Cleanup(a.Quit)
	return buildUI(a, svc, filepath.Join(t.TempDir(), "config.json"), binding.NewString(), zerolog.Nop())
}

func TestReadMeasurementsClampsAndWritesBack(t *testing.T) {
	u := newTestUI(t)
	u.entries[0].SetText("500")
	u.entries[5].SetText("")

	m, err := u.readMeasurements()

	require.NoError(t, err)
	assert.Equal(t, 200.0, m.Nitrogen)
	assert.Equal(t, 6.5, m.PH)
	assert.Equal(t, "200", u.entries[0].Text)
	assert.Equal(t, "6.5", u.entries[5].Text)

	u.entries[3].SetText("hot")
	_, err = u.readMeasurements()
	assert.Error(t, err)
}

func TestRenderCards(t *testing.T) {
	u := newTestUI(t)
	sess, err := u.service.Recommend(t.Context(), advisor.DefaultMeasurements())
	require.NoError(t, err)

	u.renderCards(sess, nil)
	require.Len(t, u.cards.Objects, 3)
	first, ok := u.cards.Objects[0].(*widget.Card)
	require.True(t, ok)
	assert.Equal(t, "1. 🌽 MAIZE", first.Title)

	exps := []advisor.Explanation{{Label: "maize", Rank: 1, Text: advisor.FallbackText, Status: advisor.GenerationUnavailable}}
	u.renderCards(sess, exps)
	require.Len(t, u.cards.Objects, 3)

	u.renderCards(&advisor.Session{}, nil)
	assert.Len(t, u.cards.Objects, 1)
}
