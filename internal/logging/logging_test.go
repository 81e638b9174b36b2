package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringSink struct{ v string }

func (s *stringSink) Set(v string) error {
	s.v = v
	return nil
}

func TestLineCaptureKeepsTail(t *testing.T) {
	sink := &stringSink{}
	c := NewLineCapture(sink, 3)
	for i := 1; i <= 5; i++ {
		_, err := fmt.Fprintf(c, "line %d\r\n", i)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, c.Lines())
	assert.Equal(t, "line 3\nline 4\nline 5", sink.v)
}

func TestSetupWritesToExtra(t *testing.T) {
	var out bytes.Buffer
	capture := NewLineCapture(nil, 10)
	logger := SetupTo(&out, "warn", capture)

	logger.Info().Msg("hidden")
	logger.Warn().Str("crop", "rice").Msg("visible")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "visible")
	lines := capture.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "visible")
	assert.Contains(t, lines[0], "crop=rice")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}
