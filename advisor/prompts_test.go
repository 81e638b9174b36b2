package advisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplanationPrompt(t *testing.T) {
	p := ExplanationPrompt("rice")

	assert.Contains(t, p, "You are an agricultural advisor.")
	assert.Contains(t, p, "Explain why rice is suitable.")
	assert.Contains(t, p, "- Give EXACTLY 2 bullet points.")
	assert.Contains(t, p, "- Do NOT mention instructions.")
	assert.Contains(t, p, "- No technical words.")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(p), "Start directly with bullet points."))
}

func TestFollowUpPrompt(t *testing.T) {
	m := Measurements{Nitrogen: 90, Phosphorus: 42, Potassium: 43, Temperature: 20.8, Humidity: 82, PH: 6.5, Rainfall: 202.9}
	p := FollowUpPrompt(m, []string{"rice", "jute", "maize"}, "Is rice OK in <clay> soil?")

	assert.Contains(t, p, "N=90, P=42, K=43,")
	assert.Contains(t, p, "Temperature=20.8,")
	assert.Contains(t, p, "Humidity=82.0,")
	assert.Contains(t, p, "pH=6.5,")
	assert.Contains(t, p, "Rainfall=202.9")
	assert.Contains(t, p, "Top recommended crops:\nrice, jute, maize\n")
	// text/template does not escape
	assert.Contains(t, p, "User question:\nIs rice OK in <clay> soil?\n")
	assert.Contains(t, p, "- If the user mentions a specific crop, ONLY talk about that crop.")
	assert.Contains(t, p, "- No explanation about what you are doing.")
}
