package advisor

import (
	"strings"
	"text/template"
)

var explanationTmpl = template.Must(template.New("explanation").Parse(`
You are an agricultural advisor.

Explain why {{.Crop}} is suitable.

Rules:
- Give EXACTLY 2 bullet points.
- Each bullet must be one complete sentence.
- Do NOT explain what you are doing.
- Do NOT add extra commentary.
- Do NOT mention instructions.
- Keep it simple and farmer-friendly.
- No technical words.

Start directly with bullet points.
`))

var followUpTmpl = template.Must(template.New("followup").Parse(`
You are an agricultural advisor.

Soil conditions:
N={{.N}}, P={{.P}}, K={{.K}},
Temperature={{.Temperature}},
Humidity={{.Humidity}},
pH={{.PH}},
Rainfall={{.Rainfall}}

Top recommended crops:
{{.Crops}}

The user is asking about one of these crops.

User question:
{{.Question}}

IMPORTANT RULES:
- If the user mentions a specific crop, ONLY talk about that crop.
- Do NOT suggest different crops unless the user clearly asks for alternatives.
- Give EXACTLY 2 short bullet points.
- Each bullet must be one complete sentence.
- No extra commentary.
- No explanation about what you are doing.
`))

// ExplanationPrompt renders the per-crop justification prompt.
func ExplanationPrompt(crop string) string {
	var b strings.Builder
	// the template has no failing actions
	_ = explanationTmpl.Execute(&b, struct{ Crop string }{crop})
	return b.String()
}

type followUpData struct {
	N, P, K     string
	Temperature string
	Humidity    string
	PH          string
	Rainfall    string
	Crops       string
	Question    string
}

// FollowUpPrompt renders the follow-up prompt with the full readings, every
// ranked crop and the question verbatim.
func FollowUpPrompt(m Measurements, crops []string, question string) string {
	vals := m.Values()
	f := make([]string, len(vals))
	for i, v := range vals {
		f[i] = Fields[i].Format(v)
	}
	data := followUpData{
		N: f[0], P: f[1], K: f[2],
		Temperature: f[3],
		Humidity:    f[4],
		PH:          f[5],
		Rainfall:    f[6],
		// comma separated, in rank order
		Crops:       strings.Join(crops, ", "),
		Question:    question,
	}
	var b strings.Builder
	_ = followUpTmpl.Execute(&b, data)
	return b.String()
}
