package advisor

import (
	"errors"
	"time"
)

// TopK is the number of crops kept in a ranking session.
const TopK = 3

var (
	// ErrModelUnavailable is returned when the crop classifier could not be loaded.
	// Front ends treat it as fatal.
	ErrModelUnavailable = errors.New("crop model unavailable")
	// ErrGenerationUnavailable marks a text generation call that failed to reach
	// the service or got a non-success status.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
	// ErrMalformedGenerationResponse marks a reply without a usable response field.
	ErrMalformedGenerationResponse = errors.New("malformed text generation response")
)

// RankedCrop is one entry of a top-K ranking.
type RankedCrop struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Rank        int     `json:"rank"`
	Index       int     `json:"index"`
}

// Key returns the canonical lookup key for the crop label.
func (r RankedCrop) Key() string {
	return NormalizeLabel(r.Label)
}

// Prediction is a probability distribution over the classifier's labels.
// Labels[i] corresponds to Probabilities[i].
type Prediction struct {
	Labels        []string  `json:"labels"`
	Probabilities []float64 `json:"probabilities"`
}

// GenerationStatus tells whether a generation produced model text or the fallback.
type GenerationStatus string

const (
	GenerationOK          GenerationStatus = "ok"
	GenerationUnavailable GenerationStatus = "unavailable"
	GenerationMalformed   GenerationStatus = "malformed"
)

// GenerationOptions are the sampling parameters sent with every prompt.
type GenerationOptions struct {
	MaxOutputTokens int     `json:"num_predict"`
	Temperature     float64 `json:"temperature"`
}

// Generation is the typed outcome of a text generation call.
type Generation struct {
	Text   string
	Status GenerationStatus
	Err    error
}

// Fallback reports whether Text holds FallbackText instead of model output.
func (g Generation) Fallback() bool {
	return g.Status != GenerationOK
}

// Explanation holds the generated justification for one ranked crop.
type Explanation struct {
	Label  string           `json:"label"`
	Rank   int              `json:"rank"`
	Text   string           `json:"text"`
	Status GenerationStatus `json:"status"`
}

// Answer is the reply to a follow-up question.
type Answer struct {
	Question string           `json:"question"`
	Text     string           `json:"text"`
	Status   GenerationStatus `json:"status"`
}

// Session is the latest ranking request and its result. A Session is never
// mutated after creation; a new request replaces it as a whole.
type Session struct {
	ID           string       `json:"id"`
	Measurements Measurements `json:"measurements"`
	Ranked       []RankedCrop `json:"ranked"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Labels returns the ranked crop labels in rank order.
func (s *Session) Labels() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.Ranked))
	for i, r := range s.Ranked {
		out[i] = r.Label
	}
	return out
}

// Empty reports whether the session holds no ranked crops.
func (s *Session) Empty() bool {
	return s == nil || len(s.Ranked) == 0
}
