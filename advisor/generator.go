package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FallbackText is shown in place of generated text when the service cannot answer.
const FallbackText = "⚠ LLM not responding. Make sure Ollama is running."

// Generator produces text for a prompt. Implementations never fail: errors are
// reported through Generation.Status with Text set to FallbackText.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerationOptions) Generation
}

// Unavailable builds the fallback result for a failed call.
func Unavailable(err error) Generation {
	return Generation{Text: FallbackText, Status: GenerationUnavailable, Err: err}
}

// Malformed builds the fallback result for an unusable reply.
func Malformed(err error) Generation {
	return Generation{Text: FallbackText, Status: GenerationMalformed, Err: err}
}

// OllamaClient calls the /api/generate endpoint of a local Ollama server.
type OllamaClient struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaClient creates a client with a per-call timeout.
func NewOllamaClient(endpoint, model string, timeout time.Duration) *OllamaClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "phi3:mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewOllamaClientFromConfig builds the client from the generation settings.
func NewOllamaClientFromConfig(cfg GenerationConfig) *OllamaClient {
	return NewOllamaClient(cfg.Endpoint, cfg.Model, cfg.Timeout())
}

// Model returns the model name sent with every request.
func (c *OllamaClient) Model() string {
	return c.model
}

type generateRequest struct {
	Model   string            `json:"model"`
	Prompt  string            `json:"prompt"`
	Stream  bool              `json:"stream"`
	Options GenerationOptions `json:"options"`
}

type generateResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error,omitempty"`
}

// Generate implements Generator with a single attempt.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerationOptions) Generation {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: opts,
	})
	if err != nil {
		return Unavailable(fmt.Errorf("%w: marshal request: %v", ErrGenerationUnavailable, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Unavailable(fmt.Errorf("%w: create request: %v", ErrGenerationUnavailable, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Unavailable(fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Unavailable(fmt.Errorf("%w: status %d: %s", ErrGenerationUnavailable, resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Malformed(fmt.Errorf("%w: decode: %v", ErrMalformedGenerationResponse, err))
	}
	if out.Error != "" {
		return Unavailable(fmt.Errorf("%w: %s", ErrGenerationUnavailable, out.Error))
	}
	if out.Response == nil {
		return Malformed(fmt.Errorf("%w: missing response field", ErrMalformedGenerationResponse))
	}
	return Generation{Text: *out.Response, Status: GenerationOK}
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ErrModelNotInstalled is returned by Check when the server lacks the model.
var ErrModelNotInstalled = errors.New("generation model not installed")

// Check lists the installed models and verifies the configured one is among
// them. Used for start-up diagnostics only.
func (c *OllamaClient) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrGenerationUnavailable, resp.StatusCode)
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("%w: decode tags: %v", ErrMalformedGenerationResponse, err)
	}
	for _, m := range tags.Models {
		if modelMatches(c.model, m.Name) || modelMatches(c.model, m.Model) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModelNotInstalled, c.model)
}

// modelMatches treats "name" and "name:latest" as the same model.
func modelMatches(want, have string) bool {
	if have == "" {
		return false
	}
	if want == have {
		return true
	}
	return !strings.Contains(want, ":") && have == want+":latest"
}
