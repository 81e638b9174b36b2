package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerateSendsRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"phi3:mini","response":"- Rice loves water.\n- It grows well here.","done":true}`))
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL+"/", "phi3:mini", time.Second)
	res := client.Generate(context.Background(), "hello", GenerationOptions{MaxOutputTokens: 150, Temperature: 0.2})

	assert.Equal(t, GenerationOK, res.Status)
	assert.False(t, res.Fallback())
	assert.NoError(t, res.Err)
	assert.Equal(t, "- Rice loves water.\n- It grows well here.", res.Text)
	assert.Equal(t, "phi3:mini", got.Model)
	assert.Equal(t, "hello", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 150, got.Options.MaxOutputTokens)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
}

func TestOllamaGenerateRequestBodyShape(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	NewOllamaClient(srv.URL, "phi3:mini", time.Second).
		Generate(context.Background(), "p", GenerationOptions{MaxOutputTokens: 150, Temperature: 0.2})

	assert.Equal(t, false, raw["stream"])
	opts, ok := raw["options"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 150, opts["num_predict"])
	assert.EqualValues(t, 0.2, opts["temperature"])
}

func TestOllamaGenerateFallbacks(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		want    GenerationStatus
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `boom`, GenerationUnavailable, ErrGenerationUnavailable},
		{"missing field", http.StatusOK, `{"done":true}`, GenerationMalformed, ErrMalformedGenerationResponse},
		{"not json", http.StatusOK, `<html>`, GenerationMalformed, ErrMalformedGenerationResponse},
		{"error field", http.StatusOK, `{"error":"model not found"}`, GenerationUnavailable, ErrGenerationUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res := NewOllamaClient(srv.URL, "phi3:mini", time.Second).
				Generate(context.Background(), "p", GenerationOptions{})

			assert.Equal(t, tc.want, res.Status)
			assert.True(t, res.Fallback())
			assert.Equal(t, FallbackText, res.Text)
			assert.ErrorIs(t, res.Err, tc.wantErr)
		})
	}
}

func TestOllamaGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewOllamaClient(url, "phi3:mini", time.Second).Generate(context.Background(), "p", GenerationOptions{})

	assert.Equal(t, GenerationUnavailable, res.Status)
	assert.Equal(t, FallbackText, res.Text)
	assert.ErrorIs(t, res.Err, ErrGenerationUnavailable)
}

func TestOllamaGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	res := NewOllamaClient(srv.URL, "phi3:mini", 50*time.Millisecond).
		Generate(context.Background(), "p", GenerationOptions{})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, GenerationUnavailable, res.Status)
	assert.Equal(t, FallbackText, res.Text)
}

func TestOllamaCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"phi3:mini","model":"phi3:mini"},{"name":"llama3:latest"}]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewOllamaClient(srv.URL, "phi3:mini", time.Second).Check(context.Background()))
	assert.NoError(t, NewOllamaClient(srv.URL, "llama3", time.Second).Check(context.Background()))
	assert.ErrorIs(t, NewOllamaClient(srv.URL, "mistral", time.Second).Check(context.Background()), ErrModelNotInstalled)
}
