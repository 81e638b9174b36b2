package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const defaultConfigFile = "config.json"

// ModelConfig locates the ONNX crop model.
type ModelConfig struct {
	OrtLibrary string `json:"ortLibrary" env:"CROP_ORT_LIBRARY"`
	ModelPath  string `json:"modelPath" env:"CROP_MODEL_PATH" validate:"required"`
	LabelsPath string `json:"labelsPath" env:"CROP_LABELS_PATH"`
	InputName  string `json:"inputName" env:"CROP_MODEL_INPUT" validate:"required"`
	OutputName string `json:"outputName" env:"CROP_MODEL_OUTPUT" validate:"required"`
}

// GenerationConfig configures the text generation service.
type GenerationConfig struct {
	Endpoint        string  `json:"endpoint" env:"CROP_LLM_ENDPOINT" validate:"required,url"`
	Model           string  `json:"model" env:"CROP_LLM_MODEL" validate:"required"`
	MaxOutputTokens int     `json:"maxOutputTokens" env:"CROP_LLM_MAX_TOKENS" validate:"gte=1"`
	Temperature     float64 `json:"temperature" env:"CROP_LLM_TEMPERATURE" validate:"gte=0,lte=2"`
	TimeoutSeconds  int     `json:"timeoutSeconds" env:"CROP_LLM_TIMEOUT_SECONDS" validate:"gte=1"`
}

// Options returns the sampling parameters sent with every prompt.
func (g GenerationConfig) Options() GenerationOptions {
	return GenerationOptions{MaxOutputTokens: g.MaxOutputTokens, Temperature: g.Temperature}
}

// Timeout returns the per-call deadline.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address           string `json:"address" env:"CROP_HTTP_ADDRESS"`
	SessionTTLSeconds int    `json:"sessionTtlSeconds" env:"CROP_SESSION_TTL_SECONDS" validate:"gte=0"`
}

// Config aggregates runtime settings persisted to config.json. Environment
// variables override file values.
type Config struct {
	Model                ModelConfig      `json:"model"`
	Generation           GenerationConfig `json:"generation"`
	Server               ServerConfig     `json:"server"`
	ParallelExplanations bool             `json:"parallelExplanations" env:"CROP_PARALLEL_EXPLANATIONS"`
	CacheExplanations    bool             `json:"cacheExplanations" env:"CROP_CACHE_EXPLANATIONS"`
	CacheTTLSeconds      int              `json:"cacheTtlSeconds" env:"CROP_CACHE_TTL_SECONDS" validate:"gte=0"`
	ImagesDir            string           `json:"imagesDir" env:"CROP_IMAGES_DIR"`
	LogLevel             string           `json:"logLevel" env:"CROP_LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`
	// Columns overrides the header names recognised in batch files.
	Columns *ColumnCandidates `json:"columns,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
// LoadConfig starts from it, so keys missing from the file keep these values.
func DefaultConfig() Config {
	cfg := Config{
		Generation: GenerationConfig{Temperature: 0.2},
		Server:     ServerConfig{SessionTTLSeconds: 3600},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults populates zero values with sensible defaults. Temperature and
// the session TTL are left alone: zero is a valid setting for both.
func (c *Config) ApplyDefaults() {
	if c.Model.ModelPath == "" {
		c.Model.ModelPath = "./models/crop_model.onnx"
	}
	if c.Model.InputName == "" {
		c.Model.InputName = "float_input"
	}
	if c.Model.OutputName == "" {
		c.Model.OutputName = "probabilities"
	}
	if c.Generation.Endpoint == "" {
		c.Generation.Endpoint = "http://localhost:11434"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "phi3:mini"
	}
	if c.Generation.MaxOutputTokens <= 0 {
		c.Generation.MaxOutputTokens = 150
	}
	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = 60
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 600
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "images"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and required fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateMeasurements reports readings outside the form ranges.
func ValidateMeasurements(m Measurements) error {
	return validate.Struct(m)
}

// LoadConfig loads configuration from the given path or the default config.json,
// then applies .env and environment overrides.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Columns != nil {
		SetColumnCandidates(*cfg.Columns)
	}
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
