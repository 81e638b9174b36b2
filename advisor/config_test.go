package advisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "float_input", cfg.Model.InputName)
	assert.Equal(t, "probabilities", cfg.Model.OutputName)
	assert.Equal(t, "http://localhost:11434", cfg.Generation.Endpoint)
	assert.Equal(t, "phi3:mini", cfg.Generation.Model)
	assert.Equal(t, GenerationOptions{MaxOutputTokens: 150, Temperature: 0.2}, cfg.Generation.Options())
	assert.Equal(t, 60*time.Second, cfg.Generation.Timeout())
	assert.False(t, cfg.ParallelExplanations)
	assert.False(t, cfg.CacheExplanations)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Generation, cfg.Generation)
}

func TestSaveLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Model.ModelPath = "/opt/models/crop.onnx"
	cfg.ParallelExplanations = true
	cfg.Generation.Model = "llama3"

	require.NoError(t, SaveConfig(path, cfg))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation":{"model":"phi3:mini","timeoutSeconds":30}}`), 0o644))
	t.Setenv("CROP_LLM_MODEL", "mistral")
	t.Setenv("CROP_PARALLEL_EXPLANATIONS", "true")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Generation.Model)
	assert.Equal(t, 30, cfg.Generation.TimeoutSeconds)
	assert.True(t, cfg.ParallelExplanations)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation":{"temperature":5},"logLevel":"loud"}`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateMeasurements(t *testing.T) {
	assert.NoError(t, ValidateMeasurements(DefaultMeasurements()))
	m := DefaultMeasurements()
	m.PH = 15
	assert.Error(t, ValidateMeasurements(m))
	assert.NoError(t, ValidateMeasurements(m.Clamp()))
}

func TestLoadConfigAppliesColumnCandidates(t *testing.T) {
	t.Cleanup(func() { SetColumnCandidates(ColumnCandidates{}) })
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"columns":{"fields":{"ph":["acidity"]}}}`), 0o644))

	_, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"acidity"}, getColumnCandidates().Fields["ph"])
	assert.Equal(t, DefaultColumnCandidates().Fields["rainfall"], getColumnCandidates().Fields["rainfall"])
}

func TestLoadConfigKeepsExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation":{"temperature":0},"server":{"sessionTtlSeconds":0}}`), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Zero(t, cfg.Generation.Temperature)
	assert.Zero(t, cfg.Server.SessionTTLSeconds)
	assert.Equal(t, 150, cfg.Generation.MaxOutputTokens)

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	t.Setenv("CROP_LLM_TEMPERATURE", "0")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Generation.Temperature)
	assert.Equal(t, 3600, cfg.Server.SessionTTLSeconds)

	cfg.ApplyDefaults()
	assert.Zero(t, cfg.Generation.Temperature)
}
