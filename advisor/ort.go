package advisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// classesMetadataKey is the custom metadata entry holding comma separated
// class labels when no labels file is configured.
const classesMetadataKey = "classes"

// OrtClassifier runs an ONNX export of the crop model through onnxruntime.
type OrtClassifier struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	labels    []string
	cfg       ModelConfig
	ownsEnv   bool
	nFeatures int
}

// NewOrtClassifier loads the model once. Every failure wraps ErrModelUnavailable.
// The model path and a configured labels file are checked before onnxruntime
// is started.
func NewOrtClassifier(cfg ModelConfig) (*OrtClassifier, error) {
	if err := checkModelFile(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	var labels []string
	if cfg.LabelsPath != "" {
		parsed, err := loadLabelFile(cfg.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		labels = parsed
	}

	ownsEnv := false
	if !ort.IsInitialized() {
		if cfg.OrtLibrary != "" {
			ort.SetSharedLibraryPath(cfg.OrtLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: init onnxruntime: %v", ErrModelUnavailable, err)
		}
		ownsEnv = true
	}
	c := &OrtClassifier{cfg: cfg, ownsEnv: ownsEnv, nFeatures: len(Fields)}

	if labels == nil {
		meta, err := metadataLabels(cfg.ModelPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		labels = meta
	}
	c.labels = labels

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: open session: %v", ErrModelUnavailable, err)
	}
	c.session = session
	return c, nil
}

func checkModelFile(path string) error {
	if path == "" {
		return errors.New("model path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func loadLabelFile(path string) ([]string, error) {
	labels, err := ParseLabelFile(path)
	if err != nil {
		return nil, err
	}
	return labels, checkDistinct(labels)
}

// metadataLabels reads the class list stored in the model's custom metadata.
func metadataLabels(modelPath string) ([]string, error) {
	meta, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	defer meta.Destroy()
	raw, ok, err := meta.LookupCustomMetadataMap(classesMetadataKey)
	if err != nil {
		return nil, fmt.Errorf("read %q metadata: %w", classesMetadataKey, err)
	}
	if !ok {
		return nil, fmt.Errorf("model has no %q metadata and no labels file is configured", classesMetadataKey)
	}
	labels := ParseLabels(raw)
	if len(labels) == 0 {
		return nil, errNoLabels
	}
	return labels, checkDistinct(labels)
}

// Labels implements Classifier.
func (c *OrtClassifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Predict implements Classifier.
func (c *OrtClassifier) Predict(ctx context.Context, m Measurements) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if c == nil || c.session == nil {
		return Prediction{}, ErrModelUnavailable
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(c.nFeatures)), m.Features())
	if err != nil {
		return Prediction{}, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(c.labels))))
	if err != nil {
		return Prediction{}, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	c.mu.Lock()
	err = c.session.Run([]ort.Value{input}, []ort.Value{output})
	c.mu.Unlock()
	if err != nil {
		return Prediction{}, fmt.Errorf("run model: %w", err)
	}

	raw := output.GetData()
	if len(raw) != len(c.labels) {
		return Prediction{}, fmt.Errorf("model returned %d probabilities for %d labels", len(raw), len(c.labels))
	}
	probs := make([]float64, len(raw))
	for i, p := range raw {
		probs[i] = float64(p)
	}
	return Prediction{Labels: c.Labels(), Probabilities: probs}, nil
}

// Close releases the session and, when this classifier started it, the
// onnxruntime environment.
func (c *OrtClassifier) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
		c.session = nil
	}
	if c.ownsEnv {
		errs = append(errs, ort.DestroyEnvironment())
		c.ownsEnv = false
	}
	return errors.Join(errs...)
}
