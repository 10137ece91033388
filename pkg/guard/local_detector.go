package guard

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// LocalDetector is an optional ONNX text-classification pipeline that
// runs between the heuristics and the remote analyzer. A confident
// injection label saves a remote call; anything else falls through
// silently. Disabled by default, opt-in via BASTION_ENABLE_LOCAL_DETECTOR.
type LocalDetector struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	ready    bool
}

// LocalDetectorConfig configures the local classifier.
type LocalDetectorConfig struct {
	// ModelPath is the local directory containing model.onnx.
	ModelPath string

	// OnnxLibraryPath points at libonnxruntime.so. Empty falls back to
	// the pure Go backend (slower, no native dependency).
	OnnxLibraryPath string

	// Timeout bounds a single inference call.
	Timeout time.Duration
}

// localDetectorEnabled reports whether the local classifier should be
// initialized at all. Default off so installs without a model stay quiet.
func localDetectorEnabled() bool {
	switch os.Getenv("BASTION_ENABLE_LOCAL_DETECTOR") {
	case "1", "true", "TRUE", "yes", "on":
		return true
	}
	return false
}

// NewLocalDetectorFromEnv builds a detector when enabled and a model
// is present, nil otherwise. Initialization failure degrades to nil
// with a warning rather than blocking startup; the remote analyzer
// still covers stage 2.
func NewLocalDetectorFromEnv() *LocalDetector {
	if !localDetectorEnabled() {
		return nil
	}

	modelPath := os.Getenv("BASTION_DETECTOR_MODEL_PATH")
	if modelPath == "" {
		modelPath = "./models/injection-detector"
	}
	if _, err := os.Stat(filepath.Join(modelPath, "model.onnx")); err != nil {
		log.Printf("local detector disabled: no model at %s", modelPath)
		return nil
	}

	d, err := NewLocalDetector(LocalDetectorConfig{
		ModelPath:       modelPath,
		OnnxLibraryPath: defaultOnnxLibraryPath(),
		Timeout:         10 * time.Second,
	})
	if err != nil {
		log.Printf("local detector disabled (init failed): %v", err)
		return nil
	}
	return d
}

// NewLocalDetector initializes the session and pipeline.
func NewLocalDetector(cfg LocalDetectorConfig) (*LocalDetector, error) {
	session, err := newHugotSession(cfg.OnnxLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: cfg.ModelPath,
		Name:      "injection-detector",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	return &LocalDetector{
		session:  session,
		pipeline: pipeline,
		ready:    true,
	}, nil
}

func newHugotSession(onnxLibraryPath string) (*hugot.Session, error) {
	if onnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(onnxLibraryPath))
		if err == nil {
			return session, nil
		}
		log.Printf("ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}
	return hugot.NewGoSession()
}

func defaultOnnxLibraryPath() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// Ready reports whether the detector can classify.
func (d *LocalDetector) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// Classify labels one message. Returns the model's label and its
// confidence; the caller decides the threshold.
func (d *LocalDetector) Classify(ctx context.Context, text string) (label string, confidence float64, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.ready || d.pipeline == nil {
		return "", 0, fmt.Errorf("local detector not ready")
	}

	result, err := d.pipeline.RunPipeline([]string{text})
	if err != nil {
		return "", 0, fmt.Errorf("inference: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return "", 0, fmt.Errorf("no classification output")
	}

	out := result.ClassificationOutputs[0][0]
	return out.Label, float64(out.Score), nil
}

// IsInjectionLabel maps model label conventions onto a single boolean.
// Sentinel says "jailbreak", the DeBERTa and ModernBERT checkpoints
// say "INJECTION", generic exports say "LABEL_1".
func IsInjectionLabel(label string) bool {
	switch label {
	case "jailbreak", "INJECTION", "malicious", "LABEL_1":
		return true
	}
	return false
}

// Close releases the underlying session.
func (d *LocalDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ready = false
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}
