package detections

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgevision/inference-service/models"
)

// SessionConfig carries the static session parameters.
type SessionConfig struct {
	ModelPath           string
	InputHeight         int
	InputWidth          int
	NumClasses          int
	ConfidenceThreshold float64
}

// Session orchestrates the detection pipeline. The strategy is decided once
// at construction: with a pool the model path runs (preprocess, inference,
// decode), without one every call goes through the color-blob fallback.
// There is no runtime switch between the two.
//
// Counters and the confidence threshold are guarded by a mutex; the
// threshold is snapshotted at the start of each call so a concurrent config
// update cannot produce a torn read mid-request.
type Session struct {
	pool   *BackendPool
	logger *zap.SugaredLogger

	modelPath   string
	inputHeight int
	inputWidth  int
	numClasses  int

	mu                 sync.RWMutex
	threshold          float64
	inferenceCount     int64
	totalInferenceTime time.Duration
}

func NewSession(cfg SessionConfig, pool *BackendPool, logger *zap.SugaredLogger) *Session {
	if cfg.InputHeight <= 0 {
		cfg.InputHeight = DefaultInputHeight
	}
	if cfg.InputWidth <= 0 {
		cfg.InputWidth = DefaultInputWidth
	}
	if cfg.NumClasses <= 0 {
		cfg.NumClasses = NumClasses
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	return &Session{
		pool:        pool,
		logger:      logger,
		modelPath:   cfg.ModelPath,
		inputHeight: cfg.InputHeight,
		inputWidth:  cfg.InputWidth,
		numClasses:  cfg.NumClasses,
		threshold:   cfg.ConfidenceThreshold,
	}
}

// ModelLoaded reports whether the session runs with an inference backend.
func (s *Session) ModelLoaded() bool {
	return s.pool != nil
}

// Detect runs object detection on img. It never returns an error: failures
// anywhere in the pipeline are logged and degrade to an empty result.
// Timing counters are updated on every call, including failed ones, since a
// failed attempt still consumed time.
func (s *Session) Detect(ctx context.Context, img image.Image) []models.Detection {
	start := time.Now()
	threshold := s.ConfidenceThreshold()

	var detections []models.Detection
	var err error
	if s.pool != nil {
		detections, err = s.detectModel(ctx, img, threshold)
	} else {
		detections, err = FallbackDetect(img)
	}

	elapsed := time.Since(start)
	s.mu.Lock()
	s.inferenceCount++
	s.totalInferenceTime += elapsed
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorw("detection failed", "error", err, "elapsed", elapsed)
		return []models.Detection{}
	}

	s.logger.Debugw("inference completed",
		"elapsed", elapsed,
		"detections", len(detections),
	)
	return detections
}

func (s *Session) detectModel(ctx context.Context, img image.Image, threshold float64) ([]models.Detection, error) {
	tensor, tc, err := Preprocess(img, s.inputHeight, s.inputWidth)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	backend, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire backend: %w", err)
	}
	defer s.pool.Release(backend)

	raw, err := runWithRetry(backend, tensor)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	detections, err := DecodeOutput(raw, s.numClasses, tc, bounds.Dx(), bounds.Dy(), threshold)
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return detections, nil
}

// Stats returns a snapshot of the running counters.
func (s *Session) Stats() models.Stats {
	s.mu.RLock()
	count := s.inferenceCount
	total := s.totalInferenceTime
	threshold := s.threshold
	s.mu.RUnlock()

	avgMs := 0.0
	if count > 0 {
		avgMs = total.Seconds() * 1000 / float64(count)
	}

	return models.Stats{
		InferenceCount:         count,
		AverageInferenceTimeMs: avgMs,
		ModelLoaded:            s.pool != nil,
		ModelPath:              s.modelPath,
		InputShape:             [2]int{s.inputHeight, s.inputWidth},
		ConfidenceThreshold:    threshold,
	}
}

// ConfidenceThreshold returns the current threshold.
func (s *Session) ConfidenceThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// SetConfidenceThreshold updates the threshold, rejecting values outside
// [0,1]. In-flight calls keep the snapshot they started with.
func (s *Session) SetConfidenceThreshold(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("confidence threshold %v out of range [0,1]", v)
	}
	s.mu.Lock()
	s.threshold = v
	s.mu.Unlock()
	return nil
}

// Config returns the externally visible configuration.
func (s *Session) Config() models.ConfigSnapshot {
	return models.ConfigSnapshot{
		ConfidenceThreshold: s.ConfidenceThreshold(),
		InputShape:          [2]int{s.inputHeight, s.inputWidth},
		ModelPath:           s.modelPath,
	}
}
