package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/edgevision/inference-service/detections"
)

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// initBackendPool brings up the ONNX runtime and a pool of model sessions.
// Any failure (missing shared library, missing model file, session errors)
// returns an error so the caller can select fallback mode.
func initBackendPool(cfg *Config, logger *zap.SugaredLogger) (*detections.BackendPool, func(), error) {
	libPath, err := resolveSharedLibrary(cfg.LibraryPath)
	if err != nil {
		return nil, nil, err
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, nil, fmt.Errorf("initialize onnx environment: %w", err)
	}

	factory := func() (detections.Backend, error) {
		return detections.NewONNXBackend(cfg.ModelPath, cfg.InputHeight, cfg.InputWidth, detections.NumClasses)
	}

	pool, err := detections.NewBackendPool(factory, cfg.PoolSize)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, nil, err
	}

	logger.Infow("model loaded",
		"model_path", cfg.ModelPath,
		"library_path", libPath,
		"pool_size", cfg.PoolSize,
	)

	cleanup := func() {
		pool.Destroy()
		ort.DestroyEnvironment()
	}
	return pool, cleanup, nil
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Backend unavailability is not an error: the process serves heuristic
	// detections for its whole lifetime instead.
	pool, cleanup, err := initBackendPool(cfg, logger)
	if err != nil {
		logger.Warnw("no model available, using fallback detection", "reason", err)
		pool = nil
	} else {
		defer cleanup()
	}

	session := detections.NewSession(detections.SessionConfig{
		ModelPath:           cfg.ModelPath,
		InputHeight:         cfg.InputHeight,
		InputWidth:          cfg.InputWidth,
		NumClasses:          detections.NumClasses,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, pool, logger)

	state := &AppState{
		Session: session,
		Pool:    pool,
		Logger:  logger,
	}

	srv := &http.Server{
		Handler:      newRouter(state),
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("starting inference server",
			"addr", srv.Addr,
			"model_loaded", session.ModelLoaded(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
}
