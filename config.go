package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/edgevision/inference-service/detections"
)

// Config is the process configuration. Values come from an optional YAML
// file (CONFIG_FILE) overridden by environment variables; a .env file is
// loaded first when present.
type Config struct {
	Port                int
	Debug               bool
	ModelPath           string
	LibraryPath         string
	PoolSize            int
	ConfidenceThreshold float64
	InputHeight         int
	InputWidth          int
}

type fileConfig struct {
	Port                int     `yaml:"port"`
	Debug               bool    `yaml:"debug"`
	ModelPath           string  `yaml:"model_path"`
	LibraryPath         string  `yaml:"library_path"`
	PoolSize            int     `yaml:"pool_size"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	InputHeight         int     `yaml:"input_height"`
	InputWidth          int     `yaml:"input_width"`
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                3002,
		ModelPath:           "models/yolov5s.onnx",
		PoolSize:            detections.DefaultPoolSize,
		ConfidenceThreshold: detections.DefaultConfidenceThreshold,
		InputHeight:         detections.DefaultInputHeight,
		InputWidth:          detections.DefaultInputWidth,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnvAsInt("PORT", cfg.Port)
	cfg.Debug = getEnvAsBool("DEBUG", cfg.Debug)
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.LibraryPath = getEnv("ONNXRUNTIME_LIB_PATH", cfg.LibraryPath)
	cfg.PoolSize = getEnvAsInt("POOL_SIZE", cfg.PoolSize)
	cfg.ConfidenceThreshold = getEnvAsFloat("CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v out of range [0,1]", cfg.ConfidenceThreshold)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.Debug {
		c.Debug = true
	}
	if fc.ModelPath != "" {
		c.ModelPath = fc.ModelPath
	}
	if fc.LibraryPath != "" {
		c.LibraryPath = fc.LibraryPath
	}
	if fc.PoolSize != 0 {
		c.PoolSize = fc.PoolSize
	}
	if fc.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = fc.ConfidenceThreshold
	}
	if fc.InputHeight != 0 {
		c.InputHeight = fc.InputHeight
	}
	if fc.InputWidth != 0 {
		c.InputWidth = fc.InputWidth
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
