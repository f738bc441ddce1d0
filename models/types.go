package models

// Detection is the public output unit of the pipeline. Coordinates are
// normalized to [0,1] relative to the original image and clamped, so
// XMin <= XMax and YMin <= YMax always hold.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	XMin  float64 `json:"xmin"`
	YMin  float64 `json:"ymin"`
	XMax  float64 `json:"xmax"`
	YMax  float64 `json:"ymax"`
}

// TransformContext captures the letterbox mapping from model space back to
// original-image pixel space. Created by the preprocessor, consumed by the
// decoder for the matching call, then discarded.
type TransformContext struct {
	Scale float64
	PadX  int
	PadY  int
}

// Stats is a point-in-time snapshot of the session counters.
type Stats struct {
	InferenceCount         int64   `json:"inference_count"`
	AverageInferenceTimeMs float64 `json:"average_inference_time_ms"`
	ModelLoaded            bool    `json:"model_loaded"`
	ModelPath              string  `json:"model_path"`
	InputShape             [2]int  `json:"input_shape"`
	ConfidenceThreshold    float64 `json:"confidence_threshold"`
}

// ConfigSnapshot is the externally visible session configuration.
type ConfigSnapshot struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	InputShape          [2]int  `json:"input_shape"`
	ModelPath           string  `json:"model_path"`
}
