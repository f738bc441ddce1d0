package detections

const (
	DefaultInputWidth  = 640
	DefaultInputHeight = 640
	NumClasses         = 80

	DefaultConfidenceThreshold = 0.5

	// PadFill is the constant gray used for letterbox padding, matching the
	// usual YOLO preprocessing convention.
	PadFill = 114

	RetryAttempts = 3
	RetryDelayMs  = 100

	// Fallback heuristic parameters.
	FallbackLabel   = "red_object"
	FallbackScore   = 0.8
	FallbackMinArea = 500
)
