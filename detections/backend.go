package detections

import (
	"fmt"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend maps a preprocessed input tensor to the raw output values of a
// detection model. Implementations are not safe for concurrent use; callers
// go through a BackendPool.
type Backend interface {
	Run(input []float32) ([]float32, error)
	Close() error
}

type onnxBackend struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// predictionRows returns the number of anchor rows a YOLOv5-style head
// produces for a given input size (three strides, three anchors each).
func predictionRows(h, w int) int64 {
	return int64(3 * ((h/8)*(w/8) + (h/16)*(w/16) + (h/32)*(w/32)))
}

// NewONNXBackend creates a fixed-shape ONNX Runtime session for a YOLOv5
// export with input "images" [1,3,h,w] and output "output0" [1,N,5+classes].
func NewONNXBackend(modelPath string, inputH, inputW, numClasses int) (Backend, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	outputShape := ort.NewShape(1, predictionRows(inputH, inputW), int64(5+numClasses))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &onnxBackend{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

func (b *onnxBackend) Run(input []float32) ([]float32, error) {
	data := b.input.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input tensor size mismatch: got %d, want %d", len(input), len(data))
	}
	copy(data, input)

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	// Copy out so the result survives the backend being reused.
	out := b.output.GetData()
	raw := make([]float32, len(out))
	copy(raw, out)
	return raw, nil
}

func (b *onnxBackend) Close() error {
	if b.session != nil {
		b.session.Destroy()
	}
	if b.input != nil {
		b.input.Destroy()
	}
	if b.output != nil {
		b.output.Destroy()
	}
	return nil
}

// runWithRetry retries transient backend failures with a linear backoff.
func runWithRetry(backend Backend, input []float32) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= RetryAttempts; attempt++ {
		raw, err := backend.Run(input)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if attempt < RetryAttempts {
			time.Sleep(time.Duration(attempt) * RetryDelayMs * time.Millisecond)
		}
	}
	return nil, lastErr
}
