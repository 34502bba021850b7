package detections

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/Tutortoise/face-mask-service/models"
)

var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrPoolClosed       = errors.New("pool is closed")
)

// RawBox is one candidate returned by a model, in source image pixels.
type RawBox struct {
	XYXY       [4]float32
	Confidence float32
	Class      int
}

// RawResult holds the boxes predicted for one image of an inference call.
type RawResult struct {
	Boxes []RawBox
}

type ClassNamer interface {
	ClassName(id int) (string, bool)
}

// Model is a loaded detector. Implementations must be safe for concurrent use.
type Model interface {
	ClassNamer

	// Infer runs the detector on img and returns one result per input image.
	// timings may be nil.
	Infer(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]RawResult, error)
	Path() string
	Metrics() PoolMetrics
	Close() error
}

// Loader opens the model stored at path.
type Loader func(path string) (Model, error)

// InferenceError wraps failures raised while running or post-processing a model.
type InferenceError struct {
	Message string
	Cause   error
}

func (e *InferenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}
