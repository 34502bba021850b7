package detections

import "time"

const (
	DefaultInputSize     = 640
	DefaultConfThreshold = 0.25
	DefaultIouThreshold  = 0.7
	MaxDetections        = 300
	LetterboxFill        = 114

	// DefaultPoolSize Pool configuration
	DefaultPoolSize = 2
	AcquireTimeout  = 5 * time.Second
)
