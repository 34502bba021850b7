package models

import "time"

const (
	ClassWithMask        = "with_mask"
	ClassWithoutMask     = "without_mask"
	ClassMaskIncorrect   = "mask_weared_incorrect"
	DataURLPrefixJPEG    = "data:image/jpeg;base64,"
	DefaultCropPaddingPx = 20
)

// BBox is an axis-aligned box in source image pixels, origin top-left.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

type Stats struct {
	WithMask            int `json:"with_mask"`
	WithoutMask         int `json:"without_mask"`
	MaskWearedIncorrect int `json:"mask_weared_incorrect"`
}

// Face is one cropped detection. ID is the index in the detection list of
// the same call and is not stable across calls.
type Face struct {
	ID         int     `json:"id"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Image      string  `json:"image"`
	BBox       BBox    `json:"bbox"`
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Render      time.Duration
	Encode      time.Duration
	Total       time.Duration
}
