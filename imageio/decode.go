// Package imageio turns uploaded image payloads into canonical RGB rasters and
// encodes rasters back into JPEG data URLs.
package imageio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels is the largest image area decoded when no limit is
// configured. It is the same ceiling Pillow enforces against decompression
// bombs.
const DefaultMaxPixels = 178956970

// Input is an image payload as received at the API edge: either a
// Base64Image or RawBytes.
type Input interface {
	isInput()
}

// Base64Image is base64 text, optionally prefixed by a data URL header
// such as "data:image/png;base64,".
type Base64Image string

// RawBytes is an encoded image file (JPEG, PNG, ...).
type RawBytes []byte

func (Base64Image) isInput() {}
func (RawBytes) isInput()    {}

// InvalidImageError reports a payload that could not be turned into an image.
type InvalidImageError struct {
	Message string
	Cause   error
}

func (e *InvalidImageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InvalidImageError) Unwrap() error {
	return e.Cause
}

// IsInvalidImage reports whether err is (or wraps) an *InvalidImageError.
func IsInvalidImage(err error) bool {
	var invalid *InvalidImageError
	return errors.As(err, &invalid)
}

// Decode resolves the input to bytes and decodes them into an opaque NRGBA
// image. Alpha is discarded rather than composited. Images whose declared
// width*height exceeds maxPixels are rejected before any pixel buffer is
// allocated; maxPixels <= 0 means DefaultMaxPixels.
func Decode(in Input, maxPixels int64) (*image.NRGBA, error) {
	data, err := Bytes(in)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data, maxPixels)
}

// Bytes returns the encoded image bytes carried by in.
func Bytes(in Input) ([]byte, error) {
	switch v := in.(type) {
	case RawBytes:
		return []byte(v), nil
	case Base64Image:
		data, err := base64.StdEncoding.DecodeString(stripSpace(stripDataURL(string(v))))
		if err != nil {
			return nil, &InvalidImageError{Message: "invalid base64 image data", Cause: err}
		}
		return data, nil
	case nil:
		return nil, &InvalidImageError{Message: "no image data"}
	default:
		return nil, &InvalidImageError{Message: fmt.Sprintf("unsupported input %T", in)}
	}
}

// DecodeBytes decodes an encoded image into the canonical RGB representation.
func DecodeBytes(data []byte, maxPixels int64) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, &InvalidImageError{Message: "empty image data"}
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, &InvalidImageError{Message: fmt.Sprintf("unsupported content type %s", mime.String())}
	}

	if err := checkSize(data, maxPixels); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Message: "failed to decode image", Cause: err}
	}
	return ToRGB(img), nil
}

// checkSize reads only the image header.
func checkSize(data []byte, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return &InvalidImageError{Message: "failed to decode image", Cause: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return &InvalidImageError{
			Message: fmt.Sprintf("image is %dx%d, over the limit of %d pixels", cfg.Width, cfg.Height, maxPixels),
		}
	}
	return nil
}

// ToRGB copies img into a new NRGBA with every alpha value set to 255.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// stripDataURL drops everything up to the first comma of a data URL.
func stripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:image") {
		if idx := strings.IndexByte(s, ','); idx >= 0 {
			return s[idx+1:]
		}
	}
	return s
}

// stripSpace drops ASCII whitespace, which clients insert when they wrap
// long base64 payloads.
func stripSpace(s string) string {
	if strings.IndexAny(s, " \t\n\r\f\v") < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			return -1
		}
		return r
	}, s)
}
