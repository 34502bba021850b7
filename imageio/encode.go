package imageio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/face-mask-service/models"
)

// JPEGQuality matches the default quality PIL uses when saving JPEGs.
const JPEGQuality = 75

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL encodes img as a JPEG "data:image/jpeg;base64,..." string.
func DataURL(img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return models.DataURLPrefixJPEG + base64.StdEncoding.EncodeToString(data), nil
}
