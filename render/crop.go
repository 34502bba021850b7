package render

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/face-mask-service/imageio"
	"github.com/Tutortoise/face-mask-service/models"
)

// PaddedRegion grows the box by padding on every side and clips it to the
// image bounds. A region that collapses to nothing is widened to 1x1 so every
// detection yields a crop.
func PaddedRegion(box models.BBox, padding int, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		box.X-padding,
		box.Y-padding,
		box.X+box.Width+padding,
		box.Y+box.Height+padding,
	).Intersect(bounds)
	if !r.Empty() || bounds.Empty() {
		return r
	}

	x := clampInt(box.X, bounds.Min.X, bounds.Max.X-1)
	y := clampInt(box.Y, bounds.Min.Y, bounds.Max.Y-1)
	return image.Rect(x, y, x+1, y+1)
}

// Crop cuts the padded region of a detection out of img.
func Crop(img image.Image, d models.Detection, padding int) *image.NRGBA {
	return imaging.Crop(img, PaddedRegion(d.BBox, padding, img.Bounds()))
}

// CropFaces returns one JPEG crop per detection, in detection order, with IDs
// counting from zero.
func CropFaces(img image.Image, detections []models.Detection, padding int) ([]models.Face, error) {
	faces := make([]models.Face, 0, len(detections))
	for i, d := range detections {
		dataURL, err := imageio.DataURL(Crop(img, d, padding))
		if err != nil {
			return nil, fmt.Errorf("failed to encode face %d: %w", i, err)
		}
		faces = append(faces, models.Face{
			ID:         i,
			Class:      d.Class,
			Confidence: d.Confidence,
			Image:      dataURL,
			BBox:       d.BBox,
		})
	}
	return faces, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
