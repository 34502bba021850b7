package detections

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/face-mask-service/models"
)

// Normalize converts the first result of an inference call into detection
// records, one per box and in model order. Boxes are already in absolute
// pixels of the width x height source image, so nothing is rescaled.
// namer may be nil, in which case every class gets a synthesized name.
func Normalize(results []RawResult, width, height int, namer ClassNamer, log logrus.FieldLogger) []models.Detection {
	detections := make([]models.Detection, 0)
	if len(results) == 0 {
		return detections
	}

	result := results[0]
	for _, box := range result.Boxes {
		x1, y1, x2, y2 := box.XYXY[0], box.XYXY[1], box.XYXY[2], box.XYXY[3]
		detections = append(detections, models.Detection{
			Class:      className(namer, box.Class, log),
			Confidence: float64(box.Confidence),
			BBox: models.BBox{
				X:      nonNegative(int(x1)),
				Y:      nonNegative(int(y1)),
				Width:  nonNegative(int(x2 - x1)),
				Height: nonNegative(int(y2 - y1)),
			},
		})
	}

	return detections
}

func className(namer ClassNamer, id int, log logrus.FieldLogger) string {
	if namer != nil {
		if name, ok := namer.ClassName(id); ok {
			return name
		}
	}

	fallback := fmt.Sprintf("class_%d", id)
	if log != nil {
		log.WithField("class_id", id).Warnf("No class name for index %d, using %s", id, fallback)
	}
	return fallback
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
