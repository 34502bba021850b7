package detections

import (
	"fmt"
	"sort"
)

type candidate struct {
	box   [4]float32 // x1, y1, x2, y2 in letterbox space
	score float32
	class int
}

// decodeOutput turns a [4+classes, anchors] YOLOv8 output into source
// pixel boxes: best class per anchor, confidence threshold, class-aware NMS.
// Boxes are returned by descending confidence.
func decodeOutput(predictions []float32, layout tensorLayout, lb Letterbox, confThreshold, iouThreshold float32) ([]RawBox, error) {
	n := layout.Anchors
	expectedSize := (4 + layout.NumClasses) * n
	if len(predictions) != expectedSize {
		return nil, fmt.Errorf("unexpected predictions length: got %d, want %d", len(predictions), expectedSize)
	}

	candidates := make([]candidate, 0, 64)
	for i := 0; i < n; i++ {
		classID, score := -1, float32(0)
		for c := 0; c < layout.NumClasses; c++ {
			if s := predictions[(4+c)*n+i]; classID < 0 || s > score {
				classID, score = c, s
			}
		}
		if classID < 0 || score < confThreshold {
			continue
		}

		cx := predictions[i]
		cy := predictions[n+i]
		w := predictions[2*n+i]
		h := predictions[3*n+i]
		candidates = append(candidates, candidate{
			box:   [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			score: score,
			class: classID,
		})
	}

	kept := nonMaxSuppression(candidates, iouThreshold, MaxDetections)

	boxes := make([]RawBox, 0, len(kept))
	for _, c := range kept {
		x1, y1 := lb.ToSource(c.box[0], c.box[1])
		x2, y2 := lb.ToSource(c.box[2], c.box[3])
		boxes = append(boxes, RawBox{
			XYXY:       [4]float32{x1, y1, x2, y2},
			Confidence: c.score,
			Class:      c.class,
		})
	}
	return boxes, nil
}

// nonMaxSuppression keeps the highest scoring boxes, dropping any box that
// overlaps a kept box of the same class by more than iouThreshold.
func nonMaxSuppression(candidates []candidate, iouThreshold float32, limit int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	kept := make([]candidate, 0, len(candidates))
	suppressed := make([]bool, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		if len(kept) == limit {
			break
		}
		for j := i + 1; j < len(candidates); j++ {
			if suppressed[j] || candidates[j].class != candidates[i].class {
				continue
			}
			if calculateIOU(candidates[i].box, candidates[j].box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func calculateIOU(box1, box2 [4]float32) float32 {
	x1 := max(box1[0], box2[0])
	y1 := max(box1[1], box2[1])
	x2 := min(box1[2], box2[2])
	y2 := min(box1[3], box2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0.0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := (box1[2] - box1[0]) * (box1[3] - box1[1])
	area2 := (box2[2] - box2[0]) * (box2[3] - box2[1])
	union := area1 + area2 - intersection
	if union <= 0 {
		return 0.0
	}

	return intersection / union
}
