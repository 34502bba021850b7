package models

// CountStats tallies detections per known mask class. Unknown classes are not counted.
func CountStats(detections []Detection) Stats {
	var s Stats
	for _, d := range detections {
		switch d.Class {
		case ClassWithMask:
			s.WithMask++
		case ClassWithoutMask:
			s.WithoutMask++
		case ClassMaskIncorrect:
			s.MaskWearedIncorrect++
		}
	}
	return s
}
