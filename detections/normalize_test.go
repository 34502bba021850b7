package detections

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Tutortoise/face-mask-service/models"
)

var maskNames = ClassNames{0: models.ClassWithMask, 1: models.ClassWithoutMask, 2: models.ClassMaskIncorrect}

func TestNormalize_Empty(t *testing.T) {
	log, _ := logtest.NewNullLogger()

	got := Normalize(nil, 100, 100, maskNames, log)
	require.NotNil(t, got)
	require.Empty(t, got)

	got = Normalize([]RawResult{{}}, 100, 100, maskNames, log)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestNormalize_PreservesOrderAndCount(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	results := []RawResult{{Boxes: []RawBox{
		{XYXY: [4]float32{10.7, 20.2, 50.9, 80.1}, Confidence: 0.4, Class: 1},
		{XYXY: [4]float32{0, 0, 30, 30}, Confidence: 0.9, Class: 0},
		{XYXY: [4]float32{100, 100, 110.5, 120}, Confidence: 0.6, Class: 2},
	}}}

	got := Normalize(results, 200, 200, maskNames, log)
	require.Len(t, got, 3)
	require.Equal(t, models.Detection{
		Class:      models.ClassWithoutMask,
		Confidence: float64(float32(0.4)),
		BBox:       models.BBox{X: 10, Y: 20, Width: 40, Height: 59},
	}, got[0])
	require.Equal(t, models.ClassWithMask, got[1].Class)
	require.Equal(t, models.ClassMaskIncorrect, got[2].Class)
	require.Equal(t, models.BBox{X: 100, Y: 100, Width: 10, Height: 20}, got[2].BBox)
}

func TestNormalize_IgnoresResultsBeyondFirst(t *testing.T) {
	results := []RawResult{
		{Boxes: []RawBox{{XYXY: [4]float32{1, 1, 2, 2}, Class: 0}}},
		{Boxes: []RawBox{{XYXY: [4]float32{1, 1, 2, 2}, Class: 0}, {XYXY: [4]float32{3, 3, 4, 4}, Class: 1}}},
	}

	got := Normalize(results, 10, 10, maskNames, nil)
	require.Len(t, got, 1)
}

func TestNormalize_ClassFallbackIsLogged(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	results := []RawResult{{Boxes: []RawBox{
		{XYXY: [4]float32{0, 0, 5, 5}, Class: 7},
		{XYXY: [4]float32{0, 0, 5, 5}, Class: 0},
	}}}

	got := Normalize(results, 10, 10, maskNames, log)
	require.Equal(t, "class_7", got[0].Class)
	require.Equal(t, models.ClassWithMask, got[1].Class)
	require.Len(t, hook.AllEntries(), 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	got = Normalize(results, 10, 10, nil, log)
	require.Equal(t, "class_0", got[1].Class)
}

func TestNormalize_ClampsNegativeCoordinates(t *testing.T) {
	results := []RawResult{{Boxes: []RawBox{{XYXY: [4]float32{-3.5, -1, 10, 10}, Class: 0}}}}

	got := Normalize(results, 20, 20, maskNames, nil)
	require.Equal(t, 0, got[0].BBox.X)
	require.Equal(t, 0, got[0].BBox.Y)
	require.Equal(t, 13, got[0].BBox.Width)
}
