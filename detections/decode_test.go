package detections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgevision/inference-service/models"
)

// rawRow builds one [cx, cy, w, h, objConf, classScores...] candidate row.
func rawRow(numClasses int, cx, cy, w, h, objConf float32, classID int, classScore float32) []float32 {
	row := make([]float32, 5+numClasses)
	row[0], row[1], row[2], row[3], row[4] = cx, cy, w, h, objConf
	row[5+classID] = classScore
	return row
}

func TestDecodeRoundTrip(t *testing.T) {
	// 640x480 image letterboxed into 640x640: scale 1, pad (0, 80). A box
	// centered at (320, 240) in the original lands at (320, 320) in model
	// space and must map back exactly.
	tc := models.TransformContext{Scale: 1.0, PadX: 0, PadY: 80}
	raw := rawRow(NumClasses, 320, 320, 100, 50, 0.9, 2, 0.95)

	dets, err := DecodeOutput(raw, NumClasses, tc, 640, 480, 0.5)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.Equal(t, "car", d.Label)
	assert.InDelta(t, 0.9*0.95, d.Score, 1e-6)
	assert.InDelta(t, (320.0-50)/640, d.XMin, 1e-6)
	assert.InDelta(t, (240.0-25)/480, d.YMin, 1e-6)
	assert.InDelta(t, (320.0+50)/640, d.XMax, 1e-6)
	assert.InDelta(t, (240.0+25)/480, d.YMax, 1e-6)
}

func TestDecodeScaledRoundTrip(t *testing.T) {
	// 320x240 image into 640x640: scale 2, pad (0, 80).
	tc := models.TransformContext{Scale: 2.0, PadX: 0, PadY: 80}
	// Original-space box center (100, 60), size (40, 20) -> model space
	// center (200, 200), size (80, 40).
	raw := rawRow(NumClasses, 200, 200, 80, 40, 0.9, 0, 0.9)

	dets, err := DecodeOutput(raw, NumClasses, tc, 320, 240, 0.5)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.InDelta(t, 80.0/320, d.XMin, 1e-6)
	assert.InDelta(t, 50.0/240, d.YMin, 1e-6)
	assert.InDelta(t, 120.0/320, d.XMax, 1e-6)
	assert.InDelta(t, 70.0/240, d.YMax, 1e-6)
}

func TestDecodeTwoStageFilter(t *testing.T) {
	tc := models.TransformContext{Scale: 1.0}

	// High object confidence but weak class score: 0.9 * 0.5 = 0.45 fails
	// the second stage at threshold 0.5.
	raw := rawRow(NumClasses, 320, 320, 50, 50, 0.9, 0, 0.5)
	dets, err := DecodeOutput(raw, NumClasses, tc, 640, 640, 0.5)
	require.NoError(t, err)
	assert.Empty(t, dets)

	// Object confidence below threshold never reaches the class stage.
	raw = rawRow(NumClasses, 320, 320, 50, 50, 0.4, 0, 1.0)
	dets, err = DecodeOutput(raw, NumClasses, tc, 640, 640, 0.5)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestDecodeEmptyIsNotError(t *testing.T) {
	tc := models.TransformContext{Scale: 1.0}
	raw := rawRow(NumClasses, 100, 100, 10, 10, 0.01, 0, 0.01)

	dets, err := DecodeOutput(raw, NumClasses, tc, 640, 640, 0.5)
	require.NoError(t, err)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}

func TestDecodeThresholdMonotonicity(t *testing.T) {
	tc := models.TransformContext{Scale: 1.0}
	var raw []float32
	raw = append(raw, rawRow(NumClasses, 100, 100, 20, 20, 0.95, 0, 0.95)...)
	raw = append(raw, rawRow(NumClasses, 200, 200, 20, 20, 0.7, 1, 0.7)...)
	raw = append(raw, rawRow(NumClasses, 300, 300, 20, 20, 0.4, 2, 0.4)...)

	prev := -1
	for _, threshold := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		dets, err := DecodeOutput(raw, NumClasses, tc, 640, 640, threshold)
		require.NoError(t, err)
		if prev >= 0 {
			assert.LessOrEqual(t, len(dets), prev, "threshold %v", threshold)
		}
		prev = len(dets)
	}
}

func TestDecodeClamping(t *testing.T) {
	tc := models.TransformContext{Scale: 1.0}
	// Box hanging off the top-left corner of the image.
	raw := rawRow(NumClasses, 5, 5, 200, 200, 0.9, 0, 0.9)

	dets, err := DecodeOutput(raw, NumClasses, tc, 640, 640, 0.5)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.GreaterOrEqual(t, d.XMin, 0.0)
	assert.GreaterOrEqual(t, d.YMin, 0.0)
	assert.LessOrEqual(t, d.XMax, 1.0)
	assert.LessOrEqual(t, d.YMax, 1.0)
	assert.LessOrEqual(t, d.XMin, d.XMax)
	assert.LessOrEqual(t, d.YMin, d.YMax)
}

func TestDecodeOrderPreserved(t *testing.T) {
	tc := models.TransformContext{Scale: 1.0}
	// The second row scores higher but must stay second: output order is
	// discovery order, not score order.
	var raw []float32
	raw = append(raw, rawRow(NumClasses, 100, 100, 20, 20, 0.8, 0, 0.8)...)
	raw = append(raw, rawRow(NumClasses, 200, 200, 20, 20, 0.99, 1, 0.99)...)

	dets, err := DecodeOutput(raw, NumClasses, tc, 640, 640, 0.5)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, "person", dets[0].Label)
	assert.Equal(t, "bicycle", dets[1].Label)
	assert.Greater(t, dets[1].Score, dets[0].Score)
}

func TestDecodeShapeError(t *testing.T) {
	tc := models.TransformContext{Scale: 1.0}

	_, err := DecodeOutput(make([]float32, 84), NumClasses, tc, 640, 640, 0.5)
	assert.ErrorIs(t, err, ErrOutputShape)

	_, err = DecodeOutput(nil, NumClasses, tc, 640, 640, 0.5)
	assert.ErrorIs(t, err, ErrOutputShape)
}

func TestClassLabel(t *testing.T) {
	assert.Equal(t, "person", ClassLabel(0))
	assert.Equal(t, "toothbrush", ClassLabel(79))
	assert.Equal(t, "class_80", ClassLabel(80))
	assert.Equal(t, "class_-1", ClassLabel(-1))
}
