package detections

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imageWithRect paints a filled rectangle on a white canvas.
func imageWithRect(w, h int, rect image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := solidImage(w, h, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestFallbackRedSquare(t *testing.T) {
	// A 30x30 pure-red square (900 px) passes the minimum-area filter.
	img := imageWithRect(100, 100, image.Rect(20, 20, 50, 50), color.NRGBA{R: 255, A: 255})

	dets, err := FallbackDetect(img)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.Equal(t, FallbackLabel, d.Label)
	assert.Equal(t, FallbackScore, d.Score)
	assert.InDelta(t, 0.2, d.XMin, 1e-9)
	assert.InDelta(t, 0.2, d.YMin, 1e-9)
	assert.InDelta(t, 0.5, d.XMax, 1e-9)
	assert.InDelta(t, 0.5, d.YMax, 1e-9)
}

func TestFallbackDeterministic(t *testing.T) {
	img := imageWithRect(120, 90, image.Rect(10, 10, 60, 40), color.NRGBA{R: 230, G: 10, B: 10, A: 255})

	first, err := FallbackDetect(img)
	require.NoError(t, err)
	second, err := FallbackDetect(img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFallbackWrapAroundHue(t *testing.T) {
	// Red with a blue tint sits near 355 degrees, inside the upper band.
	img := imageWithRect(100, 100, image.Rect(0, 0, 50, 50), color.NRGBA{R: 255, B: 20, A: 255})

	dets, err := FallbackDetect(img)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, FallbackLabel, dets[0].Label)
}

func TestFallbackIgnoresSmallBlobs(t *testing.T) {
	// 10x10 = 100 px, below the 500 px area floor.
	img := imageWithRect(100, 100, image.Rect(0, 0, 10, 10), color.NRGBA{R: 255, A: 255})

	dets, err := FallbackDetect(img)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestFallbackIgnoresOtherHues(t *testing.T) {
	img := imageWithRect(100, 100, image.Rect(10, 10, 90, 90), color.NRGBA{B: 255, A: 255})

	dets, err := FallbackDetect(img)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestFallbackSeparateComponents(t *testing.T) {
	img := imageWithRect(200, 100, image.Rect(10, 10, 60, 60), color.NRGBA{R: 255, A: 255})
	for y := 10; y < 60; y++ {
		for x := 120; x < 170; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	dets, err := FallbackDetect(img)
	require.NoError(t, err)
	assert.Len(t, dets, 2)
}

func TestFallbackZeroArea(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	_, err := FallbackDetect(img)
	assert.ErrorIs(t, err, ErrEmptyImage)
}
