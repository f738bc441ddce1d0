package detections

import (
	"errors"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/edgevision/inference-service/models"
)

// ErrEmptyImage is returned for images with a zero-area bounds rectangle.
var ErrEmptyImage = errors.New("image has zero area")

// Preprocess letterboxes img into a [1,3,targetH,targetW] channel-first
// float32 tensor with values in [0,1]. The image is resized preserving
// aspect ratio, centered on a gray canvas, and the scale/padding needed to
// invert the transform is returned alongside the tensor.
func Preprocess(img image.Image, targetH, targetW int) ([]float32, models.TransformContext, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, models.TransformContext{}, ErrEmptyImage
	}

	scale := math.Min(float64(targetW)/float64(w), float64(targetH)/float64(h))
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	// imaging treats a zero dimension as "preserve aspect ratio", so keep
	// degenerate thin images at least one pixel wide.
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := imaging.Resize(img, newW, newH, imaging.Linear)

	padX := (targetW - newW) / 2
	padY := (targetH - newH) / 2

	channelSize := targetW * targetH
	tensor := make([]float32, 3*channelSize)
	const fill = float32(PadFill) / 255.0
	for i := range tensor {
		tensor[i] = fill
	}

	fillTensor(resized, tensor, targetW, channelSize, padX, padY)

	ctx := models.TransformContext{Scale: scale, PadX: padX, PadY: padY}
	return tensor, ctx, nil
}

// fillTensor copies the resized image into the padded CHW buffer, splitting
// rows across workers.
func fillTensor(resized *image.NRGBA, tensor []float32, targetW, channelSize, padX, padY int) {
	height := resized.Bounds().Dy()
	width := resized.Bounds().Dx()

	numWorkers := runtime.NumCPU()
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for wkr := 0; wkr < numWorkers; wkr++ {
		startY := wkr * rowsPerWorker
		endY := startY + rowsPerWorker
		if wkr == numWorkers-1 {
			endY = height
		}

		go func(startY, endY int) {
			defer wg.Done()
			for y := startY; y < endY; y++ {
				rowOffset := (padY + y) * targetW
				src := resized.Pix[y*resized.Stride:]
				for x := 0; x < width; x++ {
					i := rowOffset + padX + x
					tensor[i] = float32(src[x*4]) / 255.0
					tensor[channelSize+i] = float32(src[x*4+1]) / 255.0
					tensor[channelSize*2+i] = float32(src[x*4+2]) / 255.0
				}
			}
		}(startY, endY)
	}

	wg.Wait()
}
