package detections

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/edgevision/inference-service/models"
)

// Hue bands covering wrap-around red, in degrees, with minimum saturation
// and value. These mirror the common OpenCV ranges H in [0,10] and
// [170,180] on its half-degree scale.
const (
	redHueLow  = 20.0
	redHueHigh = 340.0
	minSatVal  = 50.0 / 255.0
)

// FallbackDetect is the model-free detection path: it masks pixels falling
// in the red hue bands, extracts connected components and reports a fixed-
// confidence detection per component larger than FallbackMinArea pixels.
// It is a pure function of the pixel data.
func FallbackDetect(img image.Image) ([]models.Detection, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}

	mask := buildRedMask(img, w, h)

	detections := make([]models.Detection, 0, 4)
	visited := make([]bool, w*h)
	queue := make([]int, 0, 256)

	for start := 0; start < w*h; start++ {
		if !mask[start] || visited[start] {
			continue
		}

		// Flood-fill one connected component, tracking its extent.
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		area := 0

		visited[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			area++

			x, y := idx%w, idx/w
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if mask[n] && !visited[n] {
						visited[n] = true
						queue = append(queue, n)
					}
				}
			}
		}

		if area > FallbackMinArea {
			detections = append(detections, models.Detection{
				Label: FallbackLabel,
				Score: FallbackScore,
				XMin:  float64(minX) / float64(w),
				YMin:  float64(minY) / float64(h),
				XMax:  float64(maxX+1) / float64(w),
				YMax:  float64(maxY+1) / float64(h),
			})
		}
	}

	return detections, nil
}

func buildRedMask(img image.Image, w, h int) []bool {
	bounds := img.Bounds()
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := colorful.Color{
				R: float64(r) / 65535.0,
				G: float64(g) / 65535.0,
				B: float64(b) / 65535.0,
			}
			hue, sat, val := c.Hsv()
			if (hue <= redHueLow || hue >= redHueHigh) && sat >= minSatVal && val >= minSatVal {
				mask[y*w+x] = true
			}
		}
	}
	return mask
}
