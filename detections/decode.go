package detections

import (
	"errors"
	"fmt"

	"github.com/edgevision/inference-service/models"
)

// ErrOutputShape indicates raw backend output that does not match the
// expected [1, N, 5+C] layout.
var ErrOutputShape = errors.New("unexpected output shape")

// DecodeOutput interprets raw model output as detections in the original
// image's normalized coordinate space.
//
// raw is row-major [1, N, 5+C]: each row holds [cx, cy, w, h, objConf,
// classScore_0 .. classScore_{C-1}] in model-space pixels. Candidates pass a
// two-stage filter: first on object confidence, then on object confidence
// multiplied by the best class score. Survivors are mapped back through the
// letterbox transform, normalized by the original dimensions and clamped to
// [0,1]. Row order is preserved; no sorting or de-duplication is applied.
func DecodeOutput(raw []float32, numClasses int, tc models.TransformContext, origW, origH int, threshold float64) ([]models.Detection, error) {
	stride := 5 + numClasses
	if numClasses <= 0 || len(raw) == 0 || len(raw)%stride != 0 {
		return nil, fmt.Errorf("%w: %d values for %d classes", ErrOutputShape, len(raw), numClasses)
	}
	if tc.Scale <= 0 {
		return nil, fmt.Errorf("invalid transform scale %v", tc.Scale)
	}

	rows := len(raw) / stride
	detections := make([]models.Detection, 0, 16)

	for i := 0; i < rows; i++ {
		row := raw[i*stride : (i+1)*stride]

		objConf := float64(row[4])
		if objConf <= threshold {
			continue
		}

		classID := 0
		classConf := row[5]
		for c := 1; c < numClasses; c++ {
			if row[5+c] > classConf {
				classConf = row[5+c]
				classID = c
			}
		}

		score := objConf * float64(classConf)
		if score <= threshold {
			continue
		}

		// Invert the letterbox transform into original pixel space.
		xc := (float64(row[0]) - float64(tc.PadX)) / tc.Scale
		yc := (float64(row[1]) - float64(tc.PadY)) / tc.Scale
		bw := float64(row[2]) / tc.Scale
		bh := float64(row[3]) / tc.Scale

		detections = append(detections, models.Detection{
			Label: ClassLabel(classID),
			Score: score,
			XMin:  clamp01((xc - bw/2) / float64(origW)),
			YMin:  clamp01((yc - bh/2) / float64(origH)),
			XMax:  clamp01((xc + bw/2) / float64(origW)),
			YMax:  clamp01((yc + bh/2) / float64(origH)),
		})
	}

	return detections, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
