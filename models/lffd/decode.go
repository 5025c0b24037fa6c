package lffd

import (
	"github.com/nvr-ai/go-lffd/images"
	"github.com/nvr-ai/go-lffd/models/postprocess"
)

// DecodeScale converts one head's score and offset grids into candidate
// detections in original image coordinates.
//
// For the cell at row k and column j the receptive-field centre in the resized
// image is (CenterX(j), CenterY(k)). With s = cfg.OffsetScale() the box edges are
//
//	xmin = cx - dLeft*s     ymin = cy - dTop*s
//	xmax = cx - dRight*s    ymax = cy - dBottom*s
//
// Edges are then divided by p.ResizeScale and clipped to the original image.
// Cells with a score strictly greater than p.ScoreThreshold are emitted in
// row-major order. When more than p.TopK cells pass, only the p.TopK
// highest-scoring ones are kept, ordered by descending score.
//
// Arguments:
//   - index: The head index recorded on each detection.
//   - cfg: The head's receptive-field geometry.
//   - out: The head's grids.
//   - p: Request parameters.
//
// Returns:
//   - []postprocess.Detection: The candidates, possibly empty.
//   - error: An *InvalidInputError if the grids disagree in shape, a grid is
//     empty, or p fails validation.
func DecodeScale(index int, cfg ScaleConfig, out ScaleOutput, p Params) ([]postprocess.Detection, error) {
	if err := validateScale(index, out, p); err != nil {
		return nil, err
	}

	scores, offsets := out.Scores, out.Offsets
	scale := cfg.OffsetScale()
	detections := make([]postprocess.Detection, 0)

	for k := 0; k < scores.Rows(); k++ {
		cy := cfg.CenterY(k)

		for j := 0; j < scores.Cols(); j++ {
			score := scores.At(k, j)
			if !(score > p.ScoreThreshold) {
				continue
			}

			cx := cfg.CenterX(j)
			box := images.Rect{
				X1: (cx - offsets.At(OffsetLeft, k, j)*scale) / p.ResizeScale,
				Y1: (cy - offsets.At(OffsetTop, k, j)*scale) / p.ResizeScale,
				X2: (cx - offsets.At(OffsetRight, k, j)*scale) / p.ResizeScale,
				Y2: (cy - offsets.At(OffsetBottom, k, j)*scale) / p.ResizeScale,
			}

			detections = append(detections, postprocess.Detection{
				Box:   box.Clip(p.OriginalWidth, p.OriginalHeight),
				Score: score,
				Scale: index,
				Row:   k,
				Col:   j,
			})
		}
	}

	if p.TopK > 0 && len(detections) > p.TopK {
		detections = postprocess.TopK(detections, p.TopK)
	}

	return detections, nil
}

func validateScale(index int, out ScaleOutput, p Params) error {
	if err := p.Validate(); err != nil {
		if e, ok := err.(*InvalidInputError); ok {
			e.Scale = index
		}
		return err
	}

	s, o := out.Scores, out.Offsets
	if s.Rows() == 0 || s.Cols() == 0 {
		return invalidInput(index, "scores", "grid is empty (%dx%d)", s.Rows(), s.Cols())
	}
	if o.Rows() != s.Rows() || o.Cols() != s.Cols() {
		return invalidInput(index, "offsets", "grid is %dx%d, scores are %dx%d",
			o.Rows(), o.Cols(), s.Rows(), s.Cols())
	}

	return nil
}
