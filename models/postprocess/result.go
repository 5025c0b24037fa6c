// Package postprocess - Postprocessing utilities for detector outputs.
package postprocess

import (
	"fmt"
	"image"
	"sort"

	"github.com/nvr-ai/go-lffd/images"
)

// Detection represents a single face box in original image coordinates.
type Detection struct {
	// The bounding box of the detection.
	Box images.Rect `json:"box" yaml:"box"`
	// The confidence score of the detection.
	Score float32 `json:"score" yaml:"score"`
	// Scale is the index of the detection head that produced the box.
	Scale int `json:"scale" yaml:"scale"`
	// Row and Col locate the grid cell within that head's score grid.
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (d Detection) String() string {
	return fmt.Sprintf("face (confidence %f): %s [scale %d, cell %d,%d]",
		d.Score, d.Box, d.Scale, d.Row, d.Col)
}

// ToRectangle returns the integer crop rectangle of the detection.
func (d Detection) ToRectangle() image.Rectangle {
	return d.Box.ToRectangle()
}

// SortByScore orders detections by descending score in place.
//
// The sort is stable: detections with equal scores keep their relative order,
// so candidates from an earlier scale and an earlier grid position stay first.
func SortByScore(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})
}

// TopK returns the k highest-scoring detections in descending score order.
//
// Ties are resolved in favour of the detection that appears first in the input.
// The input slice is not modified. A non-positive k, or a k that is at least the
// number of detections, keeps every detection.
//
// Arguments:
//   - detections: The candidates to select from, in any order.
//   - k: The maximum number of detections to keep.
//
// Returns:
//   - A new slice holding at most k detections.
func TopK(detections []Detection, k int) []Detection {
	out := make([]Detection, len(detections))
	copy(out, detections)
	SortByScore(out)

	if k > 0 && k < len(out) {
		out = out[:k]
	}

	return out
}
