// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-lffd/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Enabled toggles suppression. When false the full sorted candidate list is
	// returned, which is mostly useful for inspection.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// OverlapThreshold is the coverage above which a lower-scoring box is removed.
	OverlapThreshold float32 `json:"overlap_threshold" yaml:"overlap_threshold"`
}

// DefaultNMSConfig returns suppression enabled with an overlap threshold of 0.3.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		Enabled:          true,
		OverlapThreshold: 0.3,
	}
}

// ApplyNMS filters overlapping detections using greedy Non-Maximum Suppression.
//
// Each round picks the highest-scoring remaining detection and removes every other
// remaining detection whose coverage by the picked box (see images.Coverage) is
// greater than config.OverlapThreshold. The measure is the pixel-inclusive
// intersection divided by the area of the compared box, not IoU.
//
// Detections with equal scores are picked in input order. Removal is tracked with
// a liveness mask, so the candidate list is never mutated while being walked, and
// the input detections are returned unaltered.
//
// Arguments:
//   - detections: The candidates, in any order.
//   - config: NMS configuration. Only OverlapThreshold is consulted; callers
//     decide whether to suppress at all using Enabled.
//
// Returns:
//   - The surviving detections in pick order, which is descending score. Inputs of
//     zero or one detection are returned as is.
func ApplyNMS(detections []Detection, config *NMSConfig) []Detection {
	n := len(detections)
	if n <= 1 {
		return detections
	}

	areas := make([]float32, n)
	order := make([]int, n)
	for i := range detections {
		areas[i] = detections[i].Box.Area()
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Score > detections[order[b]].Score
	})

	used := make([]bool, n)
	picked := make([]Detection, 0, n)

	for pos, i := range order {
		if used[i] {
			continue
		}

		anchor := detections[i].Box
		picked = append(picked, detections[i])
		used[i] = true

		for _, j := range order[pos+1:] {
			if used[j] {
				continue
			}

			inter := images.InclusiveIntersection(anchor, detections[j].Box)
			if inter/areas[j] > config.OverlapThreshold {
				used[j] = true
			}
		}
	}

	return picked
}
