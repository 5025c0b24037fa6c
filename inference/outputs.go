// Package inference - Adapters from raw network outputs to detector inputs.
package inference

import (
	"fmt"

	"github.com/nvr-ai/go-lffd/models/lffd"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// NumOutputs is the number of tensors the LFFD network emits: a score map and a
// bounding-box map for each head.
const NumOutputs = 2 * lffd.NumScales

// SplitOutputs pairs the network's output tensors into per-head grids.
//
// The network emits its outputs interleaved as
// [scores0, boxes0, scores1, boxes1, ...], scores shaped (1, 1, H, W) and boxes
// shaped (1, 4, H, W).
//
// Arguments:
//   - outputs: The NumOutputs tensors in network order.
//
// Returns:
//   - []lffd.ScaleOutput: One output per head, in head order.
//   - error: An *lffd.InvalidInputError, wrapped with the head index, if the count
//     or any tensor is malformed.
func SplitOutputs(outputs []*tensor.Dense) ([]lffd.ScaleOutput, error) {
	if len(outputs) != NumOutputs {
		return nil, &lffd.InvalidInputError{
			Scale:  lffd.RequestScale,
			Field:  "outputs",
			Reason: fmt.Sprintf("expected %d tensors, got %d", NumOutputs, len(outputs)),
		}
	}

	scales := make([]lffd.ScaleOutput, lffd.NumScales)
	for i := range scales {
		scores, err := lffd.NewScoreGrid(outputs[2*i])
		if err != nil {
			return nil, errors.Wrapf(withScale(err, i), "output %d", 2*i)
		}

		offsets, err := lffd.NewOffsetGrid(outputs[2*i+1])
		if err != nil {
			return nil, errors.Wrapf(withScale(err, i), "output %d", 2*i+1)
		}

		scales[i] = lffd.ScaleOutput{Scores: scores, Offsets: offsets}
	}

	return scales, nil
}

// withScale tags a grid construction error with the head it belongs to.
func withScale(err error, scale int) error {
	var invalid *lffd.InvalidInputError
	if errors.As(err, &invalid) {
		invalid.Scale = scale
	}
	return err
}
