package inference

import (
	"fmt"

	"github.com/nvr-ai/go-lffd/models/lffd"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// Float32Tensor is the read side of an onnxruntime float32 output tensor.
type Float32Tensor interface {
	GetShape() ort.Shape
	GetData() []float32
}

var _ Float32Tensor = (*ort.Tensor[float32])(nil)

// FromONNX converts the outputs of an onnxruntime session running the LFFD
// network into per-head grids.
//
// The tensors' data is shared, not copied, so the session outputs must stay
// alive and unmodified until detection finishes.
//
// Arguments:
//   - values: The NumOutputs session outputs in network order.
//
// Returns:
//   - []lffd.ScaleOutput: One output per head.
//   - error: An *lffd.InvalidInputError (possibly wrapped) if the count is wrong,
//     any output is missing, or its data does not match its shape.
func FromONNX(values []Float32Tensor) ([]lffd.ScaleOutput, error) {
	if len(values) != NumOutputs {
		return nil, &lffd.InvalidInputError{
			Scale:  lffd.RequestScale,
			Field:  "outputs",
			Reason: fmt.Sprintf("expected %d tensors, got %d", NumOutputs, len(values)),
		}
	}

	dense := make([]*tensor.Dense, len(values))

	for i, v := range values {
		if isNil(v) {
			return nil, invalidOutput(i, "tensor is nil")
		}

		shape := v.GetShape()
		if len(shape) == 0 {
			return nil, invalidOutput(i, "tensor has no dimensions")
		}

		dims := make([]int, len(shape))
		for d, n := range shape {
			if n <= 0 {
				return nil, invalidOutput(i, fmt.Sprintf("zero-sized axis in shape %v", shape))
			}
			dims[d] = int(n)
		}

		data := v.GetData()
		if int64(len(data)) != shape.FlattenedSize() {
			return nil, invalidOutput(i, fmt.Sprintf("%d values do not match shape %v", len(data), shape))
		}

		dense[i] = tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data))
	}

	return SplitOutputs(dense)
}

// isNil reports whether v is a nil interface or wraps a nil session tensor.
func isNil(v Float32Tensor) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *ort.Tensor[float32]:
		return t == nil
	}
	return false
}

func invalidOutput(index int, reason string) error {
	return errors.Wrapf(&lffd.InvalidInputError{
		Scale:  index / 2,
		Field:  "outputs",
		Reason: reason,
	}, "onnx output %d", index)
}
