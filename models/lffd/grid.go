package lffd

import (
	"gorgonia.org/tensor"
)

// Offset channels of an OffsetGrid, in network output order.
const (
	OffsetLeft = iota
	OffsetTop
	OffsetRight
	OffsetBottom

	numOffsetChannels
)

// ScoreGrid holds one head's per-cell face confidences, row-major.
type ScoreGrid struct {
	rows, cols int
	data       []float32
}

// OffsetGrid holds one head's per-cell box regression deltas as four co-indexed
// planes: left, top, right, bottom.
type OffsetGrid struct {
	rows, cols int
	data       []float32
}

// ScaleOutput pairs the score and offset grids produced by one detection head.
type ScaleOutput struct {
	Scores  ScoreGrid
	Offsets OffsetGrid
}

// NewScoreGrid wraps a float32 score tensor.
//
// Accepted shapes are (H, W), (1, H, W) and (1, 1, H, W); leading singleton axes
// are squeezed away. The tensor's backing data is shared, not copied.
//
// Arguments:
//   - t: The score tensor as produced by the network.
//
// Returns:
//   - ScoreGrid: The grid view of t.
//   - error: An *InvalidInputError for a nil tensor, a non-float32 dtype, a wrong
//     rank, or a zero-sized axis.
func NewScoreGrid(t *tensor.Dense) (ScoreGrid, error) {
	data, shape, err := float32Data(t, "scores", 2)
	if err != nil {
		return ScoreGrid{}, err
	}
	if len(shape) != 2 {
		return ScoreGrid{}, invalidInput(RequestScale, "scores",
			"expected shape (H, W) after squeezing, got %v", t.Shape())
	}

	return ScoreGrid{rows: shape[0], cols: shape[1], data: data}, nil
}

// NewOffsetGrid wraps a float32 offset tensor of shape (4, H, W) or (1, 4, H, W).
// The tensor's backing data is shared, not copied.
func NewOffsetGrid(t *tensor.Dense) (OffsetGrid, error) {
	data, shape, err := float32Data(t, "offsets", 3)
	if err != nil {
		return OffsetGrid{}, err
	}
	if len(shape) != 3 || shape[0] != numOffsetChannels {
		return OffsetGrid{}, invalidInput(RequestScale, "offsets",
			"expected shape (4, H, W) after squeezing, got %v", t.Shape())
	}

	return OffsetGrid{rows: shape[1], cols: shape[2], data: data}, nil
}

// ScoreGridFromSlice builds a rows x cols score grid over row-major data.
func ScoreGridFromSlice(rows, cols int, data []float32) (ScoreGrid, error) {
	if err := checkBacking("scores", []int{rows, cols}, len(data)); err != nil {
		return ScoreGrid{}, err
	}
	return NewScoreGrid(tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data)))
}

// OffsetGridFromSlice builds an offset grid over data laid out as four
// consecutive rows x cols planes.
func OffsetGridFromSlice(rows, cols int, data []float32) (OffsetGrid, error) {
	if err := checkBacking("offsets", []int{numOffsetChannels, rows, cols}, len(data)); err != nil {
		return OffsetGrid{}, err
	}
	return NewOffsetGrid(tensor.New(tensor.WithShape(numOffsetChannels, rows, cols), tensor.WithBacking(data)))
}

// Rows returns the grid height.
func (g ScoreGrid) Rows() int { return g.rows }

// Cols returns the grid width.
func (g ScoreGrid) Cols() int { return g.cols }

// At returns the score of cell (k, j).
func (g ScoreGrid) At(k, j int) float32 {
	return g.data[k*g.cols+j]
}

// Rows returns the grid height.
func (g OffsetGrid) Rows() int { return g.rows }

// Cols returns the grid width.
func (g OffsetGrid) Cols() int { return g.cols }

// At returns the delta of channel c at cell (k, j).
func (g OffsetGrid) At(c, k, j int) float32 {
	return g.data[(c*g.rows+k)*g.cols+j]
}

// float32Data validates t and returns its backing data with leading singleton
// axes removed until the shape has at most rank axes.
func float32Data(t *tensor.Dense, field string, rank int) ([]float32, []int, error) {
	if t == nil {
		return nil, nil, invalidInput(RequestScale, field, "tensor is nil")
	}
	if t.Dtype() != tensor.Float32 {
		return nil, nil, invalidInput(RequestScale, field, "expected float32 data, got %v", t.Dtype())
	}

	if t.IsView() {
		dense, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return nil, nil, invalidInput(RequestScale, field, "cannot materialize tensor view")
		}
		t = dense
	}

	shape := []int(t.Shape().Clone())
	for len(shape) > rank && shape[0] == 1 {
		shape = shape[1:]
	}

	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, nil, invalidInput(RequestScale, field, "zero-sized axis in shape %v", t.Shape())
		}
		size *= d
	}

	data := t.Float32s()
	if len(data) < size {
		return nil, nil, invalidInput(RequestScale, field,
			"backing holds %d values, shape %v needs %d", len(data), t.Shape(), size)
	}

	return data[:size], shape, nil
}

func checkBacking(field string, shape []int, n int) error {
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return invalidInput(RequestScale, field, "zero-sized axis in shape %v", shape)
		}
		size *= d
	}
	if n != size {
		return invalidInput(RequestScale, field, "got %d values, shape %v needs %d", n, shape, size)
	}
	return nil
}
