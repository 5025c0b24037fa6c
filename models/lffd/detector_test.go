package lffd

import (
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-lffd/images"
	"github.com/nvr-ai/go-lffd/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridSizes are the head grid sizes for a 256x256 network input.
var gridSizes = [NumScales][2]int{{63, 63}, {31, 31}, {15, 15}, {7, 7}, {3, 3}}

// constantOutputs builds five heads whose every cell scores score.
func constantOutputs(t testing.TB, score float32) []ScaleOutput {
	t.Helper()

	outputs := make([]ScaleOutput, NumScales)
	for i, size := range gridSizes {
		rows, cols := size[0], size[1]
		scores := make([]float32, rows*cols)
		for c := range scores {
			scores[c] = score
		}

		s, err := ScoreGridFromSlice(rows, cols, scores)
		require.NoError(t, err)
		o, err := OffsetGridFromSlice(rows, cols, make([]float32, 4*rows*cols))
		require.NoError(t, err)
		outputs[i] = ScaleOutput{Scores: s, Offsets: o}
	}
	return outputs
}

// randomOutputs builds five heads with random scores and plausible offsets.
func randomOutputs(t testing.TB, rng *rand.Rand) []ScaleOutput {
	t.Helper()

	outputs := make([]ScaleOutput, NumScales)
	for i, size := range gridSizes {
		rows, cols := size[0], size[1]
		n := rows * cols
		scores := make([]float32, n)
		offsets := make([]float32, 4*n)
		for c := 0; c < n; c++ {
			scores[c] = rng.Float32()
			offsets[c] = rng.Float32()      // left
			offsets[n+c] = rng.Float32()    // top
			offsets[2*n+c] = -rng.Float32() // right
			offsets[3*n+c] = -rng.Float32() // bottom
		}

		s, err := ScoreGridFromSlice(rows, cols, scores)
		require.NoError(t, err)
		o, err := OffsetGridFromSlice(rows, cols, offsets)
		require.NoError(t, err)
		outputs[i] = ScaleOutput{Scores: s, Offsets: o}
	}
	return outputs
}

func TestDetect_NothingAboveThreshold(t *testing.T) {
	outputs := constantOutputs(t, 0.1)

	for _, parallel := range []bool{false, true} {
		p := testParams(256, 256)
		p.Parallel = parallel

		dets, err := Detect(outputs, p)
		require.NoError(t, err)
		assert.NotNil(t, dets)
		assert.Empty(t, dets)
	}
}

func TestDetect_SortedWithDeterministicTies(t *testing.T) {
	outputs := constantOutputs(t, 0.1)

	// Equal scores on scale 3 and scale 1, plus a higher one on scale 4.
	outputs[3] = newOutput(t, tieGrid(7, 7, [][2]int{{2, 5}, {0, 1}}, 0.8), 0, 0, 0, 0)
	outputs[1] = newOutput(t, tieGrid(31, 31, [][2]int{{4, 4}}, 0.8), 0, 0, 0, 0)
	outputs[4] = newOutput(t, tieGrid(3, 3, [][2]int{{1, 1}}, 0.9), 0, 0, 0, 0)

	p := testParams(256, 256)
	p.NMS.Enabled = false

	dets, err := Detect(outputs, p)
	require.NoError(t, err)

	type origin struct{ scale, row, col int }
	got := make([]origin, len(dets))
	for i, d := range dets {
		got[i] = origin{d.Scale, d.Row, d.Col}
	}

	assert.Equal(t, []origin{
		{4, 1, 1},
		{1, 4, 4},
		{3, 0, 1},
		{3, 2, 5},
	}, got)
}

func TestDetect_SuppressesAcrossScales(t *testing.T) {
	outputs := constantOutputs(t, 0.1)

	// Scale 2 cell (1,1) centre (31,31), box (11,11)-(51,51).
	outputs[2] = newOutput(t, tieGrid(15, 15, [][2]int{{1, 1}}, 0.95), 0.5, 0.5, -0.5, -0.5)
	// Scale 1 cell (3,3) centre (31,31), box (11,11)-(51,51) as well.
	outputs[1] = newOutput(t, tieGrid(31, 31, [][2]int{{3, 3}}, 0.85), 1, 1, -1, -1)
	// Scale 0 far away: cell (50,50) centre (203,203), box (193,193)-(213,213).
	outputs[0] = newOutput(t, tieGrid(63, 63, [][2]int{{50, 50}}, 0.75), 1, 1, -1, -1)

	p := testParams(256, 256)

	dets, err := Detect(outputs, p)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, postprocess.Detection{
		Box:   images.Rect{X1: 11, Y1: 11, X2: 51, Y2: 51},
		Score: 0.95,
		Scale: 2, Row: 1, Col: 1,
	}, dets[0])
	assert.Equal(t, images.Rect{X1: 193, Y1: 193, X2: 213, Y2: 213}, dets[1].Box)

	// Without suppression the duplicate survives.
	p.NMS.Enabled = false
	dets, err = Detect(outputs, p)
	require.NoError(t, err)
	assert.Len(t, dets, 3)
}

func TestDetect_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	detector := NewDetector()

	for round := 0; round < 5; round++ {
		outputs := randomOutputs(t, rng)
		p := testParams(256, 256)
		p.ScoreThreshold = 0.6

		sequential, err := detector.Detect(outputs, p)
		require.NoError(t, err)

		p.Parallel = true
		parallel, err := detector.Detect(outputs, p)
		require.NoError(t, err)

		assert.Equal(t, sequential, parallel)
		assert.NotEmpty(t, sequential)
	}
}

func TestDetect_SuppressionProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	outputs := randomOutputs(t, rng)

	p := testParams(256, 256)
	p.ScoreThreshold = 0.5
	p.NMS.Enabled = false
	all, err := Detect(outputs, p)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	p.NMS.Enabled = true
	kept, err := Detect(outputs, p)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(kept), len(all))
	assert.Equal(t, all[0], kept[0], "the best candidate is never suppressed")
	assert.Equal(t, kept, postprocess.ApplyNMS(kept, &p.NMS), "suppression is idempotent")
}

func TestDetect_InvalidInput(t *testing.T) {
	t.Run("Wrong number of scales", func(t *testing.T) {
		_, err := Detect(constantOutputs(t, 0.9)[:4], testParams(256, 256))
		require.Error(t, err)

		var invalid *InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, RequestScale, invalid.Scale)
	})

	t.Run("Non-positive resize scale", func(t *testing.T) {
		p := testParams(256, 256)
		p.ResizeScale = 0
		_, err := Detect(constantOutputs(t, 0.9), p)
		assert.True(t, IsInvalidInput(err))
	})

	for _, parallel := range []bool{false, true} {
		t.Run("One malformed scale fails the request", func(t *testing.T) {
			outputs := constantOutputs(t, 0.9)
			mismatched := newOutput(t, [][]float32{{0.9, 0.9}}, 0, 0, 0, 0)
			outputs[2].Offsets = mismatched.Offsets

			p := testParams(256, 256)
			p.Parallel = parallel

			dets, err := Detect(outputs, p)
			require.Error(t, err)
			assert.Nil(t, dets)
			assert.Contains(t, err.Error(), "failed to decode scale 2")

			var invalid *InvalidInputError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, 2, invalid.Scale)
		})
	}
}

func TestDefaultScales_Copy(t *testing.T) {
	scales := DefaultScales()
	scales[0].Stride = 999

	assert.Equal(t, 4, DefaultScales()[0].Stride)
	assert.Equal(t, 4, NewDetector().Scales()[0].Stride)

	offsets := make([]float32, NumScales)
	for i, s := range DefaultScales() {
		offsets[i] = s.OffsetScale()
	}
	assert.Equal(t, []float32{10, 20, 40, 80, 160}, offsets)
}

// tieGrid returns a rows x cols score matrix of zeros with score at each cell.
func tieGrid(rows, cols int, at [][2]int, score float32) [][]float32 {
	grid := make([][]float32, rows)
	for k := range grid {
		grid[k] = make([]float32, cols)
	}
	for _, c := range at {
		grid[c[0]][c[1]] = score
	}
	return grid
}

func BenchmarkDetect(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	outputs := randomOutputs(b, rng)

	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		b.Run(name, func(b *testing.B) {
			p := testParams(256, 256)
			p.Parallel = parallel
			for i := 0; i < b.N; i++ {
				_, _ = Detect(outputs, p)
			}
		})
	}
}
