package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreDump(n int, fill float32) TensorDump {
	data := make([]float32, n*n)
	for i := range data {
		data[i] = fill
	}
	return TensorDump{Shape: []int{1, 1, n, n}, Data: data}
}

func offsetDump(n int) TensorDump {
	return TensorDump{Shape: []int{1, 4, n, n}, Data: make([]float32, 4*n*n)}
}

func TestLoadScaleDumps(t *testing.T) {
	dir := t.TempDir()

	// Written out of order to check sorting, with 10 > 2 numerically but not lexically.
	for _, scale := range []int{10, 2, 0} {
		require.NoError(t, SaveScaleDump(dir, scale, scoreDump(2, float32(scale)), offsetDump(2)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "scale-9.json"), 0o755))

	dumps, err := LoadScaleDumps(dir)
	require.NoError(t, err)
	require.Len(t, dumps, 3)

	for i, want := range []int{0, 2, 10} {
		assert.Equal(t, want, dumps[i].Scale)
		assert.Equal(t, filepath.Join(dir, filepath.Base(dumps[i].Path)), dumps[i].Path)
		assert.Equal(t, []int{1, 1, 2, 2}, dumps[i].Scores.Shape)
		assert.Equal(t, float32(want), dumps[i].Scores.Data[3])
	}

	scores, offsets, err := dumps[1].Tensors()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, []int(scores.Shape()))
	assert.Equal(t, []int{1, 4, 2, 2}, []int(offsets.Shape()))
	assert.Equal(t, []float32{2, 2, 2, 2}, scores.Float32s())
}

func TestLoadScaleDumps_Errors(t *testing.T) {
	t.Run("Missing directory", func(t *testing.T) {
		_, err := LoadScaleDumps(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read dump directory")
	})

	t.Run("Bad index", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scale-x.json"), []byte("{}"), 0o600))

		_, err := LoadScaleDumps(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid dump file name scale-x.json")
	})

	t.Run("Bad JSON", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scale-0.json"), []byte(`{"scores":`), 0o600))

		_, err := LoadScaleDumps(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})
}

func TestTensorDump_Dense(t *testing.T) {
	tests := []struct {
		name    string
		dump    TensorDump
		wantErr string
	}{
		{"Valid", scoreDump(3, 0.5), ""},
		{"No shape", TensorDump{Data: []float32{1}}, "no shape"},
		{"Zero axis", TensorDump{Shape: []int{1, 0, 2}}, "zero-sized axis"},
		{"Short data", TensorDump{Shape: []int{2, 2}, Data: []float32{1, 2, 3}}, "holds 3 values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.dump.Dense()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.dump.Shape, []int(d.Shape()))
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlatten(t *testing.T) {
	dumps := []ScaleDump{
		{Scale: 0, Scores: scoreDump(4, 0.1), Offsets: offsetDump(4)},
		{Scale: 1, Scores: scoreDump(2, 0.2), Offsets: offsetDump(2)},
	}

	outputs, err := Flatten(dumps)
	require.NoError(t, err)
	require.Len(t, outputs, 4)
	assert.Equal(t, []int{1, 1, 4, 4}, []int(outputs[0].Shape()))
	assert.Equal(t, []int{1, 4, 4, 4}, []int(outputs[1].Shape()))
	assert.Equal(t, []int{1, 1, 2, 2}, []int(outputs[2].Shape()))
	assert.Equal(t, []int{1, 4, 2, 2}, []int(outputs[3].Shape()))

	dumps[1].Offsets.Data = dumps[1].Offsets.Data[:3]
	_, err = Flatten(dumps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offsets of")
}

func TestFlatten_ScaleGaps(t *testing.T) {
	tests := []struct {
		name    string
		scales  []int
		wantErr string
	}{
		{"Contiguous", []int{0, 1, 2, 3, 4}, ""},
		{"Missing middle", []int{0, 1, 2, 4, 5}, "scale 4 at position 3"},
		{"Missing first", []int{1, 2, 3, 4, 5}, "scale 1 at position 0"},
		{"Repeated", []int{0, 1, 1, 2, 3}, "scale 1 at position 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for i, scale := range tt.scales {
				name := filepath.Join(dir, fmt.Sprintf("scale-%d.json", scale))
				if i > 0 && scale == tt.scales[i-1] {
					name = filepath.Join(dir, fmt.Sprintf("scale-0%d.json", scale))
				}
				data, err := json.Marshal(ScaleDump{Scores: scoreDump(2, 0.9), Offsets: offsetDump(2)})
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(name, data, 0o600))
			}

			dumps, err := LoadScaleDumps(dir)
			require.NoError(t, err)
			require.Len(t, dumps, len(tt.scales))

			outputs, err := Flatten(dumps)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Len(t, outputs, 2*len(tt.scales))
				return
			}
			require.Error(t, err)
			assert.Nil(t, outputs)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
