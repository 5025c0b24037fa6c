package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TensorDump is a serialized float32 tensor.
type TensorDump struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// Dense returns the dump as a tensor sharing the dump's data.
func (d TensorDump) Dense() (*tensor.Dense, error) {
	if len(d.Shape) == 0 {
		return nil, errors.New("tensor dump has no shape")
	}

	size := 1
	for _, n := range d.Shape {
		if n <= 0 {
			return nil, errors.Errorf("tensor dump has zero-sized axis in shape %v", d.Shape)
		}
		size *= n
	}
	if size != len(d.Data) {
		return nil, errors.Errorf("tensor dump holds %d values, shape %v needs %d", len(d.Data), d.Shape, size)
	}

	return tensor.New(tensor.WithShape(d.Shape...), tensor.WithBacking(d.Data)), nil
}

// ScaleDump represents the saved network outputs of one detection head.
type ScaleDump struct {
	// Path is the path to the dump file.
	Path string `json:"-"`
	// Scale is the head index parsed from the file name.
	Scale int `json:"-"`
	// Scores is the head's score map.
	Scores TensorDump `json:"scores"`
	// Offsets is the head's bounding-box regression map.
	Offsets TensorDump `json:"offsets"`
}

// Tensors returns the score and offset maps as tensors.
func (s ScaleDump) Tensors() (scores, offsets *tensor.Dense, err error) {
	if scores, err = s.Scores.Dense(); err != nil {
		return nil, nil, errors.Wrapf(err, "scores of %s", s.Path)
	}
	if offsets, err = s.Offsets.Dense(); err != nil {
		return nil, nil, errors.Wrapf(err, "offsets of %s", s.Path)
	}
	return scores, offsets, nil
}

// LoadScaleDumps reads all per-head dump files from a directory.
//
// Dump files are named scale-<index>.json. Other files are ignored.
//
// Arguments:
// - dir: Directory path containing dump files.
//
// Returns:
// - []ScaleDump: The dumps ordered by head index.
// - error: Error if loading or parsing fails.
func LoadScaleDumps(dir string) ([]ScaleDump, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dump directory")
	}

	var dumps []ScaleDump
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		if filepath.Ext(name) != ".json" || !strings.HasPrefix(name, "scale-") {
			continue
		}

		scale, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "scale-"), ".json"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dump file name %s", name)
		}

		path := filepath.Join(dir, name)
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, errors.Wrapf(readErr, "failed to read %s", path)
		}

		dump := ScaleDump{Path: path, Scale: scale}
		if err := json.Unmarshal(data, &dump); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
		dumps = append(dumps, dump)
	}

	sort.Slice(dumps, func(i, j int) bool {
		return dumps[i].Scale < dumps[j].Scale
	})

	return dumps, nil
}

// SaveScaleDump writes one head's outputs to dir as scale-<index>.json.
func SaveScaleDump(dir string, scale int, scores, offsets TensorDump) error {
	data, err := json.Marshal(ScaleDump{Scores: scores, Offsets: offsets})
	if err != nil {
		return errors.Wrap(err, "failed to encode dump")
	}

	path := filepath.Join(dir, "scale-"+strconv.Itoa(scale)+".json")
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "failed to write %s", path)
}

// Flatten interleaves dump tensors in network output order:
// scores0, offsets0, scores1, offsets1, ...
//
// The dumps must be ordered by scale and numbered 0, 1, 2, ... without gaps or
// repeats, since the output position decides which head geometry is applied.
func Flatten(dumps []ScaleDump) ([]*tensor.Dense, error) {
	outputs := make([]*tensor.Dense, 0, 2*len(dumps))
	for i, d := range dumps {
		if d.Scale != i {
			return nil, errors.Errorf("dump %s has scale %d at position %d: scale-%d.json is missing or repeated",
				d.Path, d.Scale, i, i)
		}

		scores, offsets, err := d.Tensors()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, scores, offsets)
	}
	return outputs, nil
}
