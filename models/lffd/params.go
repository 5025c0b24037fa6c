package lffd

import (
	"os"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-lffd/models/postprocess"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Params holds the per-request decoding and suppression parameters.
type Params struct {
	// ResizeScale is the ratio the image was resized by before inference.
	ResizeScale float32 `json:"resize_scale" yaml:"resize_scale"`
	// OriginalWidth and OriginalHeight are the pre-resize image dimensions used to
	// clip decoded boxes.
	OriginalWidth  int `json:"original_width" yaml:"original_width"`
	OriginalHeight int `json:"original_height" yaml:"original_height"`
	// ScoreThreshold keeps cells whose score is strictly greater than it.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// TopK caps the number of candidates kept per scale. Non-positive means no cap.
	TopK int `json:"top_k" yaml:"top_k"`
	// NMS configures the suppression pass.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`
	// Parallel decodes the scales concurrently.
	Parallel bool `json:"parallel" yaml:"parallel"`
}

// DefaultParams returns the detector defaults: resize scale 1, score threshold
// 0.7, a per-scale cap of 10000 candidates and suppression at 0.3 overlap.
//
// The original image dimensions have no sensible default and must be set.
func DefaultParams() Params {
	return Params{
		ResizeScale:    1,
		ScoreThreshold: 0.7,
		TopK:           10000,
		NMS:            postprocess.DefaultNMSConfig(),
	}
}

// Validate checks the request-level parameters.
//
// Returns:
//   - An *InvalidInputError when the resize scale is not a positive finite
//     number or the original image dimensions are not positive.
func (p Params) Validate() error {
	if !(p.ResizeScale > 0) || math32.IsInf(p.ResizeScale, 1) {
		return invalidInput(RequestScale, "resize_scale", "must be positive and finite, got %v", p.ResizeScale)
	}
	if p.OriginalWidth <= 0 || p.OriginalHeight <= 0 {
		return invalidInput(RequestScale, "original_size", "must be positive, got %dx%d",
			p.OriginalWidth, p.OriginalHeight)
	}
	return nil
}

// LoadParams reads parameters from a YAML file.
//
// Keys missing from the file keep their DefaultParams values.
//
// Arguments:
//   - path: The YAML file to read.
//
// Returns:
//   - Params: The merged parameters.
//   - error: An error if the file cannot be read or parsed.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return params, errors.Wrap(err, "failed to read params file")
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, errors.Wrapf(err, "failed to parse params file %s", path)
	}

	return params, nil
}
