package lffd

import (
	"github.com/nvr-ai/go-lffd/models/postprocess"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Detector turns the raw outputs of the five LFFD heads into final face
// detections.
//
// A Detector only holds its immutable scale table, so a single value can serve
// concurrent requests without locking.
type Detector struct {
	scales [NumScales]ScaleConfig
}

// NewDetector returns a Detector using DefaultScales.
func NewDetector() *Detector {
	return &Detector{scales: DefaultScales()}
}

// Scales returns a copy of the detector's scale table.
func (d *Detector) Scales() [NumScales]ScaleConfig {
	return d.scales
}

// Detect decodes every head, merges the candidates and optionally suppresses
// overlapping boxes.
//
// The merged candidates are stable-sorted by descending score, so equal scores
// keep scale order first and row-major grid order second. When p.NMS.Enabled is
// false the full sorted candidate list is returned.
//
// Arguments:
//   - outputs: Exactly NumScales head outputs, in head order.
//   - p: Request parameters.
//
// Returns:
//   - []postprocess.Detection: The detections in descending score order. No face
//     above threshold yields an empty slice and a nil error.
//   - error: An *InvalidInputError (possibly wrapped) if any head's input is
//     malformed. A malformed head fails the whole request.
func (d *Detector) Detect(outputs []ScaleOutput, p Params) ([]postprocess.Detection, error) {
	if len(outputs) != NumScales {
		return nil, invalidInput(RequestScale, "outputs", "expected %d scale outputs, got %d", NumScales, len(outputs))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	perScale := make([][]postprocess.Detection, NumScales)

	if p.Parallel {
		var g errgroup.Group
		for i := range outputs {
			i := i // per-iteration copy; required for go < 1.22 loop semantics
			g.Go(func() error {
				dets, err := DecodeScale(i, d.scales[i], outputs[i], p)
				if err != nil {
					return errors.Wrapf(err, "failed to decode scale %d", i)
				}
				perScale[i] = dets
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range outputs {
			dets, err := DecodeScale(i, d.scales[i], outputs[i], p)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to decode scale %d", i)
			}
			perScale[i] = dets
		}
	}

	total := 0
	for _, dets := range perScale {
		total += len(dets)
	}

	candidates := make([]postprocess.Detection, 0, total)
	for _, dets := range perScale {
		candidates = append(candidates, dets...)
	}
	postprocess.SortByScore(candidates)

	if !p.NMS.Enabled {
		return candidates, nil
	}

	return postprocess.ApplyNMS(candidates, &p.NMS), nil
}

var defaultDetector = NewDetector()

// Detect runs the default detector. See Detector.Detect.
func Detect(outputs []ScaleOutput, p Params) ([]postprocess.Detection, error) {
	return defaultDetector.Detect(outputs, p)
}
