// Package lffd - post-processing for LFFD multi-scale face detector outputs.
//
// The network has five detection heads. Each head emits a score grid and a
// four-channel offset grid; every grid cell corresponds to one receptive field
// whose centre lies at a fixed position in the resized input image. This package
// turns those grids into face boxes in original image coordinates and removes
// redundant boxes.
package lffd

// NumScales is the number of detection heads.
const NumScales = 5

// ScaleConfig describes the receptive-field geometry of one detection head.
type ScaleConfig struct {
	// Stride is the pixel distance between adjacent receptive-field centres.
	Stride int
	// CenterStart is the pixel offset of the first receptive-field centre.
	CenterStart int
	// ReceptiveField is the nominal receptive-field size in pixels.
	ReceptiveField int
	// MinFace and MaxFace bound the face sizes, in resized-image pixels, the head
	// was trained on.
	MinFace, MaxFace int
}

// OffsetScale returns half the receptive-field size, the factor that converts
// normalized offsets into pixel deltas.
func (s ScaleConfig) OffsetScale() float32 {
	return float32(s.ReceptiveField / 2)
}

// CenterX returns the x coordinate of the receptive-field centre of column j.
func (s ScaleConfig) CenterX(j int) float32 {
	return float32(s.CenterStart + s.Stride*j)
}

// CenterY returns the y coordinate of the receptive-field centre of row k.
func (s ScaleConfig) CenterY(k int) float32 {
	return float32(s.CenterStart + s.Stride*k)
}

// DefaultScales returns the geometry of the five LFFD heads.
//
// The table is returned by value, so callers get their own copy.
func DefaultScales() [NumScales]ScaleConfig {
	return [NumScales]ScaleConfig{
		{Stride: 4, CenterStart: 3, ReceptiveField: 20, MinFace: 10, MaxFace: 20},
		{Stride: 8, CenterStart: 7, ReceptiveField: 40, MinFace: 20, MaxFace: 40},
		{Stride: 16, CenterStart: 15, ReceptiveField: 80, MinFace: 40, MaxFace: 80},
		{Stride: 32, CenterStart: 31, ReceptiveField: 160, MinFace: 80, MaxFace: 160},
		{Stride: 64, CenterStart: 63, ReceptiveField: 320, MinFace: 160, MaxFace: 320},
	}
}
