package images

// MinShorterSide is the smallest shorter image side, in pixels, that the detector
// accepts after resizing.
const MinShorterSide = 128

// FitScale returns the factor that shrinks an image so its longer side is at most
// longSide. Images that already fit are never enlarged.
//
// Arguments:
//   - width: The source image width.
//   - height: The source image height.
//   - longSide: The maximum length of the longer side after resizing.
//
// Returns:
//   - min(longSide / max(width, height), 1), or 0 if any argument is not positive.
func FitScale(width, height, longSide int) float32 {
	if width <= 0 || height <= 0 || longSide <= 0 {
		return 0
	}

	scale := float32(longSide) / float32(max(width, height))
	return min(scale, 1)
}

// EnsureMinShorterSide raises scale when it would shrink the shorter image side
// below minSide pixels.
//
// Returns:
//   - minSide / min(width, height) when min(width, height) * scale < minSide,
//     scale otherwise, or 0 if the dimensions or minSide are not positive.
func EnsureMinShorterSide(scale float32, width, height, minSide int) float32 {
	if width <= 0 || height <= 0 || minSide <= 0 {
		return 0
	}

	shorter := float32(min(width, height))
	if shorter*scale < float32(minSide) {
		return float32(minSide) / shorter
	}

	return scale
}
