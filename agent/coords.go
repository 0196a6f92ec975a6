package agent

import "math"

// The planning model emits coordinates on a fixed 0-999 grid on each axis,
// independent of the real viewport. They must be denormalized to pixels
// before dispatching input events.
const coordGrid = 1000

// DenormalizeCoord maps a 0-999 grid coordinate to a viewport pixel:
// pixel = round(normalized/1000 × dimension).
func DenormalizeCoord(normalized, dimension int) int {
	px := int(math.Round(float64(normalized) / coordGrid * float64(dimension)))
	if px < 0 {
		return 0
	}
	if px >= dimension {
		return dimension - 1
	}
	return px
}

// NormalizeCoord maps a viewport pixel back onto the 0-999 grid.
func NormalizeCoord(pixel, dimension int) int {
	if dimension <= 0 {
		return 0
	}
	n := int(math.Round(float64(pixel) * coordGrid / float64(dimension)))
	if n < 0 {
		return 0
	}
	if n > coordGrid-1 {
		return coordGrid - 1
	}
	return n
}
