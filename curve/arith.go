package curve

import "math"

// ClampDistance brings a distance into [0, length]
// Closed loops wrap, open curves clamp
func ClampDistance(distance, length float64, closed bool) float64 {
	if closed && length > 0 {
		if distance < 0 {
			return length - math.Mod(-distance, length)
		}
		if distance > length {
			return math.Mod(distance, length)
		}
		return distance
	}
	if distance < 0 {
		return 0
	}
	if distance > length {
		return length
	}
	return distance
}

// DistanceDifference returns a-b, taking the shorter way across the seam of a closed loop
// Unsigned results are absolute
func DistanceDifference(a, b, length float64, closed, signed bool) float64 {
	diff := a - b
	if closed {
		half := length * 0.5
		if math.Abs(diff) > half {
			switch {
			case a <= half && b >= length-half:
				diff = a + (length - b)
			case b <= half && a >= half:
				diff = -(b + (length - a))
			}
		}
	}
	if signed {
		return diff
	}
	return math.Abs(diff)
}
