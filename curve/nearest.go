package curve

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/parameter"
	"github.com/lixenwraith/pursuit/vmath"
)

// SearchParams tunes the iterative bracket search
// Zero iterations or samples fall back to defaults; EarlyExit <= 0 disables early exit
type SearchParams struct {
	Iterations int
	Samples    int
	EarlyExit  float64
}

// DefaultSearch returns the default search tuning
func DefaultSearch() SearchParams {
	return SearchParams{
		Iterations: parameter.NearestSearchIterations,
		Samples:    parameter.NearestSearchSamples,
		EarlyExit:  parameter.NearestSearchEarlyExit,
	}
}

func (p SearchParams) withDefaults() SearchParams {
	if p.Iterations <= 0 {
		p.Iterations = parameter.NearestSearchIterations
	}
	if p.Samples <= 0 {
		p.Samples = parameter.NearestSearchSamples
	}
	return p
}

// NearestDistance finds the distance in [start, end] whose position is closest to location
// end <= 0 searches to the curve length
func (c *Curve) NearestDistance(location r3.Vector, start, end float64, p SearchParams) float64 {
	return c.search(start, end, p, func(d float64) float64 {
		return vmath.DistanceSquared(c.PositionAt(d), location)
	})
}

// NearestDistanceToPlane finds the distance in [start, end] closest to the plane
func (c *Curve) NearestDistanceToPlane(planeLocation, planeNormal r3.Vector, start, end float64, p SearchParams) float64 {
	normal := vmath.SafeNormal(planeNormal)
	return c.search(start, end, p, func(d float64) float64 {
		return math.Abs(c.PositionAt(d).Sub(planeLocation).Dot(normal))
	})
}

// search samples the bracket inclusively, then narrows around the best sample each iteration
func (c *Curve) search(start, end float64, p SearchParams, metric func(float64) float64) float64 {
	p = p.withDefaults()
	if end <= 0 {
		end = c.length
	}

	minD, maxD := start, end
	result, last := c.ClampDistance(start), 0.0
	for i := 0; i < p.Iterations; i++ {
		step := (maxD - minD) / float64(p.Samples)
		best := math.MaxFloat64
		for s := 0; s <= p.Samples; s++ {
			d := c.ClampDistance(minD + step*float64(s))
			if v := metric(d); v < best {
				best = v
				result = d
			}
		}

		if i > 0 && step < p.EarlyExit*2 && c.DistanceDifference(result, last, false) < p.EarlyExit {
			break
		}

		last = result
		minD = result - step
		maxD = result + step
	}
	return result
}

// NumSamplesForRange picks a sample count so that the given iterations resolve
// a range down to accuracy
func NumSamplesForRange(rangeLength float64, iterations int, accuracy float64) int {
	if iterations <= 0 {
		iterations = parameter.NearestSearchIterations
	}
	if accuracy <= 0 {
		accuracy = parameter.MasterScanAccuracy
	}
	if rangeLength <= accuracy {
		return 4
	}
	n := int(math.Ceil(2 * math.Pow(rangeLength/accuracy, 1/float64(iterations))))
	if n < 4 {
		n = 4
	}
	if n > 1000 {
		n = 1000
	}
	return n
}
