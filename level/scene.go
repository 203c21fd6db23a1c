package level

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/lixenwraith/pursuit/path"
	"github.com/lixenwraith/pursuit/physics"
	"github.com/lixenwraith/pursuit/vmath"
)

var _ path.Environment = (*Scene)(nil)

// Scene is the level's solid geometry, used for environment sampling and collision
type Scene struct {
	HasGround bool
	Ground    float64
	Obstacles []physics.Obstacle
}

// Scene converts the authored geometry to world units
func (c *LevelConfig) Scene() *Scene {
	s := &Scene{Obstacles: make([]physics.Obstacle, 0, len(c.Obstacles))}
	if c.GroundMeters != nil {
		s.HasGround = true
		s.Ground = vmath.Meters(*c.GroundMeters)
	}
	for _, o := range c.Obstacles {
		s.Obstacles = append(s.Obstacles, physics.Obstacle{Center: toWorld(o.Center), Radius: vmath.Meters(o.RadiusMeter)})
	}
	return s
}

// Raycast returns the distance to the first solid hit along direction
func (s *Scene) Raycast(from, direction r3.Vector, maxDistance float64) (float64, bool) {
	dir := vmath.SafeNormal(direction)
	if dir == vmath.Zero {
		return 0, false
	}

	best := math.Inf(1)
	if s.HasGround && dir.Z < -vmath.SmallNumber && from.Z >= s.Ground {
		best = (s.Ground - from.Z) / dir.Z
	}
	for _, o := range s.Obstacles {
		if t, ok := raySphere(from, dir, o.Center, o.Radius); ok && t < best {
			best = t
		}
	}
	if best > maxDistance {
		return 0, false
	}
	return best, true
}

// raySphere intersects a unit-direction ray with a sphere; origins inside hit the far side
func raySphere(from, dir, center r3.Vector, radius float64) (float64, bool) {
	oc := from.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	root := math.Sqrt(disc)
	t := -b - root
	if t < 0 {
		t = -b + root
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
