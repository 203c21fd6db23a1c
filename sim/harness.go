package sim

import (
	"fmt"

	"github.com/lixenwraith/pursuit/navigation"
	"github.com/lixenwraith/pursuit/physics"
	"github.com/lixenwraith/pursuit/vmath"
)

// Harness closes the loop between a World and point-mass bodies
type Harness struct {
	World     *World
	Bodies    []*physics.Body
	Obstacles []physics.Obstacle

	kin      []Kinematics
	scratch  []physics.Obstacle
	lastTick []Output
}

// NewHarness drives w; obstacles are static scene geometry
func NewHarness(w *World, obstacles []physics.Obstacle) *Harness {
	return &Harness{World: w, Obstacles: obstacles}
}

// Spawn adds a body with profile p at t and an agent driving it
func (h *Harness) Spawn(spec AgentSpec, p physics.Profile, t vmath.Transform) *Agent {
	b := physics.NewBody(p, t)
	spec.Vehicle = b
	h.Bodies = append(h.Bodies, b)
	return h.World.Spawn(spec)
}

// Outputs returns the agents' outputs from the last Step
func (h *Harness) Outputs() []Output { return h.lastTick }

// Step ticks the world, applies each intent to its body and resolves contacts
func (h *Harness) Step(dt float64) ([]Output, error) {
	if len(h.Bodies) != len(h.World.Agents()) {
		return nil, fmt.Errorf("%w: %d bodies", ErrAgentCount, len(h.Bodies))
	}

	h.kin = h.kin[:0]
	for _, b := range h.Bodies {
		h.kin = append(h.kin, Kinematics{
			Transform: b.Transform,
			Velocity:  b.Velocity,
			YawRate:   b.YawRate,
			Grounded:  true,
			Flipped:   b.Flipped(),
			Blockage:  b.Blockage,
			Thrust:    b.Thrust,
		})
	}

	out, err := h.World.Tick(dt, h.kin)
	if err != nil {
		return nil, err
	}

	for i, b := range h.Bodies {
		in := out[i].Intent
		b.Step(physics.Controls{Throttle: in.Throttle, Steering: in.Steering, Handbrake: in.Handbrake}, dt)
	}

	// Other bodies are treated as round obstacles frozen at their post-step positions
	for i, b := range h.Bodies {
		h.scratch = append(h.scratch[:0], h.Obstacles...)
		for j, other := range h.Bodies {
			if j != i {
				h.scratch = append(h.scratch, physics.Obstacle{Center: other.Transform.Location, Radius: other.Profile.Radius})
			}
		}
		b.Collide(h.scratch)
	}

	h.lastTick = out
	return out, nil
}

// GridTransforms places n starting slots behind the start line in staggered pairs
func GridTransforms(g *navigation.Graph, n int, rowSpacing, lateral float64) []vmath.Transform {
	master := g.Master()
	if master == nil {
		return nil
	}
	start := g.Config().StartLineDistance
	slots := make([]vmath.Transform, n)
	for i := range slots {
		row := i / 2
		d := master.Curve.ClampDistance(start - float64(row+1)*rowSpacing - float64(i%2)*rowSpacing*0.5)
		t := master.Curve.TransformAt(d)
		side := lateral
		if i%2 == 1 {
			side = -lateral
		}
		t.Location = t.Location.Add(t.SideVector().Mul(side))
		slots[i] = t
	}
	return slots
}
