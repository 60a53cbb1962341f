package layout

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// clampHitTolerance widens the "speed at the clamp" test so nodes rescaled
// to exactly MaxSpeed count as hits despite rounding.
const clampHitTolerance = 1e-9

// integrate advances every node by one step: damped velocity update from the
// accumulated force, a magnitude clamp on velocity, the position update, and
// a per-axis position clamp that keeps the node's visual footprint inside
// the unit square. The step's mean speed and clamp-hit fraction are recorded
// for the convergence check and diagnostics.
//
// The velocity clamp rescales the whole vector. Clamping each axis
// separately leaves diagonal movers at speeds up to √2 times the cap, which
// shows up as an artificial speed floor that blocks settling.
func (s *Simulation) integrate() {
	p := s.params
	bodies := s.graph.bodies

	var speedSum float64
	clamped := 0
	for i := range bodies {
		b := &bodies[i]
		b.Vel = r2.Add(r2.Scale(p.Damping, b.Vel), r2.Scale(p.TimeStep, b.Force))

		speed := r2.Norm(b.Vel)
		if speed > p.MaxSpeed {
			b.Vel = r2.Scale(p.MaxSpeed/speed, b.Vel)
			speed = p.MaxSpeed
		}
		if speed >= p.MaxSpeed*(1-clampHitTolerance) {
			clamped++
		}
		speedSum += speed

		b.Pos = r2.Add(b.Pos, b.Vel)
		b.Pos.X = clampAxis(b.Pos.X, b.Radius)
		b.Pos.Y = clampAxis(b.Pos.Y, b.Radius)
	}

	n := float64(len(bodies))
	s.meanSpeed = speedSum / n
	s.clampFraction = float64(clamped) / n
}

// clampAxis confines one coordinate to [radius, 1-radius] so the node's
// icon stays fully visible.
func clampAxis(v, radius float64) float64 {
	if v < radius {
		return radius
	}
	if v > 1-radius {
		return 1 - radius
	}
	return v
}
