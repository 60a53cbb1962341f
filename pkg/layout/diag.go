package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Sample is an immutable diagnostics snapshot captured after a step.
//
// The four energy terms are a pseudo-energy decomposition, not a conserved
// Hamiltonian: damping, the velocity and position clamps, and the
// discontinuous overlap and server multipliers all pump energy in and out.
// The decomposition exists so an operator or a tuning sweep can watch
// convergence and recognize failure modes: a repulsion term that will not
// fall means servers are clumping, a large spring term with tiny kinetic
// energy means clients collapsed onto their servers, a clamp fraction stuck
// near 1 means the gain is too hot.
type Sample struct {
	Step int `json:"step"`

	SpringEnergy    float64 `json:"spring_energy"`
	RepulsionEnergy float64 `json:"repulsion_energy"`
	CenterEnergy    float64 `json:"center_energy"`
	KineticEnergy   float64 `json:"kinetic_energy"`
	TotalEnergy     float64 `json:"total_energy"`

	MeanSpeed     float64 `json:"mean_speed"`
	RMSForce      float64 `json:"rms_force"`
	ClampFraction float64 `json:"clamp_fraction"`

	// MinSeparation is the smallest pairwise distance normalized by the
	// pair's summed radii plus padding. Values under 1 mean at least one
	// pair of icons still visually collides.
	MinSeparation float64 `json:"min_separation"`
}

// Diagnostics computes a sample of the current state on demand, outside the
// periodic cadence. Hosts call it after the run stops to report final
// energies and separation without waiting for a sampled step.
func (s *Simulation) Diagnostics() Sample {
	return s.snapshot()
}

// snapshot computes the current pseudo-energy decomposition and bundles it
// with the statistics carried from the integration pass.
func (s *Simulation) snapshot() Sample {
	nodes, bodies := s.graph.nodes, s.graph.bodies
	eps := s.params.Epsilon

	var spring float64
	for _, e := range s.graph.edges {
		sf := s.tables.spring[nodes[e.A].Category][nodes[e.B].Category]
		dist := r2Dist(bodies[e.A].Pos, bodies[e.B].Pos) + eps
		stretch := dist - sf.length
		spring += 0.5 * sf.stiffness * stretch * stretch
	}

	// The repulsion potential strength/r is the one whose gradient gives the
	// strength/r² force, evaluated with the same escalations.
	var repulsion float64
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			dx := bodies[i].Pos.X - bodies[j].Pos.X
			dy := bodies[i].Pos.Y - bodies[j].Pos.Y
			dist := math.Sqrt(dx*dx + dy*dy + eps)
			repulsion += s.pairStrength(i, j, dist) / dist
		}
	}

	var centering, kinetic float64
	for i := range bodies {
		off := r2.Sub(bodies[i].Pos, center)
		centering += 0.5 * s.params.Centering * (off.X*off.X + off.Y*off.Y)
		kinetic += 0.5 * (bodies[i].Vel.X*bodies[i].Vel.X + bodies[i].Vel.Y*bodies[i].Vel.Y)
	}

	return Sample{
		Step:            s.step,
		SpringEnergy:    spring,
		RepulsionEnergy: repulsion,
		CenterEnergy:    centering,
		KineticEnergy:   kinetic,
		TotalEnergy:     spring + repulsion + centering + kinetic,
		MeanSpeed:       s.meanSpeed,
		RMSForce:        s.rmsForce,
		ClampFraction:   s.clampFraction,
		MinSeparation:   s.minSeparation(),
	}
}

// minSeparation scans all pairs for the worst normalized separation. It is
// its own pass, independent of the force loop: forces run every step, this
// only on sampled steps.
func (s *Simulation) minSeparation() float64 {
	bodies := s.graph.bodies
	pad := s.params.OverlapPadding

	minSep := math.Inf(1)
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			dist := r2Dist(bodies[i].Pos, bodies[j].Pos)
			sep := dist / (bodies[i].Radius + bodies[j].Radius + pad)
			if sep < minSep {
				minSep = sep
			}
		}
	}
	return minSep
}
