package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// center is the attractor of the weak centering force.
var center = r2.Vec{X: 0.5, Y: 0.5}

// r2Dist returns the Euclidean distance between two points.
func r2Dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// =============================================================================
// Category Multiplier Tables
// =============================================================================

// springFactors is one compiled spring configuration: effective stiffness
// and equilibrium length for a category pair.
type springFactors struct {
	stiffness float64
	length    float64
}

// forceTables holds the per-category-pair multipliers, compiled once from
// Params at simulation construction. Lookups replace per-pair branching in
// the hot loops; introducing a category means extending the tables, not the
// force code.
type forceTables struct {
	spring    [numCategories][numCategories]springFactors
	repulsion [numCategories][numCategories]float64
}

func compileTables(p Params) forceTables {
	var t forceTables
	for a := Category(0); a < numCategories; a++ {
		for b := Category(0); b < numCategories; b++ {
			sf := springFactors{stiffness: p.SpringStiffness, length: p.SpringLength}
			if a == CategoryPrinter || b == CategoryPrinter {
				sf.stiffness *= p.PrinterStiffnessBoost
				sf.length *= p.PrinterLengthBoost
			}
			t.spring[a][b] = sf

			strength := p.Repulsion
			if a == CategoryServer || b == CategoryServer {
				strength *= p.ServerRepulsionBoost
			}
			t.repulsion[a][b] = strength
		}
	}
	return t
}

// =============================================================================
// Force Accumulation
// =============================================================================

// accumulate zeroes every force accumulator, adds the three force families
// from the current positions, and returns the RMS force magnitude over all
// nodes. RMS falls out of the same traversal so the convergence check and
// diagnostics need no extra pass.
func (s *Simulation) accumulate() float64 {
	nodes, bodies := s.graph.nodes, s.graph.bodies
	eps := s.params.Epsilon

	for i := range bodies {
		bodies[i].Force = r2.Vec{}
	}

	// Springs along edges. Positive magnitude pulls the endpoints together,
	// negative pushes apart, applied equal and opposite.
	for _, e := range s.graph.edges {
		sf := s.tables.spring[nodes[e.A].Category][nodes[e.B].Category]
		delta := r2.Sub(bodies[e.B].Pos, bodies[e.A].Pos)
		dist := r2.Norm(delta) + eps
		pull := r2.Scale(sf.stiffness*(dist-sf.length)/dist, delta)
		bodies[e.A].Force = r2.Add(bodies[e.A].Force, pull)
		bodies[e.B].Force = r2.Sub(bodies[e.B].Force, pull)
	}

	// Repulsion over all unordered pairs. The softened square distance keeps
	// coincident nodes from dividing by zero.
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			delta := r2.Sub(bodies[i].Pos, bodies[j].Pos)
			d2 := delta.X*delta.X + delta.Y*delta.Y + eps
			dist := math.Sqrt(d2)
			push := r2.Scale(s.pairStrength(i, j, dist)/(d2*dist), delta)
			bodies[i].Force = r2.Add(bodies[i].Force, push)
			bodies[j].Force = r2.Sub(bodies[j].Force, push)
		}
	}

	// Centering, plus the RMS reduction in the same pass.
	var sumSq float64
	for i := range bodies {
		f := r2.Add(bodies[i].Force, r2.Scale(-s.params.Centering, r2.Sub(bodies[i].Pos, center)))
		bodies[i].Force = f
		sumSq += f.X*f.X + f.Y*f.Y
	}
	return math.Sqrt(sumSq / float64(len(bodies)))
}

// pairStrength returns the repulsion strength for one node pair at the
// given separation: the category-table base (server-involving pairs are
// escalated), times the overlap boost when the two visual footprints plus
// padding would collide.
func (s *Simulation) pairStrength(i, j int, dist float64) float64 {
	strength := s.tables.repulsion[s.graph.nodes[i].Category][s.graph.nodes[j].Category]
	if dist < s.graph.bodies[i].Radius+s.graph.bodies[j].Radius+s.params.OverlapPadding {
		strength *= s.params.OverlapBoost
	}
	return strength
}
