package layout

// World couples a Graph with the Simulation that owns its kinematic state.
// Topology is immutable for the life of a pair: changing counts or seed
// replaces both wholesale via [World.Reset], never mutates in place.
//
// A World is not synchronized. Reset must only be called while the
// simulation is quiescent (no step in flight); hosts that drive stepping
// from a goroutine serialize Reset against it themselves.
type World struct {
	graph  *Graph
	sim    *Simulation
	params Params
	svc    Services
}

// NewWorld builds a graph from the given counts and seed and pairs it with
// a simulation using the given params and services.
func NewWorld(p Params, servers, clients, printers int, seed uint64, svc Services) (*World, error) {
	g, err := BuildRandomGraph(servers, clients, printers, seed)
	if err != nil {
		return nil, err
	}
	sim, err := NewSimulation(g, p, svc)
	if err != nil {
		return nil, err
	}
	return &World{graph: g, sim: sim, params: sim.Params(), svc: svc}, nil
}

// Graph returns the current graph.
func (w *World) Graph() *Graph { return w.graph }

// Sim returns the current simulation.
func (w *World) Sim() *Simulation { return w.sim }

// Reset discards the current Graph+Simulation pair and installs a freshly
// built one with new counts and seed, keeping the world's params and
// services. On a validation error the existing pair is left untouched.
// The after hook, when non-nil, runs once the swap is complete so the
// caller can rebind any references it still holds to the old pair.
func (w *World) Reset(servers, clients, printers int, seed uint64, after func(*Graph, *Simulation)) error {
	g, err := BuildRandomGraph(servers, clients, printers, seed)
	if err != nil {
		return err
	}
	sim, err := NewSimulation(g, w.params, w.svc)
	if err != nil {
		return err
	}

	w.graph, w.sim = g, sim
	if after != nil {
		after(g, sim)
	}
	return nil
}
