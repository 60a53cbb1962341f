// Package layout implements a force-directed decluttering simulation for
// typed network maps.
//
// # Overview
//
// Declutter renders small office networks (servers, clients, printers) as
// node-link diagrams. Freshly generated maps are unreadable: icons overlap,
// servers clump, and connections cross everywhere. This package relaxes node
// positions inside the unit square with an iterative physical simulation so
// that visual overlap shrinks while the connection structure stays visible.
//
// Three force families act on every node each step:
//
//   - Hookean springs along edges, pulling connected nodes toward an
//     equilibrium distance. Printer connections are stiffer and shorter.
//   - Inverse-square repulsion between all node pairs, escalated when a
//     server is involved and again when two visual footprints overlap.
//   - A weak centering pull toward (0.5, 0.5) that keeps hard-clamped nodes
//     from piling up on the boundary.
//
// Velocities are damped, clamped by magnitude, and positions are clamped to
// keep each icon fully inside the square.
//
// # Basic Usage
//
// Build a graph with [BuildRandomGraph], pair it with a [Simulation], and
// step until it reports done:
//
//	g, err := layout.BuildRandomGraph(4, 12, 2, 42)
//	if err != nil {
//	    return err
//	}
//	sim, err := layout.NewSimulation(g, layout.DefaultParams(), nil)
//	if err != nil {
//	    return err
//	}
//	sim.Init(ctx)
//	for sim.Step(ctx) {
//	}
//	fmt.Println(sim.Outcome(), sim.StepCount())
//
// The run stops when mean node speed and RMS force both fall under their
// settle thresholds after a minimum step count, when cancellation is
// requested via [Simulation.Cancel], or at the hard step limit.
//
// # Diagnostics
//
// Every few steps the simulation captures a [Sample]: a pseudo-energy
// decomposition (spring, repulsion, centering, kinetic) plus mean speed, RMS
// force, the speed-clamp hit fraction, and the minimum pairwise separation.
// The energies are tuning aids, not conserved quantities. Samples are
// buffered in a [SampleQueue] that an observer drains on its own cadence.
//
// # Host Integration
//
// The simulation's only outward dependency is the [Services] interface:
// fire-and-forget message, progress, and refresh callbacks supplied at
// construction. [NoopServices] satisfies it for headless runs. Hosts that
// own a display write per-node visual radii through [Graph.SetRadius]; the
// simulation reads them for overlap detection and boundary clamping but
// never writes them.
//
// # Concurrency
//
// A Simulation is single-threaded by contract: one goroutine owns Init,
// Step, and the kinematic state. Three narrow surfaces cross goroutines
// safely: the cancellation flag set by [Simulation.Cancel], the sample
// queue drained by an observer, and the renderer-owned radius fields (a
// tolerated single-writer/single-reader race; a one-frame-stale radius only
// affects cosmetics). A [World] replaces the Graph+Simulation pair
// wholesale on reset and must only do so while no step is in flight.
package layout
