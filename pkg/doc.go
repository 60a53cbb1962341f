// Package pkg provides the core libraries for Declutter network-map layout.
//
// # Overview
//
// Declutter relaxes typed network maps (servers, clients, printers) inside
// a unit square with a damped force-directed simulation, so icons stop
// overlapping while the wiring stays readable. The pkg directory is
// organized into five main areas:
//
//  1. [layout] - The simulation core (graph model, forces, integration, diagnostics)
//  2. [sweep] - Batch execution of seeds and parameter variations
//  3. [render] - Graphviz DOT and SVG export of finished layouts
//  4. [cache] / [archive] - Run result storage (file, Redis, MongoDB)
//  5. [errors] - Structured error codes shared by every surface
//
// # Architecture
//
// The typical data flow through Declutter:
//
//	Category counts + seed
//	         ↓
//	layout.BuildRandomGraph → render.AssignRadii
//	         ↓
//	layout.Simulation (Init → Step… → outcome)
//	         ↓                    ↘ diagnostics SampleQueue
//	render.ToDOT / RenderSVG       sweep aggregation, archive
//
// The simulation core never draws, logs, or blocks; hosts (the CLI, the
// watch dashboard, the HTTP API) observe it through the Services callbacks
// and the diagnostics queue.
package pkg
