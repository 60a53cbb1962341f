// Package render turns a finished layout into pictures.
//
// # Overview
//
// The simulation works in an abstract unit square and never draws anything.
// This package owns the visual side of the contract: the per-category icon
// radii that the physics reads back for overlap handling and boundary
// clamping, and the export of a decluttered graph as Graphviz DOT or SVG.
//
// # Radii
//
// [Radius] maps a node category to its icon radius in unit-square units and
// [AssignRadii] stamps those radii onto a graph. Hosts call AssignRadii once
// after building a graph, before the first step, so the simulation separates
// nodes by the sizes the renderer will actually draw:
//
//	g, _ := layout.BuildRandomGraph(4, 10, 2, 42)
//	render.AssignRadii(g)
//
// # DOT and SVG
//
// [ToDOT] emits neato-flavored DOT with every node pinned to its simulated
// position, so Graphviz draws the decluttered arrangement instead of
// computing its own. [RenderSVG] rasterizes that DOT in process:
//
//	dot := render.ToDOT(g, render.Options{})
//	svg, err := render.RenderSVG(dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; DOT generation itself has no external dependencies.
package render
