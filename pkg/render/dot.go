package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/forcelayout/declutter/pkg/layout"
)

// Icon radii per category, in unit-square units. Servers draw largest and
// printers mid-sized; the gaps the simulation opens are proportional to
// these, so changing one here changes the spacing of every run.
const (
	ServerRadius  = 0.04
	PrinterRadius = 0.03
	ClientRadius  = 0.025
)

// DefaultCanvas is the side length, in Graphviz inches, the unit square is
// scaled to on export.
const DefaultCanvas = 10.0

// Radius returns the icon radius drawn for the given category.
func Radius(c layout.Category) float64 {
	switch c {
	case layout.CategoryServer:
		return ServerRadius
	case layout.CategoryPrinter:
		return PrinterRadius
	default:
		return ClientRadius
	}
}

// AssignRadii stamps the category radii onto every node of the graph. This
// is the renderer's half of the radius contract: the simulation reads the
// values back for overlap-aware repulsion and boundary clamping, so hosts
// call it once after building a graph and before the first step.
func AssignRadii(g *layout.Graph) {
	for _, n := range g.Nodes() {
		g.SetRadius(n.ID, Radius(n.Category))
	}
}

// Options configures DOT generation.
type Options struct {
	// Canvas is the side length in Graphviz inches the unit square scales
	// to. Zero means DefaultCanvas.
	Canvas float64

	// Detailed appends position and radius to each node label.
	// When false, only the short category id (S0, C3, P1) is shown.
	Detailed bool
}

// ToDOT converts a laid-out graph to Graphviz DOT for rendering. Every node
// carries a pinned pos="x,y!" so neato draws the simulated arrangement
// instead of computing its own layout. The resulting DOT string can be
// rendered with [RenderSVG] or saved for external Graphviz tooling.
func ToDOT(g *layout.Graph, opts Options) string {
	canvas := opts.Canvas
	if canvas == 0 {
		canvas = DefaultCanvas
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fixedsize=true, fontsize=10, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [color=grey50];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		b := g.Body(n.ID)
		label := nodeLabel(g, n, opts.Detailed)
		attrs := nodeAttrs(n.Category, label)

		// Graphviz y grows upward, the unit square grows downward like a
		// screen, so the y axis flips on export.
		x := b.Pos.X * canvas
		y := (1 - b.Pos.Y) * canvas
		size := 2 * Radius(n.Category) * canvas

		attrs = append(attrs,
			fmt.Sprintf("pos=\"%.4f,%.4f!\"", x, y),
			fmt.Sprintf("width=%.2f", size),
			fmt.Sprintf("height=%.2f", size),
		)
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  n%d -- n%d;\n", e.A, e.B)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeLabel builds the short per-category id, with the category blocks
// numbered from zero: servers S0.., clients C0.., printers P0...
func nodeLabel(g *layout.Graph, n layout.Node, detailed bool) string {
	var short string
	switch n.Category {
	case layout.CategoryServer:
		short = fmt.Sprintf("S%d", n.ID)
	case layout.CategoryClient:
		short = fmt.Sprintf("C%d", n.ID-g.ServerCount())
	default:
		short = fmt.Sprintf("P%d", n.ID-g.ServerCount()-g.ClientCount())
	}

	if !detailed {
		return short
	}
	b := g.Body(n.ID)
	return fmt.Sprintf("%s\n(%.2f, %.2f) r=%.3f", short, b.Pos.X, b.Pos.Y, b.Radius)
}

func nodeAttrs(c layout.Category, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch c {
	case layout.CategoryServer:
		attrs = append(attrs, "shape=box", "fillcolor=steelblue", "fontcolor=white")
	case layout.CategoryPrinter:
		attrs = append(attrs, "shape=diamond", "fillcolor=lightgrey")
	default:
		attrs = append(attrs, "shape=circle", "fillcolor=white")
	}
	return attrs
}
