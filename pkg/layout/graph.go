package layout

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// =============================================================================
// Category - Closed Node Taxonomy
// =============================================================================

// Category identifies a node's device class. The set is closed: force
// multipliers are looked up from small per-category tables compiled at
// simulation construction, so class-specific behavior is a data change, not
// a new branch in the force code.
type Category uint8

const (
	// CategoryServer marks a server node. Server-involving pairs repel with
	// escalated strength to fight server clumping.
	CategoryServer Category = iota
	// CategoryClient marks a workstation node. Every client connects to
	// exactly one server.
	CategoryClient
	// CategoryPrinter marks a printer node. Printer springs are stiffer and
	// shorter, keeping printers close to the clients they serve.
	CategoryPrinter

	numCategories
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryServer:
		return "server"
	case CategoryClient:
		return "client"
	case CategoryPrinter:
		return "printer"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// MarshalText implements encoding.TextMarshaler so categories serialize as
// their names rather than raw integers.
func (c Category) MarshalText() ([]byte, error) {
	if c >= numCategories {
		return nil, fmt.Errorf("unknown category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "server":
		*c = CategoryServer
	case "client":
		*c = CategoryClient
	case "printer":
		*c = CategoryPrinter
	default:
		return fmt.Errorf("unknown category %q", text)
	}
	return nil
}

// =============================================================================
// Node, Body, Edge
// =============================================================================

// Node is a vertex of the network map. The ID doubles as the index into the
// graph's node and body slices.
type Node struct {
	ID       int
	Category Category
}

// Body holds one node's kinematic state. Bodies live in a contiguous slice
// parallel to the node slice, which keeps the O(n²) force loops cache
// friendly and free of aliasing.
//
// Radius is the node's current visual radius in unit-square units. It is
// owned and written by the external renderer (0 when no renderer is
// attached); the simulation only reads it, for overlap-aware repulsion and
// boundary clamping.
type Body struct {
	Pos    r2.Vec
	Vel    r2.Vec
	Force  r2.Vec // transient accumulator, zeroed and refilled every step
	Radius float64
}

// Edge connects two nodes by index. Edges originate as client→server or
// client→printer links but the physics treats them symmetrically, so the
// pair is unordered.
type Edge struct {
	A, B int
}

// =============================================================================
// Graph
// =============================================================================

// Graph owns the topology and kinematic state of one network map. Nodes are
// stored servers first, then clients, then printers, in a fixed order;
// counts are immutable after construction. Topology never changes over a
// graph's lifetime: parameter changes rebuild the Graph+Simulation pair
// wholesale (see [World.Reset]).
type Graph struct {
	nodes  []Node
	bodies []Body
	edges  []Edge

	serverCount  int
	clientCount  int
	printerCount int
}

// Len returns the total node count.
func (g *Graph) Len() int { return len(g.nodes) }

// ServerCount returns the number of server nodes.
func (g *Graph) ServerCount() int { return g.serverCount }

// ClientCount returns the number of client nodes.
func (g *Graph) ClientCount() int { return g.clientCount }

// PrinterCount returns the number of printer nodes.
func (g *Graph) PrinterCount() int { return g.printerCount }

// Nodes returns the node list in storage order (servers, clients,
// printers). The returned slice is shared; callers must not modify it.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the edge list. The returned slice is shared; callers must
// not modify it.
func (g *Graph) Edges() []Edge { return g.edges }

// Servers returns the server nodes as a sub-slice of Nodes.
func (g *Graph) Servers() []Node { return g.nodes[:g.serverCount] }

// Clients returns the client nodes as a sub-slice of Nodes.
func (g *Graph) Clients() []Node {
	return g.nodes[g.serverCount : g.serverCount+g.clientCount]
}

// Printers returns the printer nodes as a sub-slice of Nodes.
func (g *Graph) Printers() []Node {
	return g.nodes[g.serverCount+g.clientCount:]
}

// Body returns a copy of the kinematic state of the node with the given id.
func (g *Graph) Body(id int) Body { return g.bodies[id] }

// SetRadius records the visual radius the renderer currently draws for the
// node with the given id. This is the renderer's one write into the model;
// the simulation reads the value on its next step. Radii are expressed in
// unit-square units.
func (g *Graph) SetRadius(id int, radius float64) {
	g.bodies[id].Radius = radius
}
