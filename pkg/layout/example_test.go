package layout_test

import (
	"context"
	"fmt"

	"github.com/forcelayout/declutter/pkg/layout"
)

func ExampleBuildRandomGraph() {
	// Build a small office map: four servers, six clients, no printers.
	g, err := layout.BuildRandomGraph(4, 6, 0, 42)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	// With no printers, the edge count is exactly the client count.
	fmt.Println("Nodes:", g.Len())
	fmt.Println("Edges:", len(g.Edges()))
	fmt.Println("Servers:", g.ServerCount())
	// Output:
	// Nodes: 10
	// Edges: 6
	// Servers: 4
}

func ExampleSimulation() {
	g, err := layout.BuildRandomGraph(4, 6, 0, 42)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	sim, err := layout.NewSimulation(g, layout.DefaultParams(), nil)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	// Drive the loop until the simulation reports it is done. Termination
	// is guaranteed by the step cap even if the layout never settles.
	ctx := context.Background()
	sim.Init(ctx)
	for sim.Step(ctx) {
	}

	fmt.Println("Stopped:", sim.Outcome().Stopped())
	// Output:
	// Stopped: true
}

func ExampleWorld_Reset() {
	w, err := layout.NewWorld(layout.DefaultParams(), 4, 6, 0, 1, nil)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	// Swap in a bigger map; the old graph and simulation are discarded.
	err = w.Reset(6, 12, 3, 7, func(g *layout.Graph, _ *layout.Simulation) {
		fmt.Println("Rebuilt with", g.Len(), "nodes")
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	// Output:
	// Rebuilt with 21 nodes
}
