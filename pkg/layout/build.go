package layout

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/forcelayout/declutter/pkg/errors"
)

// Minimum category counts accepted by the builders. Below these the map is
// too sparse to be worth decluttering, and the printer assignment's
// rejection sampling needs enough clients to terminate quickly.
const (
	MinServers = 4
	MinClients = 6
)

// maxPrinterLinks caps how many distinct clients a printer connects to.
const maxPrinterLinks = 4

// BuildRandomGraph constructs a randomized network map from category counts
// and a seed. The result is a pure function of its arguments: the same seed
// and counts produce bit-identical positions and edge assignments on every
// run. Counts below the documented minimums fail with an INVALID_COUNT
// error and are never retried.
func BuildRandomGraph(servers, clients, printers int, seed uint64) (*Graph, error) {
	return BuildGraph(servers, clients, printers, rand.New(rand.NewSource(seed)))
}

// BuildGraph is the source-injecting variant of [BuildRandomGraph]: callers
// that share one random stream across several builds pass it explicitly.
// A nil source fails with a MISSING_RAND error.
func BuildGraph(servers, clients, printers int, rng *rand.Rand) (*Graph, error) {
	if rng == nil {
		return nil, errors.New(errors.ErrCodeMissingRand, "random source is required")
	}
	if err := ValidateCounts(servers, clients, printers); err != nil {
		return nil, err
	}

	g := &Graph{
		serverCount:  servers,
		clientCount:  clients,
		printerCount: printers,
	}

	total := servers + clients + printers
	g.nodes = make([]Node, total)
	g.bodies = make([]Body, total)
	for i := range g.nodes {
		g.nodes[i] = Node{ID: i, Category: categoryForIndex(g, i)}
		g.bodies[i].Pos = r2.Vec{X: rng.Float64(), Y: rng.Float64()}
	}

	// Every client connects to one uniformly drawn server. Sharing is fine:
	// several clients on the same server is normal topology.
	g.edges = make([]Edge, 0, clients+printers*maxPrinterLinks)
	for c := servers; c < servers+clients; c++ {
		g.edges = append(g.edges, Edge{A: c, B: rng.Intn(servers)})
	}

	// Each printer serves 1 to maxPrinterLinks distinct clients, drawn by
	// rejection sampling against a per-printer assigned set. Distinctness is
	// per printer only; two printers may share a client. The retry loop is
	// safe because clientCount is bounded below well above maxPrinterLinks.
	for p := servers + clients; p < total; p++ {
		links := 1 + rng.Intn(maxPrinterLinks)
		assigned := make(map[int]bool, links)
		for len(assigned) < links {
			c := servers + rng.Intn(clients)
			if assigned[c] {
				continue
			}
			assigned[c] = true
			g.edges = append(g.edges, Edge{A: p, B: c})
		}
	}

	return g, nil
}

// ValidateCounts checks category counts against the builder minimums.
func ValidateCounts(servers, clients, printers int) error {
	if servers < MinServers {
		return errors.New(errors.ErrCodeInvalidCount, "server count %d below minimum %d", servers, MinServers)
	}
	if clients < MinClients {
		return errors.New(errors.ErrCodeInvalidCount, "client count %d below minimum %d", clients, MinClients)
	}
	if printers < 0 {
		return errors.New(errors.ErrCodeInvalidCount, "printer count %d must not be negative", printers)
	}
	return nil
}

func categoryForIndex(g *Graph, i int) Category {
	switch {
	case i < g.serverCount:
		return CategoryServer
	case i < g.serverCount+g.clientCount:
		return CategoryClient
	default:
		return CategoryPrinter
	}
}
