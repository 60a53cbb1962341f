package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/forcelayout/declutter/pkg/cache"
	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/layout"
	"github.com/forcelayout/declutter/pkg/render"
)

// maxRadius rejects radii that could not fit the unit square at all.
const maxRadius = 0.5

type statusResponse struct {
	Session  string `json:"session"`
	Stepping bool   `json:"stepping"`
	Outcome  string `json:"outcome"`
	Step     int    `json:"step"`
	Servers  int    `json:"servers"`
	Clients  int    `json:"clients"`
	Printers int    `json:"printers"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Seed     uint64 `json:"seed"`
}

type graphNode struct {
	ID       int     `json:"id"`
	Category string  `json:"category"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
}

type graphEdge struct {
	A int `json:"a"`
	B int `json:"b"`
}

type graphResponse struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

type samplesResponse struct {
	Samples []layout.Sample `json:"samples"`
	Dropped uint64          `json:"dropped"`
}

type resetRequest struct {
	Servers  int    `json:"servers"`
	Clients  int    `json:"clients"`
	Printers int    `json:"printers"`
	Seed     uint64 `json:"seed"`
}

type radiiRequest struct {
	Server  float64 `json:"server"`
	Client  float64 `json:"client"`
	Printer float64 `json:"printer"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, httpStatus(err), errorResponse{
		Code:  string(errors.GetCode(err)),
		Error: errors.UserMessage(err),
	})
}

// httpStatus maps error codes onto HTTP statuses; unknown codes are server
// faults.
func httpStatus(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotQuiescent:
		return http.StatusConflict
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidCount, errors.ErrCodeInvalidParam:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// status snapshots the server state. Step and outcome are only exact when
// quiescent; mid-run the step gauge trails the loop by design of the
// lock-free read.
func (s *Server) status() statusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.world.Graph()
	resp := statusResponse{
		Session:  s.session,
		Stepping: s.stepping.Load(),
		Step:     int(s.stepGauge.Load()),
		Servers:  g.ServerCount(),
		Clients:  g.ClientCount(),
		Printers: g.PrinterCount(),
		Nodes:    g.Len(),
		Edges:    len(g.Edges()),
		Seed:     s.seed,
	}
	if resp.Stepping {
		resp.Outcome = layout.Running.String()
	} else {
		resp.Outcome = s.world.Sim().Outcome().String()
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := s.startRun(); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"session": s.session,
		"started": true,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sim := s.world.Sim()
	s.mu.Unlock()

	sim.Cancel(r.Context())
	respondJSON(w, http.StatusAccepted, map[string]any{
		"session":  s.session,
		"canceled": true,
	})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sim := s.world.Sim()
	s.mu.Unlock()

	q := sim.Samples()
	samples := q.Drain()
	if samples == nil {
		samples = []layout.Sample{}
	}
	respondJSON(w, http.StatusOK, samplesResponse{
		Samples: samples,
		Dropped: q.Dropped(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stepping.Load() {
		respondError(w, errors.New(errors.ErrCodeNotQuiescent,
			"positions are stepping; poll /api/samples until the run stops"))
		return
	}

	g := s.world.Graph()
	resp := graphResponse{
		Nodes: make([]graphNode, 0, g.Len()),
		Edges: make([]graphEdge, 0, len(g.Edges())),
	}
	for _, n := range g.Nodes() {
		b := g.Body(n.ID)
		resp.Nodes = append(resp.Nodes, graphNode{
			ID:       n.ID,
			Category: n.Category.String(),
			X:        b.Pos.X,
			Y:        b.Pos.Y,
			Radius:   b.Radius,
		})
	}
	for _, e := range g.Edges() {
		resp.Edges = append(resp.Edges, graphEdge{A: e.A, B: e.B})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.stepping.Load() {
		s.mu.Unlock()
		respondError(w, errors.New(errors.ErrCodeNotQuiescent,
			"positions are stepping; render after the run stops"))
		return
	}
	// The DOT string snapshots every position, so rasterization can run
	// outside the lock.
	g := s.world.Graph()
	dot := render.ToDOT(g, render.Options{})
	var key string
	if s.renderCache != nil {
		key = s.renderKey(g)
	}
	s.mu.Unlock()

	if s.renderCache != nil {
		if svg, ok, err := s.renderCache.Get(r.Context(), key); err == nil && ok {
			writeSVG(w, svg)
			return
		}
	}

	svg, err := render.RenderSVG(dot)
	if err != nil {
		respondError(w, errors.Wrap(errors.ErrCodeRender, err, "render svg"))
		return
	}
	if s.renderCache != nil {
		if err := s.renderCache.Set(r.Context(), key, svg, cache.DefaultTTL); err != nil {
			s.logger.Debug("render cache store failed", "err", err)
		}
	}
	writeSVG(w, svg)
}

func writeSVG(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// renderKey identifies the current layout geometry. The construction
// inputs, the parameter set, the step count, and the stamped radii together
// determine every position, so equal keys always name identical renders.
// Callers hold mu.
func (s *Server) renderKey(g *layout.Graph) string {
	radii := make([]float64, 0, g.Len())
	for _, n := range g.Nodes() {
		radii = append(radii, g.Body(n.ID).Radius)
	}
	sim := s.world.Sim()
	graphKey := s.keyer.GraphKey(g.ServerCount(), g.ClientCount(), g.PrinterCount(), s.seed)
	runKey := s.keyer.RunKey(graphKey, struct {
		Params layout.Params `json:"params"`
		Steps  int           `json:"steps"`
		Radii  []float64     `json:"radii"`
	}{sim.Params(), sim.StepCount(), radii})
	return s.keyer.ArtifactKey(runKey, cache.ArtifactKeyOpts{Format: "svg"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode reset request"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stepping.Load() {
		respondError(w, errors.New(errors.ErrCodeNotQuiescent,
			"cannot reset while a run is in flight; cancel it first"))
		return
	}

	// Zero counts keep the current topology size; only the seed is taken
	// as given.
	g := s.world.Graph()
	if req.Servers == 0 {
		req.Servers = g.ServerCount()
	}
	if req.Clients == 0 {
		req.Clients = g.ClientCount()
	}
	if req.Printers == 0 {
		req.Printers = g.PrinterCount()
	}

	err := s.world.Reset(req.Servers, req.Clients, req.Printers, req.Seed,
		func(g *layout.Graph, _ *layout.Simulation) {
			render.AssignRadii(g)
		})
	if err != nil {
		respondError(w, err)
		return
	}

	s.seed = req.Seed
	s.stepGauge.Store(0)
	s.logger.Info("world reset",
		"servers", req.Servers,
		"clients", req.Clients,
		"printers", req.Printers,
		"seed", req.Seed)

	ng := s.world.Graph()
	respondJSON(w, http.StatusOK, statusResponse{
		Session:  s.session,
		Stepping: false,
		Outcome:  s.world.Sim().Outcome().String(),
		Servers:  ng.ServerCount(),
		Clients:  ng.ClientCount(),
		Printers: ng.PrinterCount(),
		Nodes:    ng.Len(),
		Edges:    len(ng.Edges()),
		Seed:     req.Seed,
	})
}

func (s *Server) handleRadii(w http.ResponseWriter, r *http.Request) {
	var req radiiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode radii request"))
		return
	}
	for _, radius := range []float64{req.Server, req.Client, req.Printer} {
		if radius < 0 || radius >= maxRadius {
			respondError(w, errors.New(errors.ErrCodeInvalidInput,
				"radius %v out of range [0, %v)", radius, maxRadius))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stepping.Load() {
		respondError(w, errors.New(errors.ErrCodeNotQuiescent,
			"cannot change radii while a run is in flight"))
		return
	}

	// Zero fields leave that category untouched.
	g := s.world.Graph()
	for _, n := range g.Nodes() {
		var radius float64
		switch n.Category {
		case layout.CategoryServer:
			radius = req.Server
		case layout.CategoryClient:
			radius = req.Client
		case layout.CategoryPrinter:
			radius = req.Printer
		}
		if radius > 0 {
			g.SetRadius(n.ID, radius)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session": s.session,
		"updated": true,
	})
}
