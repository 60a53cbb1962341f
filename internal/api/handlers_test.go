package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/forcelayout/declutter/pkg/cache"
	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/layout"
	"github.com/forcelayout/declutter/pkg/render"
)

func newTestServer(t *testing.T, p layout.Params) (*Server, http.Handler) {
	t.Helper()
	world, err := layout.NewWorld(p, 4, 6, 0, 42, nil)
	if err != nil {
		t.Fatalf("NewWorld() error = %v", err)
	}
	s, err := NewServer(world, "127.0.0.1:0", 42, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s, s.routes()
}

// fastParams terminates within 30 steps.
func fastParams() layout.Params {
	return layout.Params{MinSteps: 10, MaxSteps: 30}
}

// stuckParams holds a run in flight long enough to probe the quiescence
// contract: settling is gated until the distant step cap.
func stuckParams() layout.Params {
	return layout.Params{MinSteps: 500000, MaxSteps: 500000}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getStatus(t *testing.T, h http.Handler) statusResponse {
	t.Helper()
	rec := doRequest(t, h, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/status = %d, want 200", rec.Code)
	}
	var st statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

func waitQuiescent(t *testing.T, h http.Handler) statusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := getStatus(t, h)
		if !st.Stepping {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("simulation did not stop in time")
	return statusResponse{}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, fastParams())
	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health body = %q, want ok", rec.Body.String())
	}
}

func TestStatusInitial(t *testing.T) {
	_, h := newTestServer(t, fastParams())
	st := getStatus(t, h)

	if st.Session == "" {
		t.Error("session id should not be empty")
	}
	if st.Stepping {
		t.Error("fresh server should not be stepping")
	}
	if st.Outcome != layout.Running.String() {
		t.Errorf("Outcome = %q, want %q before any run", st.Outcome, layout.Running)
	}
	if st.Step != 0 {
		t.Errorf("Step = %d, want 0", st.Step)
	}
	if st.Servers != 4 || st.Clients != 6 || st.Printers != 0 {
		t.Errorf("counts = %d/%d/%d, want 4/6/0", st.Servers, st.Clients, st.Printers)
	}
	if st.Nodes != 10 || st.Edges != 6 {
		t.Errorf("nodes/edges = %d/%d, want 10/6", st.Nodes, st.Edges)
	}
	if st.Seed != 42 {
		t.Errorf("Seed = %d, want 42", st.Seed)
	}
}

func TestRunToCompletion(t *testing.T) {
	_, h := newTestServer(t, fastParams())

	rec := doRequest(t, h, http.MethodPost, "/api/run", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/run = %d, want 202", rec.Code)
	}

	st := waitQuiescent(t, h)
	if st.Outcome != layout.Settled.String() && st.Outcome != layout.StepLimitReached.String() {
		t.Errorf("Outcome = %q, want settled or step limit reached", st.Outcome)
	}
	if st.Step < 10 || st.Step > 30 {
		t.Errorf("Step = %d, want within [10, 30]", st.Step)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/samples", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/samples = %d, want 200", rec.Code)
	}
	var sr samplesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sr); err != nil {
		t.Fatalf("decode samples: %v", err)
	}
	if len(sr.Samples) == 0 {
		t.Error("no samples buffered after a completed run")
	}
	if sr.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0 for a short run", sr.Dropped)
	}

	// Draining empties the queue.
	rec = doRequest(t, h, http.MethodGet, "/api/samples", "")
	var again samplesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
		t.Fatalf("decode samples: %v", err)
	}
	if len(again.Samples) != 0 {
		t.Errorf("second drain returned %d samples, want 0", len(again.Samples))
	}
}

func TestGraphEndpoint(t *testing.T) {
	_, h := newTestServer(t, fastParams())

	rec := doRequest(t, h, http.MethodGet, "/api/graph", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/graph = %d, want 200", rec.Code)
	}
	var gr graphResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &gr); err != nil {
		t.Fatalf("decode graph: %v", err)
	}

	if len(gr.Nodes) != 10 || len(gr.Edges) != 6 {
		t.Fatalf("nodes/edges = %d/%d, want 10/6", len(gr.Nodes), len(gr.Edges))
	}
	if gr.Nodes[0].Category != "server" {
		t.Errorf("node 0 category = %q, want server", gr.Nodes[0].Category)
	}
	if gr.Nodes[0].Radius != render.ServerRadius {
		t.Errorf("node 0 radius = %v, want %v stamped at construction", gr.Nodes[0].Radius, render.ServerRadius)
	}
	for _, n := range gr.Nodes {
		if n.X < 0 || n.X > 1 || n.Y < 0 || n.Y > 1 {
			t.Errorf("node %d at (%v, %v), want inside the unit square", n.ID, n.X, n.Y)
		}
	}
}

func TestQuiescenceContract(t *testing.T) {
	_, h := newTestServer(t, stuckParams())

	if rec := doRequest(t, h, http.MethodPost, "/api/run", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/run = %d, want 202", rec.Code)
	}

	// While the loop is in flight every position-touching endpoint and a
	// second run must be refused.
	conflicts := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/run", ""},
		{http.MethodPost, "/api/reset", `{"seed": 7}`},
		{http.MethodPost, "/api/radii", `{"server": 0.05}`},
		{http.MethodGet, "/api/graph", ""},
		{http.MethodGet, "/api/render.svg", ""},
	}
	for _, c := range conflicts {
		rec := doRequest(t, h, c.method, c.path, c.body)
		if rec.Code != http.StatusConflict {
			t.Errorf("%s %s = %d while stepping, want 409", c.method, c.path, rec.Code)
		}
	}

	// Status and samples stay available mid-run.
	if st := getStatus(t, h); !st.Stepping {
		t.Log("run finished before mid-run checks; conflict results above still held")
	}
	if rec := doRequest(t, h, http.MethodGet, "/api/samples", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /api/samples = %d while stepping, want 200", rec.Code)
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/cancel", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/cancel = %d, want 202", rec.Code)
	}
	st := waitQuiescent(t, h)
	if st.Outcome != layout.Canceled.String() {
		t.Errorf("Outcome = %q after cancel, want %q", st.Outcome, layout.Canceled)
	}

	// Quiescent again: the refused endpoints recover.
	if rec := doRequest(t, h, http.MethodGet, "/api/graph", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /api/graph = %d after cancel, want 200", rec.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	_, h := newTestServer(t, fastParams())

	rec := doRequest(t, h, http.MethodPost, "/api/reset",
		`{"servers": 5, "clients": 8, "printers": 1, "seed": 9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/reset = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var st statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode reset response: %v", err)
	}
	if st.Servers != 5 || st.Clients != 8 || st.Printers != 1 {
		t.Errorf("counts = %d/%d/%d, want 5/8/1", st.Servers, st.Clients, st.Printers)
	}
	if st.Nodes != 14 || st.Seed != 9 {
		t.Errorf("nodes = %d seed = %d, want 14 and 9", st.Nodes, st.Seed)
	}

	// The rebuilt graph gets renderer radii stamped by the reset hook.
	rec = doRequest(t, h, http.MethodGet, "/api/graph", "")
	var gr graphResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &gr); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if gr.Nodes[0].Radius != render.ServerRadius {
		t.Errorf("node 0 radius = %v after reset, want %v", gr.Nodes[0].Radius, render.ServerRadius)
	}

	// Partial bodies keep the current counts.
	rec = doRequest(t, h, http.MethodPost, "/api/reset", `{"seed": 10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("partial reset = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode reset response: %v", err)
	}
	if st.Servers != 5 || st.Clients != 8 || st.Printers != 1 {
		t.Errorf("counts after partial reset = %d/%d/%d, want unchanged 5/8/1", st.Servers, st.Clients, st.Printers)
	}

	// Count validation reaches the client as a 400.
	rec = doRequest(t, h, http.MethodPost, "/api/reset", `{"servers": 1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid reset = %d, want 400", rec.Code)
	}
}

func TestRadiiEndpoint(t *testing.T) {
	_, h := newTestServer(t, fastParams())

	rec := doRequest(t, h, http.MethodPost, "/api/radii", `{"server": 0.06}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/radii = %d, want 200", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/graph", "")
	var gr graphResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &gr); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	for _, n := range gr.Nodes {
		switch n.Category {
		case "server":
			if n.Radius != 0.06 {
				t.Errorf("server %d radius = %v, want 0.06", n.ID, n.Radius)
			}
		case "client":
			if n.Radius != render.ClientRadius {
				t.Errorf("client %d radius = %v, want untouched %v", n.ID, n.Radius, render.ClientRadius)
			}
		}
	}

	for _, body := range []string{`{"client": 0.7}`, `{"printer": -0.1}`, `not json`} {
		if rec := doRequest(t, h, http.MethodPost, "/api/radii", body); rec.Code != http.StatusBadRequest {
			t.Errorf("POST /api/radii %s = %d, want 400", body, rec.Code)
		}
	}
}

func TestRenderCacheReuse(t *testing.T) {
	s, h := newTestServer(t, fastParams())
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	defer c.Close()
	s.UseRenderCache(c, nil)

	// A cached artifact under the current geometry's key is served without
	// rasterizing.
	key := s.renderKey(s.world.Graph())
	seeded := []byte(`<svg>seeded</svg>`)
	if err := c.Set(context.Background(), key, seeded, cache.DefaultTTL); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/render.svg", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/render.svg = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	if rec.Body.String() != string(seeded) {
		t.Errorf("body = %q, want the cached artifact", rec.Body.String())
	}

	// Stepping moves positions, so the key must change with the geometry.
	if rec := doRequest(t, h, http.MethodPost, "/api/run", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/run = %d, want 202", rec.Code)
	}
	waitQuiescent(t, h)
	if after := s.renderKey(s.world.Graph()); after == key {
		t.Error("render key unchanged after a completed run")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeNotQuiescent, "busy"), http.StatusConflict},
		{errors.New(errors.ErrCodeInvalidInput, "bad"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeInvalidCount, "bad"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeNotFound, "missing"), http.StatusNotFound},
		{errors.New(errors.ErrCodeRender, "boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := httpStatus(tt.err); got != tt.want {
			t.Errorf("httpStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
