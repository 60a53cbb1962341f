// Package api hosts a layout world behind a small HTTP API.
//
// The server owns the stepping loop: POST /api/run launches a background
// goroutine that drives the simulation to its outcome while observers poll
// GET /api/status and drain GET /api/samples. Endpoints that read or write
// positions directly (graph, render.svg, radii, reset) demand quiescence
// and answer 409 while a run is in flight; status and samples are safe at
// any time.
package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/forcelayout/declutter/pkg/cache"
	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/layout"
	"github.com/forcelayout/declutter/pkg/render"
)

// DefaultShutdownTimeout bounds the drain on graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Server hosts one layout.World over HTTP. A fresh session id is minted
// per server so clients can detect restarts.
type Server struct {
	world   *layout.World
	logger  *log.Logger
	session string
	addr    string

	// mu serializes world access and run transitions. stepGauge and
	// stepping are written by the run loop and read lock-free by status.
	mu        sync.Mutex
	stepping  atomic.Bool
	stepGauge atomic.Int64
	seed      uint64

	// renderCache, when set, reuses rendered SVGs across requests.
	renderCache cache.Cache
	keyer       cache.Keyer

	// runCtx is the lifetime context run loops inherit; set once before
	// the listener starts.
	runCtx context.Context
	http   *http.Server
}

// NewServer wires a server around the world. The graph gets the renderer
// radii stamped immediately so the first run already separates icons by
// their drawn size.
func NewServer(world *layout.World, addr string, seed uint64, logger *log.Logger) (*Server, error) {
	if err := errors.ValidateListenAddr(addr); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	render.AssignRadii(world.Graph())

	s := &Server{
		world:   world,
		logger:  logger,
		session: uuid.NewString(),
		addr:    addr,
		seed:    seed,
		runCtx:  context.Background(),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// UseRenderCache stores rendered SVGs so repeated GET /api/render.svg
// requests against an unchanged layout skip rasterization. Set before
// ListenAndServe. A nil keyer selects the default derivation.
func (s *Server) UseRenderCache(c cache.Cache, keyer cache.Keyer) {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	s.renderCache = c
	s.keyer = keyer
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/graph", s.handleGraph)
		r.Get("/samples", s.handleSamples)
		r.Get("/render.svg", s.handleRender)
		r.Post("/run", s.handleRun)
		r.Post("/cancel", s.handleCancel)
		r.Post("/reset", s.handleReset)
		r.Post("/radii", s.handleRadii)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		s.logger.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"duration", time.Since(start))
	})
}

// ListenAndServe serves until ctx is canceled, then drains connections.
// Run loops inherit ctx, so an in-flight simulation observes the shutdown
// as cancellation on its next step.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.runCtx = ctx

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr, "session", s.session)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// startRun launches the stepping loop. It fails while a previous loop is
// still in flight: the loop goroutine is the single producer the sample
// queue contract requires.
func (s *Server) startRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stepping.Load() {
		return errors.New(errors.ErrCodeNotQuiescent, "a run is already in flight")
	}

	sim := s.world.Sim()
	ctx := s.runCtx
	sim.Init(ctx)
	s.stepGauge.Store(0)
	s.stepping.Store(true)

	go func() {
		// stepping flips back before the loop's results are read: a
		// status poll observing stepping=false is ordered after the
		// final writes below.
		defer s.stepping.Store(false)

		for sim.Step(ctx) {
			s.stepGauge.Store(int64(sim.StepCount()))
		}
		s.stepGauge.Store(int64(sim.StepCount()))

		s.logger.Info("run finished",
			"outcome", sim.Outcome().String(),
			"steps", sim.StepCount())
	}()
	return nil
}
