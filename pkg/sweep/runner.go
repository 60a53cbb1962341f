package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/forcelayout/declutter/pkg/archive"
	"github.com/forcelayout/declutter/pkg/cache"
	"github.com/forcelayout/declutter/pkg/layout"
	"github.com/forcelayout/declutter/pkg/render"
)

// Runner executes sweep plans with per-run caching and archiving.
//
// The Runner is stateless except for its collaborators - it holds no plan
// or result state, so multiple goroutines can share one Runner with
// different plans.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Archive archive.Archive
	Logger  *log.Logger
}

// NewRunner creates a runner with the given collaborators.
// If cache is nil, a NullCache is used (caching disabled).
// If keyer is nil, a DefaultKeyer is used.
// If arch is nil, a NullArchive is used (archiving disabled).
// If logger is nil, the default logger is used.
func NewRunner(c cache.Cache, keyer cache.Keyer, arch archive.Archive, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if arch == nil {
		arch = archive.NewNullArchive()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Archive: arch,
		Logger:  logger,
	}
}

// Execute runs every variation × seed of the plan and aggregates the
// results. Cached runs short-circuit the simulation; fresh runs are cached
// and archived as they finish. Execution is serial: runs are deterministic
// and short, and serial execution keeps wall-clock comparisons between
// variations honest.
func (r *Runner) Execute(ctx context.Context, plan Plan) (*Summary, error) {
	if err := plan.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	// Scoping the keyer by plan name keeps runs from different sweeps
	// apart even when their recipes collide.
	keyer := cache.NewScopedKeyer(r.Keyer, "sweep."+plan.Name)

	start := time.Now()
	summary := &Summary{Name: plan.Name}

	r.Logger.Info("sweep starting",
		"plan", plan.Name,
		"variations", len(plan.Variations),
		"seeds", len(plan.Seeds),
		"runs", plan.Runs())

	for _, v := range plan.Variations {
		runs := make([]RunResult, 0, len(plan.Seeds))
		for _, seed := range plan.Seeds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			rr, err := r.runOne(ctx, keyer, plan, v, seed)
			if err != nil {
				return nil, fmt.Errorf("run %s seed %d: %w", v.Label, seed, err)
			}

			r.Logger.Info("run finished",
				"variation", v.Label,
				"seed", seed,
				"outcome", rr.Outcome,
				"steps", rr.Steps,
				"cached", rr.Cached)

			runs = append(runs, rr)
			summary.Results = append(summary.Results, rr)
			tally(&summary.Stats, rr)
			if rr.Cached {
				summary.Cache.Hits++
			} else {
				summary.Cache.Misses++
			}
		}
		summary.Variations = append(summary.Variations, aggregate(v.Label, runs))
	}

	summary.Stats.Duration = time.Since(start)
	return summary, nil
}

// runOne serves a single variation × seed, from the cache when possible.
func (r *Runner) runOne(ctx context.Context, keyer cache.Keyer, plan Plan, v Variation, seed uint64) (RunResult, error) {
	graphKey := keyer.GraphKey(plan.Servers, plan.Clients, plan.Printers, seed)
	runKey := keyer.RunKey(graphKey, v.Params)

	if data, ok, err := r.Cache.Get(ctx, runKey); err == nil && ok {
		var rr RunResult
		if err := json.Unmarshal(data, &rr); err == nil {
			rr.Cached = true
			return rr, nil
		}
		// Corrupt entry: fall through and recompute.
	}

	start := time.Now()
	g, err := layout.BuildRandomGraph(plan.Servers, plan.Clients, plan.Printers, seed)
	if err != nil {
		return RunResult{}, err
	}
	render.AssignRadii(g)

	sim, err := layout.NewSimulation(g, v.Params, nil)
	if err != nil {
		return RunResult{}, err
	}
	sim.Init(ctx)
	for sim.Step(ctx) {
	}

	rr := RunResult{
		RunID:   uuid.NewString(),
		Label:   v.Label,
		Seed:    seed,
		Outcome: sim.Outcome().String(),
		Steps:   sim.StepCount(),
		Elapsed: time.Since(start),
		Final:   sim.Diagnostics(),
	}

	if data, err := json.Marshal(rr); err == nil {
		_ = r.Cache.Set(ctx, runKey, data, DefaultCacheTTL)
	}

	r.archiveRecord(ctx, plan, v, seed, rr)
	return rr, nil
}

// archiveRecord stores one archive record, retrying transient failures. A
// failed archive write degrades to a warning: the sweep result stands on
// its own.
func (r *Runner) archiveRecord(ctx context.Context, plan Plan, v Variation, seed uint64, rr RunResult) {
	rec := archive.Record{
		RunID:    rr.RunID,
		Sweep:    plan.Name,
		Label:    v.Label,
		Servers:  plan.Servers,
		Clients:  plan.Clients,
		Printers: plan.Printers,
		Seed:     seed,
		Params:   v.Params,
		Outcome:  rr.Outcome,
		Steps:    rr.Steps,
		Elapsed:  rr.Elapsed.Milliseconds(),
		Cached:   rr.Cached,
		Final:    rr.Final,
	}

	err := cache.RetryWithBackoff(ctx, func() error {
		if err := r.Archive.Store(ctx, rec); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		r.Logger.Warn("archive store failed", "run", rr.RunID, "error", err)
	}
}

func tally(s *Stats, rr RunResult) {
	s.Runs++
	switch rr.Outcome {
	case layout.Settled.String():
		s.Settled++
	case layout.StepLimitReached.String():
		s.StepLimited++
	case layout.Canceled.String():
		s.Canceled++
	}
}

// aggregate folds one variation's runs into summary statistics.
func aggregate(label string, runs []RunResult) VariationStats {
	vs := VariationStats{Label: label, Runs: len(runs)}

	steps := make([]float64, 0, len(runs))
	energies := make([]float64, 0, len(runs))
	seps := make([]float64, 0, len(runs))
	for _, rr := range runs {
		if rr.Outcome == layout.Settled.String() {
			vs.Settled++
		}
		steps = append(steps, float64(rr.Steps))
		energies = append(energies, rr.Final.TotalEnergy)
		seps = append(seps, rr.Final.MinSeparation)
	}

	if len(steps) > 0 {
		vs.MeanSteps = stat.Mean(steps, nil)
		vs.MeanEnergy = stat.Mean(energies, nil)
		vs.WorstSeparation = floats.Min(seps)
	}
	if len(steps) > 1 {
		vs.StdDevSteps = stat.StdDev(steps, nil)
	}
	return vs
}
