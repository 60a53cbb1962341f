package sweep

import (
	"time"

	"github.com/forcelayout/declutter/pkg/layout"
)

// RunResult is the outcome of one simulation run inside a sweep. It is the
// unit the cache stores: a hit replays the stored result with Cached set.
type RunResult struct {
	// RunID uniquely identifies the run that actually computed this
	// result. Cached replays keep the original id.
	RunID string `json:"run_id"`

	Label string `json:"label"`
	Seed  uint64 `json:"seed"`

	// Outcome is the terminal outcome name, Steps the count executed.
	Outcome string `json:"outcome"`
	Steps   int    `json:"steps"`

	// Elapsed is the wall-clock duration of the original computation.
	Elapsed time.Duration `json:"elapsed"`

	// Cached reports whether this result was replayed from the cache.
	Cached bool `json:"cached"`

	// Final is the diagnostics sample of the terminal state.
	Final layout.Sample `json:"final"`
}

// VariationStats aggregates one variation's runs across all seeds.
type VariationStats struct {
	Label   string `json:"label"`
	Runs    int    `json:"runs"`
	Settled int    `json:"settled"`

	// Steps to termination, averaged over seeds. StdDevSteps is zero for
	// single-seed plans.
	MeanSteps   float64 `json:"mean_steps"`
	StdDevSteps float64 `json:"stddev_steps"`

	// MeanEnergy averages the final total pseudo-energy; lower means the
	// variation relaxes further before stopping.
	MeanEnergy float64 `json:"mean_energy"`

	// WorstSeparation is the smallest final min-separation seen across
	// seeds. Under 1 means some seed still ended with a colliding pair.
	WorstSeparation float64 `json:"worst_separation"`
}

// Stats aggregates sweep-wide execution counters.
type Stats struct {
	Runs        int           `json:"runs"`
	Settled     int           `json:"settled"`
	StepLimited int           `json:"step_limited"`
	Canceled    int           `json:"canceled"`
	Duration    time.Duration `json:"duration"`
}

// CacheInfo reports how many runs were served from the cache.
type CacheInfo struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// Summary is the complete result of a sweep execution.
type Summary struct {
	Name       string           `json:"name"`
	Results    []RunResult      `json:"results"`
	Variations []VariationStats `json:"variations"`
	Stats      Stats            `json:"stats"`
	Cache      CacheInfo        `json:"cache"`
}
