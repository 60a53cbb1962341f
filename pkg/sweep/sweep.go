// Package sweep runs batches of simulations across seeds and parameter
// variations.
//
// # Overview
//
// Tuning the layout physics means asking the same question many times: with
// these parameters, over these seeds, how often does the system settle, how
// fast, and how well separated is the result? A [Plan] describes the batch
// declaratively (graph recipe, seed list, base parameters, labeled
// variations) and [Runner.Execute] answers it, caching per-run results so a
// re-run after editing one variation only simulates what changed.
//
// # Plan files
//
// Plans are TOML:
//
//	name = "office-lan"
//	servers = 4
//	clients = 12
//	printers = 3
//	seeds = [1, 2, 3]
//
//	[base]
//	damping = 0.8
//
//	[[variation]]
//	label = "stiff"
//	[variation.params]
//	spring_stiffness = 3.0
//
// Variation parameters inherit field-by-field from the base block, which in
// turn inherits from the defaults, so a variation names only what it
// changes. A plan with no variations runs the base parameters once per seed
// under the "base" label.
package sweep

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/layout"
)

// Defaults for plan fields left unset.
const (
	// DefaultSeed is the single seed used when a plan lists none.
	DefaultSeed uint64 = 1

	// DefaultBaseLabel names the implicit variation of a plan that
	// declares none.
	DefaultBaseLabel = "base"

	// DefaultCacheTTL bounds how long cached run results stay reusable.
	DefaultCacheTTL = 7 * 24 * time.Hour
)

// Variation is one labeled parameter set inside a plan. After validation
// its Params are fully resolved: fields the plan file left zero inherit
// from the base block.
type Variation struct {
	Label  string        `toml:"label" json:"label"`
	Params layout.Params `toml:"params" json:"params"`
}

// Plan describes a batch of simulation runs: one run per variation × seed
// over a fixed graph recipe.
type Plan struct {
	// Name identifies the sweep in cache keys and archive records. It
	// must be a valid scope name (lowercase, dots, dashes, underscores).
	Name string `toml:"name" json:"name"`

	// Graph recipe shared by every run.
	Servers  int `toml:"servers" json:"servers"`
	Clients  int `toml:"clients" json:"clients"`
	Printers int `toml:"printers" json:"printers"`

	// Seeds for the random placement. Empty means []{DefaultSeed}.
	Seeds []uint64 `toml:"seeds" json:"seeds"`

	// Base parameters every variation inherits from. Zero fields fall
	// back to the physics defaults.
	Base layout.Params `toml:"base" json:"base"`

	// Variations to run. Empty means one implicit "base" variation.
	Variations []Variation `toml:"variation" json:"variations"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `toml:"-" json:"-"`
}

// LoadPlan reads a TOML plan file, applies defaults, and validates the
// result.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read plan file %s", path)
	}
	var p Plan
	if err := toml.Unmarshal(data, &p); err != nil {
		return Plan{}, errors.Wrap(errors.ErrCodeInvalidPlan, err, "parse plan file %s", path)
	}
	if err := p.ValidateAndSetDefaults(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// ValidateAndSetDefaults fills unset plan fields, resolves every
// variation's parameters against the base block, and validates the result.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (p *Plan) ValidateAndSetDefaults() error {
	if p.validated {
		return nil
	}

	if p.Name == "" {
		p.Name = "sweep"
	}
	if err := errors.ValidateScopeName(p.Name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPlan, err, "plan name %q", p.Name)
	}

	if err := layout.ValidateCounts(p.Servers, p.Clients, p.Printers); err != nil {
		return err
	}

	if len(p.Seeds) == 0 {
		p.Seeds = []uint64{DefaultSeed}
	}

	if err := p.Base.ValidateAndSetDefaults(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPlan, err, "base params")
	}

	if len(p.Variations) == 0 {
		p.Variations = []Variation{{Label: DefaultBaseLabel}}
	}

	seen := make(map[string]bool, len(p.Variations))
	for i := range p.Variations {
		v := &p.Variations[i]
		if v.Label == "" {
			return errors.New(errors.ErrCodeInvalidPlan, "variation %d has no label", i)
		}
		if seen[v.Label] {
			return errors.New(errors.ErrCodeInvalidPlan, "duplicate variation label %q", v.Label)
		}
		seen[v.Label] = true

		v.Params = MergeParams(p.Base, v.Params)
		if err := v.Params.ValidateAndSetDefaults(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPlan, err, "variation %q", v.Label)
		}
	}

	p.validated = true
	return nil
}

// Runs returns the total number of simulation runs the plan describes.
func (p *Plan) Runs() int {
	return len(p.Seeds) * len(p.Variations)
}

// MergeParams overlays override onto base field-by-field: zero override
// fields inherit the base value. Parameters where zero is out of range
// anyway lose nothing to this convention. The result is a fresh, not yet
// validated parameter set, so out-of-range overrides are still caught by
// the caller's ValidateAndSetDefaults.
func MergeParams(base, override layout.Params) layout.Params {
	pick := func(b, o float64) float64 {
		if o != 0 {
			return o
		}
		return b
	}
	pickInt := func(b, o int) int {
		if o != 0 {
			return o
		}
		return b
	}

	return layout.Params{
		SpringStiffness:       pick(base.SpringStiffness, override.SpringStiffness),
		SpringLength:          pick(base.SpringLength, override.SpringLength),
		PrinterStiffnessBoost: pick(base.PrinterStiffnessBoost, override.PrinterStiffnessBoost),
		PrinterLengthBoost:    pick(base.PrinterLengthBoost, override.PrinterLengthBoost),
		Repulsion:             pick(base.Repulsion, override.Repulsion),
		ServerRepulsionBoost:  pick(base.ServerRepulsionBoost, override.ServerRepulsionBoost),
		OverlapBoost:          pick(base.OverlapBoost, override.OverlapBoost),
		OverlapPadding:        pick(base.OverlapPadding, override.OverlapPadding),
		Centering:             pick(base.Centering, override.Centering),
		Damping:               pick(base.Damping, override.Damping),
		TimeStep:              pick(base.TimeStep, override.TimeStep),
		MaxSpeed:              pick(base.MaxSpeed, override.MaxSpeed),
		MinSteps:              pickInt(base.MinSteps, override.MinSteps),
		MaxSteps:              pickInt(base.MaxSteps, override.MaxSteps),
		SettleForce:           pick(base.SettleForce, override.SettleForce),
		SampleEvery:           pickInt(base.SampleEvery, override.SampleEvery),
		Epsilon:               pick(base.Epsilon, override.Epsilon),
		QueueCapacity:         pickInt(base.QueueCapacity, override.QueueCapacity),
	}
}
