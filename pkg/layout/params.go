package layout

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/forcelayout/declutter/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Sweep
// =============================================================================

const (
	// DefaultSpringStiffness is the Hookean stiffness of a plain edge.
	DefaultSpringStiffness = 1.5

	// DefaultSpringLength is the equilibrium length of a plain edge, in
	// unit-square units. The settle-velocity threshold derives from it.
	DefaultSpringLength = 0.2

	// DefaultPrinterStiffnessBoost multiplies stiffness on printer edges.
	// Must stay above 1: printer links are meant to be tight.
	DefaultPrinterStiffnessBoost = 2.0

	// DefaultPrinterLengthBoost multiplies equilibrium length on printer
	// edges. Must stay below 1: printers sit close to their clients.
	DefaultPrinterLengthBoost = 0.5

	// DefaultRepulsion is the base pairwise repulsion constant.
	DefaultRepulsion = 0.0005

	// DefaultServerRepulsionBoost escalates repulsion for server-involving
	// pairs. This is the primary knob against server clumping.
	DefaultServerRepulsionBoost = 8.0

	// DefaultOverlapBoost escalates repulsion again when two visual
	// footprints collide, independently of the server boost.
	DefaultOverlapBoost = 4.0

	// DefaultOverlapPadding widens the overlap test beyond the raw radii so
	// icons keep a visible gap.
	DefaultOverlapPadding = 0.01

	// DefaultCentering is the weak pull toward (0.5, 0.5).
	DefaultCentering = 0.05

	// DefaultDamping is the per-step velocity retention factor.
	DefaultDamping = 0.85

	// DefaultTimeStep is the integration gain applied to forces.
	DefaultTimeStep = 0.05

	// DefaultMaxSpeed caps per-step displacement, by velocity magnitude.
	DefaultMaxSpeed = 0.05

	// DefaultMinSteps is the number of steps before settling may trigger.
	DefaultMinSteps = 40

	// DefaultMaxSteps is the hard step cap, the only safeguard against
	// non-convergence.
	DefaultMaxSteps = 600

	// DefaultSettleForce is the RMS-force threshold for settling.
	DefaultSettleForce = 0.2

	// DefaultSampleEvery is the diagnostics sampling period in steps.
	DefaultSampleEvery = 5

	// DefaultEpsilon softens distance denominators so coincident nodes
	// never divide by zero.
	DefaultEpsilon = 1e-6

	// DefaultQueueCapacity bounds the diagnostics sample queue.
	DefaultQueueCapacity = 256
)

// settleVelocityDivisor couples the settle-velocity threshold to the spring
// equilibrium length instead of an independent magic constant.
const settleVelocityDivisor = 25.0

// =============================================================================
// Params
// =============================================================================

// Params holds every tunable of the simulation. The zero value of any field
// means "use the default"; load a file with [LoadParams] or start from
// [DefaultParams] and override fields before constructing a Simulation.
type Params struct {
	SpringStiffness       float64 `toml:"spring_stiffness" json:"spring_stiffness"`
	SpringLength          float64 `toml:"spring_length" json:"spring_length"`
	PrinterStiffnessBoost float64 `toml:"printer_stiffness_boost" json:"printer_stiffness_boost"`
	PrinterLengthBoost    float64 `toml:"printer_length_boost" json:"printer_length_boost"`

	Repulsion            float64 `toml:"repulsion" json:"repulsion"`
	ServerRepulsionBoost float64 `toml:"server_repulsion_boost" json:"server_repulsion_boost"`
	OverlapBoost         float64 `toml:"overlap_boost" json:"overlap_boost"`
	OverlapPadding       float64 `toml:"overlap_padding" json:"overlap_padding"`

	Centering float64 `toml:"centering" json:"centering"`

	Damping  float64 `toml:"damping" json:"damping"`
	TimeStep float64 `toml:"time_step" json:"time_step"`
	MaxSpeed float64 `toml:"max_speed" json:"max_speed"`

	MinSteps    int     `toml:"min_steps" json:"min_steps"`
	MaxSteps    int     `toml:"max_steps" json:"max_steps"`
	SettleForce float64 `toml:"settle_force" json:"settle_force"`

	SampleEvery   int     `toml:"sample_every" json:"sample_every"`
	Epsilon       float64 `toml:"epsilon" json:"epsilon"`
	QueueCapacity int     `toml:"queue_capacity" json:"queue_capacity"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `toml:"-" json:"-"`
}

// DefaultParams returns a fully defaulted, validated parameter set.
func DefaultParams() Params {
	var p Params
	// Defaults are in range, so validation cannot fail here.
	_ = p.ValidateAndSetDefaults()
	return p
}

// LoadParams reads a TOML parameter file, applies defaults for unset fields,
// and validates the result.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read params file %s", path)
	}
	var p Params
	if err := toml.Unmarshal(data, &p); err != nil {
		return Params{}, errors.Wrap(errors.ErrCodeInvalidParam, err, "parse params file %s", path)
	}
	if err := p.ValidateAndSetDefaults(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// ValidateAndSetDefaults fills zero fields with defaults and range-checks
// the result. This method is idempotent - calling it multiple times has the
// same effect as calling it once.
func (p *Params) ValidateAndSetDefaults() error {
	if p.validated {
		return nil
	}

	if p.SpringStiffness == 0 {
		p.SpringStiffness = DefaultSpringStiffness
	}
	if p.SpringLength == 0 {
		p.SpringLength = DefaultSpringLength
	}
	if p.PrinterStiffnessBoost == 0 {
		p.PrinterStiffnessBoost = DefaultPrinterStiffnessBoost
	}
	if p.PrinterLengthBoost == 0 {
		p.PrinterLengthBoost = DefaultPrinterLengthBoost
	}
	if p.Repulsion == 0 {
		p.Repulsion = DefaultRepulsion
	}
	if p.ServerRepulsionBoost == 0 {
		p.ServerRepulsionBoost = DefaultServerRepulsionBoost
	}
	if p.OverlapBoost == 0 {
		p.OverlapBoost = DefaultOverlapBoost
	}
	if p.OverlapPadding == 0 {
		p.OverlapPadding = DefaultOverlapPadding
	}
	if p.Centering == 0 {
		p.Centering = DefaultCentering
	}
	if p.Damping == 0 {
		p.Damping = DefaultDamping
	}
	if p.TimeStep == 0 {
		p.TimeStep = DefaultTimeStep
	}
	if p.MaxSpeed == 0 {
		p.MaxSpeed = DefaultMaxSpeed
	}
	if p.MinSteps == 0 {
		p.MinSteps = DefaultMinSteps
	}
	if p.MaxSteps == 0 {
		p.MaxSteps = DefaultMaxSteps
	}
	if p.SettleForce == 0 {
		p.SettleForce = DefaultSettleForce
	}
	if p.SampleEvery == 0 {
		p.SampleEvery = DefaultSampleEvery
	}
	if p.Epsilon == 0 {
		p.Epsilon = DefaultEpsilon
	}
	if p.QueueCapacity == 0 {
		p.QueueCapacity = DefaultQueueCapacity
	}

	if err := p.validate(); err != nil {
		return err
	}
	p.validated = true
	return nil
}

func (p *Params) validate() error {
	switch {
	case p.SpringStiffness < 0:
		return errors.New(errors.ErrCodeInvalidParam, "spring_stiffness must not be negative, got %g", p.SpringStiffness)
	case p.SpringLength <= 0:
		return errors.New(errors.ErrCodeInvalidParam, "spring_length must be positive, got %g", p.SpringLength)
	case p.PrinterStiffnessBoost <= 1:
		return errors.New(errors.ErrCodeInvalidParam, "printer_stiffness_boost must exceed 1, got %g", p.PrinterStiffnessBoost)
	case p.PrinterLengthBoost <= 0 || p.PrinterLengthBoost >= 1:
		return errors.New(errors.ErrCodeInvalidParam, "printer_length_boost must lie in (0, 1), got %g", p.PrinterLengthBoost)
	case p.Repulsion < 0:
		return errors.New(errors.ErrCodeInvalidParam, "repulsion must not be negative, got %g", p.Repulsion)
	case p.ServerRepulsionBoost < 1:
		return errors.New(errors.ErrCodeInvalidParam, "server_repulsion_boost must be at least 1, got %g", p.ServerRepulsionBoost)
	case p.OverlapBoost < 1:
		return errors.New(errors.ErrCodeInvalidParam, "overlap_boost must be at least 1, got %g", p.OverlapBoost)
	case p.OverlapPadding <= 0:
		return errors.New(errors.ErrCodeInvalidParam, "overlap_padding must be positive, got %g", p.OverlapPadding)
	case p.Centering < 0:
		return errors.New(errors.ErrCodeInvalidParam, "centering must not be negative, got %g", p.Centering)
	case p.Damping <= 0 || p.Damping >= 1:
		return errors.New(errors.ErrCodeInvalidParam, "damping must lie in (0, 1), got %g", p.Damping)
	case p.TimeStep <= 0:
		return errors.New(errors.ErrCodeInvalidParam, "time_step must be positive, got %g", p.TimeStep)
	case p.MaxSpeed <= 0:
		return errors.New(errors.ErrCodeInvalidParam, "max_speed must be positive, got %g", p.MaxSpeed)
	case p.MinSteps < 0:
		return errors.New(errors.ErrCodeInvalidParam, "min_steps must not be negative, got %d", p.MinSteps)
	case p.MaxSteps < 1:
		return errors.New(errors.ErrCodeInvalidParam, "max_steps must be positive, got %d", p.MaxSteps)
	case p.MinSteps > p.MaxSteps:
		return errors.New(errors.ErrCodeInvalidParam, "min_steps %d must not exceed max_steps %d", p.MinSteps, p.MaxSteps)
	case p.SettleForce <= 0:
		return errors.New(errors.ErrCodeInvalidParam, "settle_force must be positive, got %g", p.SettleForce)
	case p.SampleEvery < 1:
		return errors.New(errors.ErrCodeInvalidParam, "sample_every must be positive, got %d", p.SampleEvery)
	case p.Epsilon <= 0:
		return errors.New(errors.ErrCodeInvalidParam, "epsilon must be positive, got %g", p.Epsilon)
	case p.QueueCapacity < 1:
		return errors.New(errors.ErrCodeInvalidParam, "queue_capacity must be positive, got %d", p.QueueCapacity)
	}
	return nil
}

// SettleVelocity returns the mean-speed threshold under which the layout
// counts as settled. It scales with the spring equilibrium length so
// "slow" is measured against the model's own length scale.
func (p Params) SettleVelocity() float64 {
	return p.SpringLength / settleVelocityDivisor
}
