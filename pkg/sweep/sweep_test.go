package sweep

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/layout"
)

func TestPlanValidateAndSetDefaults(t *testing.T) {
	p := Plan{Servers: 4, Clients: 6}
	if err := p.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}

	if p.Name != "sweep" {
		t.Errorf("Name = %q, want %q", p.Name, "sweep")
	}
	if !reflect.DeepEqual(p.Seeds, []uint64{DefaultSeed}) {
		t.Errorf("Seeds = %v, want [%d]", p.Seeds, DefaultSeed)
	}
	if len(p.Variations) != 1 || p.Variations[0].Label != DefaultBaseLabel {
		t.Fatalf("Variations = %+v, want single %q variation", p.Variations, DefaultBaseLabel)
	}

	// With nothing overridden the implicit variation resolves to the
	// stock defaults.
	if got, want := p.Variations[0].Params, layout.DefaultParams(); got != want {
		t.Errorf("base variation params = %+v, want defaults", got)
	}

	before := p
	if err := p.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second ValidateAndSetDefaults() error = %v", err)
	}
	if !reflect.DeepEqual(p, before) {
		t.Error("ValidateAndSetDefaults should be idempotent")
	}
}

func TestPlanValidateErrors(t *testing.T) {
	tests := []struct {
		name     string
		plan     Plan
		wantCode errors.Code
	}{
		{
			name:     "invalid name",
			plan:     Plan{Name: "Office LAN", Servers: 4, Clients: 6},
			wantCode: errors.ErrCodeInvalidPlan,
		},
		{
			name:     "too few servers",
			plan:     Plan{Servers: 2, Clients: 6},
			wantCode: errors.ErrCodeInvalidCount,
		},
		{
			name: "unlabeled variation",
			plan: Plan{
				Servers: 4, Clients: 6,
				Variations: []Variation{{}},
			},
			wantCode: errors.ErrCodeInvalidPlan,
		},
		{
			name: "duplicate labels",
			plan: Plan{
				Servers: 4, Clients: 6,
				Variations: []Variation{{Label: "hot"}, {Label: "hot"}},
			},
			wantCode: errors.ErrCodeInvalidPlan,
		},
		{
			name: "base params out of range",
			plan: Plan{
				Servers: 4, Clients: 6,
				Base: layout.Params{Damping: 1.5},
			},
			wantCode: errors.ErrCodeInvalidPlan,
		},
		{
			name: "variation params out of range",
			plan: Plan{
				Servers: 4, Clients: 6,
				Variations: []Variation{{Label: "hot", Params: layout.Params{Damping: 1.5}}},
			},
			wantCode: errors.ErrCodeInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("ValidateAndSetDefaults() succeeded, want error")
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error code = %v, want %v (err: %v)", errors.GetCode(err), tt.wantCode, err)
			}
		})
	}
}

func TestPlanRuns(t *testing.T) {
	p := Plan{
		Servers: 4, Clients: 6,
		Seeds:      []uint64{1, 2, 3},
		Variations: []Variation{{Label: "a"}, {Label: "b"}},
	}
	if err := p.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if got, want := p.Runs(), 6; got != want {
		t.Errorf("Runs() = %d, want %d", got, want)
	}
}

func TestMergeParams(t *testing.T) {
	base := layout.DefaultParams()
	base.Damping = 0.7

	merged := MergeParams(base, layout.Params{SpringStiffness: 3.0})
	if merged.SpringStiffness != 3.0 {
		t.Errorf("SpringStiffness = %v, want override 3.0", merged.SpringStiffness)
	}
	if merged.Damping != 0.7 {
		t.Errorf("Damping = %v, want inherited 0.7", merged.Damping)
	}
	if merged.SpringLength != base.SpringLength {
		t.Errorf("SpringLength = %v, want inherited %v", merged.SpringLength, base.SpringLength)
	}
	if merged.MaxSteps != base.MaxSteps {
		t.Errorf("MaxSteps = %v, want inherited %v", merged.MaxSteps, base.MaxSteps)
	}

	// A zero override inherits everything.
	same := MergeParams(base, layout.Params{})
	if same.Damping != base.Damping || same.SpringStiffness != base.SpringStiffness {
		t.Errorf("zero override changed values: %+v", same)
	}

	// Merging resets validation, so out-of-range overrides are caught.
	bad := MergeParams(base, layout.Params{Damping: 1.5})
	err := bad.ValidateAndSetDefaults()
	if !errors.Is(err, errors.ErrCodeInvalidParam) {
		t.Errorf("validating bad merge: error = %v, want %v", err, errors.ErrCodeInvalidParam)
	}
}

func TestLoadPlan(t *testing.T) {
	content := `name = "office"
servers = 4
clients = 8
printers = 2
seeds = [1, 2]

[base]
damping = 0.8

[[variation]]
label = "stiff"
[variation.params]
spring_stiffness = 3.0

[[variation]]
label = "soft"
[variation.params]
spring_stiffness = 0.8
`
	path := filepath.Join(t.TempDir(), "plan.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}

	if p.Name != "office" {
		t.Errorf("Name = %q, want %q", p.Name, "office")
	}
	if p.Servers != 4 || p.Clients != 8 || p.Printers != 2 {
		t.Errorf("counts = %d/%d/%d, want 4/8/2", p.Servers, p.Clients, p.Printers)
	}
	if !reflect.DeepEqual(p.Seeds, []uint64{1, 2}) {
		t.Errorf("Seeds = %v, want [1 2]", p.Seeds)
	}
	if got, want := p.Runs(), 4; got != want {
		t.Errorf("Runs() = %d, want %d", got, want)
	}

	if len(p.Variations) != 2 {
		t.Fatalf("len(Variations) = %d, want 2", len(p.Variations))
	}
	stiff, soft := p.Variations[0], p.Variations[1]
	if stiff.Label != "stiff" || stiff.Params.SpringStiffness != 3.0 {
		t.Errorf("stiff variation = %q stiffness %v, want stiff/3.0", stiff.Label, stiff.Params.SpringStiffness)
	}
	if stiff.Params.Damping != 0.8 {
		t.Errorf("stiff Damping = %v, want 0.8 inherited from base", stiff.Params.Damping)
	}
	if soft.Params.SpringStiffness != 0.8 {
		t.Errorf("soft stiffness = %v, want 0.8", soft.Params.SpringStiffness)
	}
	if soft.Params.MaxSteps != layout.DefaultMaxSteps {
		t.Errorf("soft MaxSteps = %v, want default %v", soft.Params.MaxSteps, layout.DefaultMaxSteps)
	}
}

func TestLoadPlanErrors(t *testing.T) {
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "absent.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: error = %v, want %v", err, errors.ErrCodeFileNotFound)
	}

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("name = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlan(path); !errors.Is(err, errors.ErrCodeInvalidPlan) {
		t.Errorf("broken file: error = %v, want %v", err, errors.ErrCodeInvalidPlan)
	}
}
