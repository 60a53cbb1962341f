// Package archive persists sweep run records for offline tuning analysis.
//
// Every simulation a parameter sweep completes produces one [Record]: the
// graph recipe, the physics parameters, the outcome, and the final
// diagnostics sample. The [Archive] interface decouples the sweep runner
// from where those records land:
//   - null: discard everything (the default, sweeps stay self-contained)
//   - mongo: append to a MongoDB collection for notebook analysis
//
// # Usage
//
// Create an archive and hand it to the sweep runner:
//
//	arch, err := archive.NewMongoArchive(ctx, archive.MongoConfig{
//	    URI: "mongodb://localhost:27017",
//	})
//	if err != nil {
//	    return err
//	}
//	defer arch.Close()
//
// Records are write-once: the runner stores them as runs finish and never
// updates them. Analysis happens outside this repo, against the collection.
package archive

import (
	"context"
	"time"

	"github.com/forcelayout/declutter/pkg/layout"
)

// Record is one archived simulation run.
type Record struct {
	// RunID uniquely identifies the run across sweeps.
	RunID string `json:"run_id" bson:"run_id"`

	// Sweep and Label locate the run inside its plan: the plan name and
	// the variation label it executed under.
	Sweep string `json:"sweep" bson:"sweep"`
	Label string `json:"label" bson:"label"`

	// Graph recipe: the category counts and the placement seed.
	Servers  int    `json:"servers" bson:"servers"`
	Clients  int    `json:"clients" bson:"clients"`
	Printers int    `json:"printers" bson:"printers"`
	Seed     uint64 `json:"seed" bson:"seed"`

	// Params are the fully defaulted physics parameters the run used.
	Params layout.Params `json:"params" bson:"params"`

	// Outcome is the terminal outcome name ("settled", "step limit
	// reached", "canceled").
	Outcome string `json:"outcome" bson:"outcome"`

	// Steps is the number of steps executed.
	Steps int `json:"steps" bson:"steps"`

	// Elapsed is the wall-clock duration of the run in milliseconds.
	// Cached runs report the original run's duration.
	Elapsed int64 `json:"elapsed_ms" bson:"elapsed_ms"`

	// Cached reports whether the result came from the sweep cache rather
	// than a fresh simulation.
	Cached bool `json:"cached" bson:"cached"`

	// Final is the diagnostics sample of the terminal state.
	Final layout.Sample `json:"final" bson:"final"`

	// CreatedAt is when the record was archived (UTC).
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Archive is the interface for run record storage backends.
type Archive interface {
	// Store appends one run record.
	Store(ctx context.Context, rec Record) error

	// Close releases backend resources.
	Close() error
}

// NullArchive discards all records. It is the default backend so sweeps
// work with no database configured.
type NullArchive struct{}

// NewNullArchive creates an archive that drops everything.
func NewNullArchive() *NullArchive { return &NullArchive{} }

// Store discards the record.
func (*NullArchive) Store(ctx context.Context, rec Record) error { return nil }

// Close is a no-op.
func (*NullArchive) Close() error { return nil }
