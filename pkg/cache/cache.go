// Package cache provides persistent caching of layout runs and rendered
// artifacts.
//
// Three backends implement the Cache interface:
//   - FileCache: a directory of JSON entries, for CLI usage
//   - RedisCache: a shared store for long-lived serve deployments
//   - NullCache: discards everything, for tests and uncached runs
//
// Keys are derived through a Keyer so every caller builds them the same
// way. A sweep that replays a plan against an unchanged graph and parameter
// set then hits the cache instead of re-running the simulation, and a serve
// instance reuses renders across requests.
package cache

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL is how long cached layout runs stay valid by default.
const DefaultTTL = 24 * time.Hour

// Cache is a byte-oriented store with per-entry expiry.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ArtifactKeyOpts distinguishes rendered artifacts of one layout run.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Keyer derives cache keys from layout identities.
type Keyer interface {
	// GraphKey identifies a built graph by its construction inputs. Equal
	// counts and seed always build the identical graph, so the inputs are
	// the identity.
	GraphKey(servers, clients, printers int, seed uint64) string

	// RunKey identifies a layout run by graph identity and parameter set.
	// params is marshaled into the hash; pass the exact value the run used.
	RunKey(graphKey string, params any) string

	// ArtifactKey identifies one rendered artifact of one run.
	ArtifactKey(runKey string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key derivation.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey returns a readable key; the construction inputs are short enough
// to embed directly.
func (k *DefaultKeyer) GraphKey(servers, clients, printers int, seed uint64) string {
	return fmt.Sprintf("graph:%d:%d:%d:%d", servers, clients, printers, seed)
}

// RunKey hashes the graph identity together with the parameter set.
func (k *DefaultKeyer) RunKey(graphKey string, params any) string {
	return hashKey("run", graphKey, params)
}

// ArtifactKey hashes the run identity together with the render options.
func (k *DefaultKeyer) ArtifactKey(runKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", runKey, opts)
}
