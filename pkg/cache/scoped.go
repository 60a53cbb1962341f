package cache

// ScopedKeyer wraps a Keyer with a prefix so callers sharing one backend
// stay isolated: sweep plans get a scope per plan name, serve deployments
// one per instance.
//
// Example usage:
//
//	// Keys private to one sweep plan
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "sweep.office-lan:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer whose prefix is prepended to every
// generated key. A nil inner keyer falls back to the default derivation.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed graph identity key.
func (k *ScopedKeyer) GraphKey(servers, clients, printers int, seed uint64) string {
	return k.prefix + k.inner.GraphKey(servers, clients, printers, seed)
}

// RunKey generates a prefixed layout run key.
func (k *ScopedKeyer) RunKey(graphKey string, params any) string {
	return k.prefix + k.inner.RunKey(graphKey, params)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(runKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(runKey, opts)
}
