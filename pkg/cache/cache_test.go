package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	// Miss before Set
	if _, hit, err := c.Get(ctx, "run:abc"); err != nil || hit {
		t.Errorf("Get before Set = hit %v, err %v, want miss", hit, err)
	}

	// Round trip
	if err := c.Set(ctx, "run:abc", []byte("layout result"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "run:abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || string(data) != "layout result" {
		t.Errorf("Get = %q, hit %v, want the stored value", data, hit)
	}

	// Zero TTL entries never expire
	if err := c.Set(ctx, "run:keep", []byte("forever"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "run:keep"); !hit {
		t.Error("zero-TTL entry expired")
	}

	// Expired entries are misses
	if err := c.Set(ctx, "run:old", []byte("stale"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "run:old"); hit {
		t.Error("expired entry returned a hit")
	}

	// Delete removes, and deleting an absent key is fine
	if err := c.Delete(ctx, "run:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "run:abc"); hit {
		t.Error("deleted entry returned a hit")
	}
	if err := c.Delete(ctx, "run:absent"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// GraphKey embeds the construction inputs directly
	if got := k.GraphKey(4, 6, 2, 42); got != "graph:4:6:2:42" {
		t.Errorf("GraphKey unexpected: %s", got)
	}

	// RunKey should reflect the parameter set in the hash
	type params struct{ Damping float64 }
	rk1 := k.RunKey("graph:4:6:2:42", params{Damping: 0.85})
	rk2 := k.RunKey("graph:4:6:2:42", params{Damping: 0.7})
	if rk1 == rk2 {
		t.Error("Different params should produce different run keys")
	}
	if rk1 != k.RunKey("graph:4:6:2:42", params{Damping: 0.85}) {
		t.Error("RunKey should be deterministic")
	}

	// ArtifactKey should reflect the render options
	ak1 := k.ArtifactKey(rk1, ArtifactKeyOpts{Format: "svg", Width: 800})
	ak2 := k.ArtifactKey(rk1, ArtifactKeyOpts{Format: "png", Width: 800})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "sweep.office:")

	// All keys should be prefixed
	if got := scoped.GraphKey(4, 6, 0, 1); got != "sweep.office:graph:4:6:0:1" {
		t.Errorf("ScopedKeyer GraphKey unexpected: %s", got)
	}
	runKey := scoped.RunKey("graph:4:6:0:1", nil)
	if !strings.HasPrefix(runKey, "sweep.office:run:") {
		t.Errorf("ScopedKeyer RunKey should be prefixed: %s", runKey)
	}
	artifactKey := scoped.ArtifactKey(runKey, ArtifactKeyOpts{Format: "svg"})
	if !strings.HasPrefix(artifactKey, "sweep.office:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", artifactKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "scope:")
	if got := scoped.GraphKey(4, 6, 0, 1); got != "scope:graph:4:6:0:1" {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	base := errors.New("connection refused")

	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(base)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved, and errors.Is sees through the wrapper
	if err.Error() != base.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should match errors.Is")
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(base) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	permanent := errors.New("bad input")
	transient := errors.New("timeout")

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return permanent
	})
	if err != permanent {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(transient)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errors.New("timeout"))
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
