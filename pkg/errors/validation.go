package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateOutputPath validates a user-supplied output file path.
// It rejects paths that could be used for traversal or injection and is
// intentionally conservative; callers decide whether the file may exist.
//
// The validation rules:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 500 characters
//   - No parent-directory traversal sequences (..)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "output path cannot contain traversal sequences (..)")
	}

	return nil
}

// listenAddrRegex matches host:port listen addresses. The host part may be
// empty (all interfaces), a hostname, or an IPv4 address; bracketed IPv6 is
// accepted as well.
var listenAddrRegex = regexp.MustCompile(`^(\[[0-9a-fA-F:]+\]|[a-zA-Z0-9.-]*)?:[0-9]{1,5}$`)

// ValidateListenAddr validates an HTTP listen address of the form host:port.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidAddr, "listen address cannot be empty")
	}

	if !listenAddrRegex.MatchString(addr) {
		return New(ErrCodeInvalidAddr, "invalid listen address: %q (want host:port)", addr)
	}

	return nil
}

// ValidateRedisAddr validates a Redis server address of the form host:port.
func ValidateRedisAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidAddr, "redis address cannot be empty")
	}

	if strings.Contains(addr, "://") {
		return New(ErrCodeInvalidAddr, "redis address must be host:port, not a URL: %q", addr)
	}

	if !strings.Contains(addr, ":") {
		return New(ErrCodeInvalidAddr, "redis address missing port: %q", addr)
	}

	return nil
}

// ValidateMongoURI validates a MongoDB connection string.
// Only the scheme is checked here; the driver performs full parsing.
func ValidateMongoURI(uri string) error {
	if uri == "" {
		return New(ErrCodeInvalidAddr, "mongo URI cannot be empty")
	}

	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return New(ErrCodeInvalidAddr, "mongo URI must use the mongodb:// or mongodb+srv:// scheme")
	}

	return nil
}

// scopeNameRegex matches valid cache scope names.
var scopeNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateScopeName validates a cache scope name. Scope names become path
// components under the cache directory, so the rules mirror safe filenames:
// lowercase alphanumerics plus dot, underscore, and dash, not starting with
// a separator character.
func ValidateScopeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "scope name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "scope name too long (max 128 characters)")
	}

	if !scopeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid scope name: %q", name)
	}

	return nil
}
