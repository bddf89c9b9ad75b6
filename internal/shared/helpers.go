// Package shared provides common utility functions used across multiple
// packages in the raur codebase.
package shared

import (
	"fmt"
	"strings"
)

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return err
	}
	return fmt.Errorf("%s: %w", trimmed, err)
}

// IsDebugPackage reports whether name is a debug variant that should
// never be requested or installed on its own.
func IsDebugPackage(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{"-debug", "-dbg", "-dbgsym", "-debuginfo"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// ArtifactPackageName returns the pkgname of a built package file named
// "<pkgname>-<pkgver>-<pkgrel>-<arch>.pkg.tar.*". The second result is
// false for anything else.
func ArtifactPackageName(file string) (string, bool) {
	base := file
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	idx := strings.Index(base, ".pkg.tar")
	if idx < 0 {
		return "", false
	}
	parts := strings.Split(base[:idx], "-")
	if len(parts) < 4 {
		return "", false
	}
	return strings.Join(parts[:len(parts)-3], "-"), true
}
