package git

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// MinUndoVersion is the oldest git version whose reference-transaction
// hook makes undo fully reliable.
const MinUndoVersion = "v2.29.0"

// Version returns the git version in canonical semver form ("v2.39.2").
func Version(ctx context.Context) (string, error) {
	out, err := output(ctx, ".", "version")
	if err != nil {
		return "", fmt.Errorf("determining git version: %w", err)
	}
	return ParseVersion(out)
}

// ParseVersion canonicalizes the output of `git version`. Vendor
// suffixes like "2.37.1.windows.1" are truncated to the first three
// components.
func ParseVersion(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "git version ")
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return "", fmt.Errorf("parsing git version string: %q", s)
	}
	return v, nil
}

// SupportsUndo reports whether the given canonical version meets the
// undo requirement.
func SupportsUndo(version string) bool {
	return semver.Compare(version, MinUndoVersion) >= 0
}
