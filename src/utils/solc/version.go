package solc

import (
	"fmt"
	"regexp"
	"strings"
)

var exactVersionRe = regexp.MustCompile(`^(\d+\.\d+\.\d+)([+-].*)?$`)

// ParseVersion normalizes a declared compiler version like
// "v0.8.19+commit.7dd6d404" to the exact pinned form "0.8.19".
// Ranges ("^0.8.0", ">=0.7.0") and wildcards are rejected with
// ErrAmbiguousVersion, pinning must have happened upstream.
func ParseVersion(raw string) (version string, err error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "v")

	match := exactVersionRe.FindStringSubmatch(trimmed)
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrAmbiguousVersion, raw)
	}

	// Nightly builds carry a prerelease suffix and don't map to a released
	// binary
	if strings.HasPrefix(match[2], "-") {
		return "", fmt.Errorf("%w: prerelease %q", ErrAmbiguousVersion, raw)
	}

	return match[1], nil
}

// BinaryName is the file name a cached compiler binary is stored under
func BinaryName(version string) string {
	return "solc-v" + version
}
