package release

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// errEmptyVersion is returned when a version string has no components.
var errEmptyVersion = errors.New("empty version string")

// VersionString is an ordered sequence of non-negative integer components,
// parsed from a dot-separated string such as "1.10.0". Its length is not fixed.
type VersionString []uint64

// ParseVersion splits s on "." and parses each component as an unsigned integer.
func ParseVersion(s string) (VersionString, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyVersion
	}

	parts := strings.Split(s, ".")
	version := make(VersionString, 0, len(parts))

	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("version %q component %q: %w", s, part, err)
		}

		version = append(version, n)
	}

	return version, nil
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than other.
// Missing trailing components count as zero, so "1.2" equals "1.2.0".
func (v VersionString) Compare(other VersionString) int {
	for i := range max(len(v), len(other)) {
		a, b := v.component(i), other.component(i)

		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}

	return 0
}

// OlderThan reports whether v is strictly lower than other.
func (v VersionString) OlderThan(other VersionString) bool {
	return v.Compare(other) < 0
}

// String renders the version in its dot-separated form.
func (v VersionString) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}

	return strings.Join(parts, ".")
}

// component returns the i-th component or zero past the end.
func (v VersionString) component(i int) uint64 {
	if i < len(v) {
		return v[i]
	}

	return 0
}

// IsOlder parses both versions and reports whether current is older than remote.
func IsOlder(current, remote string) (bool, error) {
	cv, err := ParseVersion(current)
	if err != nil {
		return false, fmt.Errorf("parse current version: %w", err)
	}

	rv, err := ParseVersion(remote)
	if err != nil {
		return false, fmt.Errorf("parse remote version: %w", err)
	}

	return cv.OlderThan(rv), nil
}
