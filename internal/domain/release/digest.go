package release

import (
	"strconv"
	"strings"
)

// Digest is a hex digest as published in the checksum manifest.
// The publishing process JSON-encodes each value twice, so a decoded Digest
// usually still carries one layer of quotes: `"deadbeef"`.
type Digest string

// Unquote removes exactly one layer of surrounding quotes and whitespace.
func (d Digest) Unquote() string {
	s := strings.TrimSpace(string(d))

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return strings.TrimSpace(unquoted)
		}

		return strings.TrimSpace(s[1 : len(s)-1])
	}

	return s
}

// Equal compares the unquoted digest with a locally computed hex digest.
// The comparison is case-insensitive.
func (d Digest) Equal(hexDigest string) bool {
	expected := d.Unquote()
	if expected == "" {
		return false
	}

	return strings.EqualFold(expected, strings.TrimSpace(hexDigest))
}

// Checksums maps binary variant names to their expected digests.
type Checksums map[string]Digest

// Lookup returns the digest published for name.
func (c Checksums) Lookup(name string) (Digest, bool) {
	digest, ok := c[name]
	if !ok || digest.Unquote() == "" {
		return "", false
	}

	return digest, true
}
