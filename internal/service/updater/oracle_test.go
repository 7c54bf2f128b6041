package updater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/version"
)

// TestExtractVersion covers TOML decoding and the line-scan fallback.
func TestExtractVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "top level", input: "version = \"1.2.3\"\n", want: "1.2.3"},
		{name: "package table", input: "[package]\nname = \"gpu-fan-control\"\nversion = \"0.4.1\"\n", want: "0.4.1"},
		{name: "not toml, quoted line", input: "# generated\n}{ junk\nversion = \"2.0.0\"\n", want: "2.0.0"},
		{name: "unquoted value", input: "}{\nversion = 2.0.0\n", wantErr: true},
		{name: "no version", input: "name = \"x\"\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractVersion([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrManifestParse)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestCheckRemoteVersion compares the compiled version with the published one.
func TestCheckRemoteVersion(t *testing.T) {
	t.Parallel()

	srv := newReleaseServer(t, &releaseFixture{manifest: "version = \"1.10.0\"\n"})
	client := NewClient()

	tests := []struct {
		compiled  string
		wantOlder bool
	}{
		{compiled: "1.9.9", wantOlder: true},
		{compiled: "1.10.0", wantOlder: false},
		{compiled: "1.10.1", wantOlder: false},
		{compiled: "1.10", wantOlder: false},
	}

	for _, tt := range tests {
		older, remote := client.CheckRemoteVersion(context.Background(), srv.URL, "version.toml", tt.compiled)
		require.Equal(t, tt.wantOlder, older, tt.compiled)
		require.Equal(t, "1.10.0", remote)
	}
}

// TestCheckRemoteVersion_Degrades verifies every failure yields (false, "0.0.0").
func TestCheckRemoteVersion_Degrades(t *testing.T) {
	t.Parallel()

	missing := newReleaseServer(t, &releaseFixture{})
	malformed := newReleaseServer(t, &releaseFixture{manifest: "version = \"one.two\"\n"})
	client := NewClient()

	tests := []struct {
		name    string
		repoURL string
	}{
		{name: "not found", repoURL: missing.URL},
		{name: "malformed version", repoURL: malformed.URL},
		{name: "unreachable", repoURL: "http://127.0.0.1:1"},
		{name: "invalid url", repoURL: "://nope"},
	}

	for _, tt := range tests {
		older, remote := client.CheckRemoteVersion(context.Background(), tt.repoURL, "version.toml", "1.0.0")
		require.False(t, older, tt.name)
		require.Equal(t, unknownRemoteVersion, remote, tt.name)
	}
}

// TestNotifyIfOutdated reports an outdated build.
func TestNotifyIfOutdated(t *testing.T) {
	t.Parallel()

	srv := newReleaseServer(t, &releaseFixture{manifest: "[package]\nversion = \"3.0.0\"\n"})
	settings := testSettings(srv, config.CommitSwap)

	require.True(t, NotifyIfOutdated(context.Background(), settings, version.Build{Version: "2.9.9"}, nil))
	require.False(t, NotifyIfOutdated(context.Background(), settings, version.Build{Version: "3.0.0"}, nil))
}
