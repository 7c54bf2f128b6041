package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/release"
)

const (
	testVariant  = "gpu-fan-control-2-fans"
	testFallback = "gpu-fan-control-static"
)

// releaseFixture describes what the fake release host serves.
type releaseFixture struct {
	// assets maps asset names to their contents.
	assets map[string][]byte
	// checksums is served as checksums.json when not nil.
	checksums map[string]string
	// manifest is served at /raw/main/version.toml.
	manifest string
	// apiHits counts release API requests.
	apiHits atomic.Int32
	// authHeader is the last Authorization header seen by the release API.
	authHeader atomic.Value
}

// newReleaseServer starts a fake release host for fixture.
func newReleaseServer(t *testing.T, fixture *releaseFixture) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	mux := http.NewServeMux()

	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fixture.apiHits.Add(1)
		fixture.authHeader.Store(r.Header.Get("Authorization"))

		names := make([]string, 0, len(fixture.assets)+1)
		for name := range fixture.assets {
			names = append(names, name)
		}

		if fixture.checksums != nil {
			names = append(names, config.DefaultChecksumAsset)
		}

		sort.Strings(names)

		descriptor := release.Release{TagName: "v2.0.0"}
		for _, name := range names {
			descriptor.Assets = append(descriptor.Assets, release.Asset{
				Name:        name,
				DownloadURL: srv.URL + "/download/" + name,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(descriptor)
	})

	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/download/")
		if name == config.DefaultChecksumAsset && fixture.checksums != nil {
			_ = json.NewEncoder(w).Encode(fixture.checksums)

			return
		}

		contents, ok := fixture.assets[name]
		if !ok {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(contents)
	})

	mux.HandleFunc("/raw/main/version.toml", func(w http.ResponseWriter, r *http.Request) {
		if fixture.manifest == "" {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write([]byte(fixture.manifest))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// testSettings returns update settings pointing at srv.
func testSettings(srv *httptest.Server, strategy string) *config.UpdateConfig {
	return &config.UpdateConfig{
		RepositoryURL:   srv.URL,
		VersionManifest: config.DefaultVersionManifest,
		ReleaseAPIURL:   srv.URL + "/releases/latest",
		ChecksumAsset:   config.DefaultChecksumAsset,
		FallbackAsset:   testFallback,
		CommitStrategy:  strategy,
		Timeout:         5 * time.Second,
	}
}

// sha256Hex returns the lowercase hex digest of data.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// quoted wraps a digest in one layer of JSON quotes, as the publisher does.
func quoted(digest string) string {
	return `"` + digest + `"`
}

// writeFile creates a file with contents and returns its path.
func writeFile(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, contents, 0o755))

	return path
}

// readFile returns the contents of path.
func readFile(t *testing.T, path string) []byte {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	return contents
}

// errNoPath is returned by fakeProcess when no executable path is set.
var errNoPath = errors.New("executable path unavailable")

// fakeProcess implements ps.Process and reports path as its executable.
type fakeProcess struct {
	pid  int
	name string
	path string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

func (p fakeProcess) Path() (string, error) {
	if p.path == "" {
		return "", errNoPath
	}

	return p.path, nil
}

// processes returns a ProcessLister with fixed results.
func processes(list ...ps.Process) ProcessLister {
	return func() ([]ps.Process, error) {
		return list, nil
	}
}
