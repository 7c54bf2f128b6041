package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/service/common"
)

// Suffix is appended to the binary path to form the journal path.
const Suffix = ".update-journal.yaml"

// Entry records a single commit attempt.
type Entry struct {
	// FinalPath is the running binary being replaced.
	FinalPath string `yaml:"final_path"`
	// TempPath is the verified download waiting to be moved into place.
	TempPath string `yaml:"temp_path"`
	// Digest is the published digest the temp file was verified against.
	Digest string `yaml:"digest"`
	// Asset is the release asset name that was downloaded.
	Asset string `yaml:"asset"`
	// Actor is who started the update.
	Actor *common.Actor `yaml:"actor,omitempty"`
	// Stage is the last stage reached.
	Stage release.Stage `yaml:"stage"`
	// StartedAt is when the commit began.
	StartedAt time.Time `yaml:"started_at"`
}

// Repository defines persistence operations for the commit journal.
type Repository interface {
	Load(ctx context.Context) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	Clear(ctx context.Context) error
}

// FileRepository persists the journal entry to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the journal file.
	path string
	// mu protects concurrent access to the journal file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no journal exists.
	ErrNotFound = errors.New("journal not found")

	// errNilEntry is returned when Save receives nil.
	errNilEntry = errors.New("journal entry is nil")
)

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// PathFor returns the journal location for a binary.
func PathFor(binaryPath string) string {
	return binaryPath + Suffix
}

// Path returns the journal location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the entry from disk.
func (r *FileRepository) Load(_ context.Context) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var entry Entry
	if err = yaml.Unmarshal(contents, &entry); err != nil {
		return nil, fmt.Errorf("decode journal file: %w", err)
	}

	return &entry, nil
}

// Save writes the entry to disk and syncs it, so the record survives a crash
// that happens right after.
func (r *FileRepository) Save(_ context.Context, entry *Entry) error {
	if entry == nil {
		return errNilEntry
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}

	if _, err = file.Write(data); err != nil {
		_ = file.Close()

		return fmt.Errorf("write journal file: %w", err)
	}

	if err = file.Sync(); err != nil {
		_ = file.Close()

		return fmt.Errorf("sync journal file: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close journal file: %w", err)
	}

	return nil
}

// Clear removes the journal. A missing journal is not an error.
func (r *FileRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove journal file: %w", err)
	}

	return nil
}
