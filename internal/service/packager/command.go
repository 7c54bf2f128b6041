package packager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/oshokin/gpu-fan-control/internal/config"
	"github.com/oshokin/gpu-fan-control/internal/domain/release"
	"github.com/oshokin/gpu-fan-control/internal/logger"
	"github.com/oshokin/gpu-fan-control/internal/service/updater"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Assets are the paths of the release binaries to describe.
	Assets []string
	// Output is where the manifest is written (defaults to checksums.json).
	Output string
}

// packager builds the checksum manifest for a set of release assets.
type packager struct {
	opts      *Options          // Inputs of this run.
	checksums release.Checksums // Asset name to quoted digest.
}

var (
	// errNoAssets is returned when no asset paths were given.
	errNoAssets = errors.New("no release assets given")
	// errDuplicateAsset is returned when two paths share a base name.
	errDuplicateAsset = errors.New("duplicate asset name")
)

// DefaultFileMode is the permission of the written manifest.
const DefaultFileMode = 0o644

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "packager")

	if opts == nil || len(opts.Assets) == 0 {
		return errNoAssets
	}

	if opts.Output == "" {
		opts.Output = config.DefaultChecksumAsset
	}

	p := &packager{
		opts:      opts,
		checksums: make(release.Checksums, len(opts.Assets)),
	}

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// Run digests every asset and writes the manifest.
func (p *packager) Run(ctx context.Context) error {
	logger.Info(ctx, "Computing release checksums")

	if err := p.fillChecksums(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saving checksum manifest", "path", p.opts.Output)

	if err := p.saveChecksums(); err != nil {
		return err
	}

	p.printNextSteps(ctx)

	return nil
}

// fillChecksums stores the quoted digest of every asset under its base name.
func (p *packager) fillChecksums(ctx context.Context) error {
	for _, path := range p.opts.Assets {
		name := filepath.Base(path)
		if _, ok := p.checksums[name]; ok {
			return fmt.Errorf("%w: %s", errDuplicateAsset, name)
		}

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, os.ErrNotExist)
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		digest, err := updater.FileDigest(path)
		if err != nil {
			return err
		}

		p.checksums[name] = release.Digest(strconv.Quote(digest))

		logger.DebugKV(ctx, "Computed checksum", "asset", name, "sha256", digest)
	}

	return nil
}

// saveChecksums writes the manifest as indented JSON.
func (p *packager) saveChecksums() error {
	contents, err := json.MarshalIndent(p.checksums, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(p.opts.Output, append(contents, '\n'), DefaultFileMode)
}

// printNextSteps logs the files to attach to the release.
func (p *packager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(p.checksums)+1)
	for name := range p.checksums {
		files = append(files, name)
	}

	files = append(files, filepath.Base(p.opts.Output))
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("You should attach the following files to the release:\n")
	builder.WriteString(strings.Join(files, ",\n"))

	logger.Info(ctx, builder.String())
}
