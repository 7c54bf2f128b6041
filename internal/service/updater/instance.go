package updater

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/gpu-fan-control/internal/logger"
)

const (
	// commMaxLen is the length at which Linux truncates process names.
	commMaxLen = 15

	// deletedSuffix marks /proc/<pid>/exe links of replaced binaries.
	deletedSuffix = " (deleted)"
)

// ProcessLister returns the running processes.
type ProcessLister func() ([]ps.Process, error)

// EnsureSingleInstance fails with ErrInstanceRunning when a process other than
// this one runs the same executable.
func EnsureSingleInstance(ctx context.Context, binaryPath string, list ProcessLister) error {
	if list == nil {
		list = ps.Processes
	}

	processList, err := list()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes, skipping instance check", "error", err)

		return nil
	}

	var (
		name          = filepath.Base(binaryPath)
		thisProcessID = os.Getpid()
	)

	binaryPath = filepath.Clean(binaryPath)

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !sameExecutable(process, binaryPath) {
			continue
		}

		return fmt.Errorf("%w: %s (pid %d)", ErrInstanceRunning, name, process.Pid())
	}

	return nil
}

// pathReporter is implemented by processes that know their executable path.
type pathReporter interface {
	Path() (string, error)
}

// sameExecutable reports whether process runs the binary at binaryPath.
// Names shorter than the kernel limit are compared as is. A name at the limit
// may be truncated or shared by several variants, so the executable path of
// the process decides; when it cannot be read only an exact name matches.
func sameExecutable(process ps.Process, binaryPath string) bool {
	var (
		processName = process.Executable()
		binaryName  = filepath.Base(binaryPath)
	)

	if processName == "" {
		return false
	}

	if len(processName) < commMaxLen {
		return processName == binaryName
	}

	if !strings.HasPrefix(binaryName, processName) {
		return false
	}

	executable, err := executablePath(process)
	if err != nil {
		return processName == binaryName
	}

	return filepath.Clean(strings.TrimSuffix(executable, deletedSuffix)) == binaryPath
}

// executablePath returns the executable of process, from /proc on Linux.
func executablePath(process ps.Process) (string, error) {
	if reporter, ok := process.(pathReporter); ok {
		return reporter.Path()
	}

	return os.Readlink(filepath.Join("/proc", strconv.Itoa(process.Pid()), "exe"))
}
