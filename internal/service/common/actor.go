//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"os/user"
)

// rootUID is the user id of the superuser on Unix systems.
const rootUID = "0"

// ErrNotRoot is returned when an operation needs superuser privileges.
var ErrNotRoot = errors.New("this program must be run with sudo privileges")

// Actor identifies who runs the program.
type Actor struct {
	// Hostname is the machine name.
	Hostname string `yaml:"hostname"`
	// Username is the system user running the process.
	Username string `yaml:"username"`
	// UID is the numeric user id as reported by the OS.
	UID string `yaml:"uid"`
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil {
		return ""
	}

	return a.Username + "@" + a.Hostname
}

// IsRoot reports whether the actor is the superuser.
func (a *Actor) IsRoot() bool {
	return a != nil && a.UID == rootUID
}

// DetectActor gathers host and user information for the audit trail.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
		UID:      currentUser.Uid,
	}, nil
}

// RequireRoot returns ErrNotRoot unless the process runs as the superuser.
func RequireRoot() error {
	actor, err := DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	if !actor.IsRoot() {
		return fmt.Errorf("%s: %w", actor, ErrNotRoot)
	}

	return nil
}
