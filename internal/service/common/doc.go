// Package common holds helpers shared by several services.
//
// It detects the current system actor (hostname/username) for audit logs and
// privilege checks, and wraps external command execution behind CommandRunner
// so vendor tools can be faked in tests.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
