// Package config defines the settings shared by the monitor loop and the
// self-update pipeline, and provides helpers to load, validate and save them.
//
// Load reads an optional YAML file through viper and applies FANCTL_*
// environment overrides (FANCTL_UPDATE_TIMEOUT for update.timeout, and so on).
// Save writes the YAML form with restricted permissions.
package config
