// Package integration holds end-to-end tests that wire several services together.
package integration
