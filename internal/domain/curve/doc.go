// Package curve maps GPU temperatures to fan speeds.
package curve
