// Package display renders the GPU state centered in the terminal.
package display
