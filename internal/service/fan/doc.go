// Package fan drives GPU fans through vendor tools.
package fan
