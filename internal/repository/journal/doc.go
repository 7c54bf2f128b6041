// Package journal implements persistence for the in-flight commit record.
//
// The FileRepository stores the entry as YAML next to the running binary, so an
// update interrupted between deleting the old binary and renaming the new one
// can be repaired by the updater itself or by starting the leftover download.
package journal
