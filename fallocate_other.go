//go:build !linux && !darwin

package gcset

import "os"

// fallocateFile reserves disk blocks for the output file so a full disk
// fails before any section is written rather than mid-stream.
// On platforms without native fallocate, uses Truncate as a fallback.
// Note: This sets file size but may not reserve actual disk blocks on all filesystems.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}
