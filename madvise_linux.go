//go:build linux

package gcset

import "golang.org/x/sys/unix"

// madviseRandom hints to the kernel that the mapped payload will be
// accessed at random offsets, which queries do after the anchor seek.
// Best-effort: errors are silently ignored.
func madviseRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}
