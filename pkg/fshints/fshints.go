// Package fshints provides the two filesystem I/O hints the kernel
// needs at its boundary: opening a file without disturbing its access
// time, and advising the OS that previously read pages are no longer
// needed.
package fshints

import (
	"os"

	"golang.org/x/sys/unix"
)

// OpenNoAtime opens path read-only, asking the kernel not to follow a
// trailing symlink and not to update the file's access time, where the
// platform supports both. If the no-atime open is rejected for a
// permission reason (O_NOATIME requires the caller to own the file or
// hold CAP_FOWNER on Linux), it retries without that flag. Any other
// error is returned as-is.
func OpenNoAtime(path string) (*os.File, error) {
	flags := os.O_RDONLY | unix.O_NOFOLLOW | unix.O_NOATIME

	f, err := os.OpenFile(path, flags, 0)
	if err == nil {
		return f, nil
	}

	if os.IsPermission(err) {
		return os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW, 0)
	}

	return nil, err
}

// FadviseDone hints that bytes [0, ofs) of f will not be needed again,
// letting the kernel drop their page-cache entries. It has no effect on
// platforms or filesystems without such a facility, and its error, if
// any, is informational only -- callers should not treat it as fatal.
func FadviseDone(f *os.File, ofs int64) error {
	return unix.Fadvise(int(f.Fd()), 0, ofs, unix.FADV_DONTNEED)
}
