//go:build linux || darwin || freebsd || dragonfly

package service

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// diskAvailable reports the bytes an unprivileged writer may still use on
// the filesystem holding dir.
func diskAvailable(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
