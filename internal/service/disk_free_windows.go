//go:build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// diskAvailable reports the bytes the calling user may still write on the
// volume holding dir, honoring quotas.
func diskAvailable(dir string) (int64, error) {
	name, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, fmt.Errorf("disk space %s: %w", dir, err)
	}
	var avail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(name, &avail, &total, &free); err != nil {
		return 0, fmt.Errorf("disk space %s: %w", dir, err)
	}
	return int64(avail), nil
}
