//go:build !(linux || darwin || freebsd || dragonfly || windows)

package service

import (
	"errors"
	"fmt"
)

func diskAvailable(dir string) (int64, error) {
	return 0, fmt.Errorf("disk space %s: %w", dir, errors.ErrUnsupported)
}
