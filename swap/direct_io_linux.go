//go:build linux
// +build linux

package swap

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openSwapFile opens the swap file with the kernel page cache bypassed.
func openSwapFile(filePath string, permissions os.FileMode) (*os.File, error) {

	fd, err := unix.Open(filePath, os.O_RDWR|os.O_CREATE|syscall.O_DIRECT, uint32(permissions))

	if err != nil {
		return nil, err
	}

	return os.NewFile(uintptr(fd), filePath), nil
}
