//go:build darwin
// +build darwin

package swap

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openSwapFile opens the swap file with the kernel page cache bypassed.
// Darwin has no O_DIRECT, caching is disabled with F_NOCACHE instead.
func openSwapFile(filePath string, permissions os.FileMode) (*os.File, error) {

	fd, err := unix.Open(filePath, os.O_RDWR|os.O_CREATE, uint32(permissions))

	if err != nil {
		return nil, err
	}

	file := os.NewFile(uintptr(fd), filePath)

	if _, _, errNum := syscall.Syscall(syscall.SYS_FCNTL, uintptr(fd), syscall.F_NOCACHE, uintptr(1)); errNum != 0 {
		file.Close()
		return nil, fmt.Errorf("error while opening swap file in DIRECT I/O mode")
	}

	return file, nil
}
