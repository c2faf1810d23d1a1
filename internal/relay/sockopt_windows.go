//go:build windows

package relay

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// controlReuseAddr sets SO_REUSEADDR on the socket before bind.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
