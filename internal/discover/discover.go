// Package discover resolves the guest-side destination address when it is
// not configured explicitly. On Windows hosts the WSL2 virtual machine
// reports its addresses through `wsl.exe hostname -I`.
package discover

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"
)

// detectTimeout bounds the guest query; a hung VM must not stall startup.
const detectTimeout = 3 * time.Second

// GuestIPv4 queries the WSL2 guest for its IPv4 address and returns the
// first one reported. The guest must be running; a stopped distro fails
// the query.
func GuestIPv4(ctx context.Context) (net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "wsl.exe", "hostname", "-I").Output()
	if err != nil {
		return nil, fmt.Errorf("query guest address: %w", err)
	}

	ip := FirstIPv4(string(out))
	if ip == nil {
		return nil, fmt.Errorf("guest reported no IPv4 address in %q", strings.TrimSpace(string(out)))
	}
	return ip, nil
}

// FirstIPv4 returns the first IPv4 address found among whitespace-separated
// tokens, or nil if there is none. IPv6 tokens are skipped.
func FirstIPv4(s string) net.IP {
	for _, tok := range strings.Fields(s) {
		if ip := net.ParseIP(tok); ip != nil && ip.To4() != nil {
			return ip.To4()
		}
	}
	return nil
}
