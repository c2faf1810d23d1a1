package relay

import (
	"fmt"
	"net"
)

// SubnetFilter decides whether a host-side sender is accepted. It is
// stateless once constructed and safe for concurrent use.
type SubnetFilter struct {
	network *net.IPNet
}

// ParseSubnetFilter builds a filter from a CIDR string. An empty string
// yields a filter that accepts every sender. A malformed CIDR is a
// configuration error and is rejected here, before any socket is opened.
func ParseSubnetFilter(cidr string) (*SubnetFilter, error) {
	if cidr == "" {
		return &SubnetFilter{}, nil
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid source subnet %q: %w", cidr, err)
	}
	return &SubnetFilter{network: network}, nil
}

// Accepts reports whether ip falls inside the configured subnet.
// A nil filter or a filter without a subnet accepts everything.
func (f *SubnetFilter) Accepts(ip net.IP) bool {
	if f == nil || f.network == nil {
		return true
	}
	return f.network.Contains(ip)
}

// String returns the configured CIDR, or "any" when unrestricted.
func (f *SubnetFilter) String() string {
	if f == nil || f.network == nil {
		return "any"
	}
	return f.network.String()
}
