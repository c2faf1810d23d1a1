// Package relay implements per-port bidirectional UDP forwarding between a
// host-side adapter and a fixed destination on an isolated guest network.
package relay

import (
	"fmt"
	"net"
)

// Rule is the immutable per-port forwarding configuration. The same port
// number is used on both sides; there is no port translation.
type Rule struct {
	// ListenIP is the host-side address to bind. May be the wildcard
	// address to listen on every adapter.
	ListenIP net.IP

	// Port is the UDP port forwarded identically on both sides.
	Port uint16

	// DestinationIP is the guest-side target for host traffic.
	DestinationIP net.IP

	// Bidirectional enables relaying destination replies back to the
	// last accepted host-side sender.
	Bidirectional bool

	// Filter restricts accepted host-side senders. A nil filter
	// accepts every sender.
	Filter *SubnetFilter
}

func (r Rule) listenAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: r.ListenIP, Port: int(r.Port)}
}

func (r Rule) destinationAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: r.DestinationIP, Port: int(r.Port)}
}

// String returns a human-readable representation of the rule.
func (r Rule) String() string {
	arrow := "->"
	if r.Bidirectional {
		arrow = "<->"
	}
	return fmt.Sprintf("%s %s %s", r.listenAddr(), arrow, r.destinationAddr())
}
