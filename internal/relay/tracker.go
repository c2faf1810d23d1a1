package relay

import (
	"net"
	"sync"
)

// SenderTracker remembers the most recently accepted host-side sender for
// one forwarded port. The forward loop records, the reverse loop reads;
// the last completed Record wins. No history is kept.
type SenderTracker struct {
	mu   sync.Mutex
	last *net.UDPAddr
}

// Record overwrites the last-known sender unconditionally.
func (t *SenderTracker) Record(addr *net.UDPAddr) {
	t.mu.Lock()
	t.last = addr
	t.mu.Unlock()
}

// Last returns the most recently recorded sender, or nil if no accepted
// packet has arrived yet.
func (t *SenderTracker) Last() *net.UDPAddr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
