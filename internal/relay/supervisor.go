package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/perimeterlab/udpbridge/internal/logging"
	"github.com/perimeterlab/udpbridge/internal/metrics"
)

// Stats is a snapshot of the supervisor and its forwarders.
type Stats struct {
	Running    bool             `json:"running"`
	Forwarders []ForwarderStats `json:"forwarders"`
}

// ForwarderStats is a snapshot of one forwarder's traffic counters.
type ForwarderStats struct {
	Port           uint16 `json:"port"`
	Bidirectional  bool   `json:"bidirectional"`
	ForwardPackets int64  `json:"forward_packets"`
	ForwardBytes   int64  `json:"forward_bytes"`
	ReversePackets int64  `json:"reverse_packets"`
	ReverseBytes   int64  `json:"reverse_bytes"`
}

// Supervisor owns one PortForwarder per rule and runs them concurrently
// for the lifetime of the process. A failed forwarder is never restarted.
type Supervisor struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	forwarders []*PortForwarder

	running  atomic.Bool
	stopOnce sync.Once
}

// NewSupervisor validates the rule set and builds a supervisor. Rules
// must be non-empty and ports unique; both are configuration errors
// caught before any socket is opened.
func NewSupervisor(rules []Rule, logger *slog.Logger, m *metrics.Metrics) (*Supervisor, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("no forwarding rules configured")
	}

	seen := make(map[uint16]bool, len(rules))
	for _, r := range rules {
		if r.Port == 0 {
			return nil, fmt.Errorf("port 0 is not forwardable")
		}
		if seen[r.Port] {
			return nil, fmt.Errorf("duplicate port %d in rule set", r.Port)
		}
		seen[r.Port] = true
	}

	s := &Supervisor{
		logger:  logger.With(slog.String(logging.KeyComponent, "supervisor")),
		metrics: m,
	}
	for _, r := range rules {
		s.forwarders = append(s.forwarders, NewPortForwarder(r, logger, m))
	}
	return s, nil
}

// Start launches every forwarder. Any bind failure aborts the whole run:
// forwarders already started are stopped and the error is returned.
// Partial forwarding would silently hide a misconfiguration.
func (s *Supervisor) Start() error {
	if s.running.Load() {
		return fmt.Errorf("supervisor already running")
	}

	for i, f := range s.forwarders {
		if err := f.Start(); err != nil {
			for _, started := range s.forwarders[:i] {
				started.Stop()
			}
			return fmt.Errorf("start forwarder on port %d: %w", f.Rule().Port, err)
		}
	}

	s.running.Store(true)
	s.logger.Info("all forwarders running", logging.KeyCount, len(s.forwarders))
	return nil
}

// Stop requests every forwarder to stop and waits until all sockets are
// closed and all relay loops have exited. Safe to call multiple times.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		for _, f := range s.forwarders {
			f.Stop()
		}
		s.logger.Info("all forwarders stopped", logging.KeyCount, len(s.forwarders))
	})
}

// Run starts the forwarders, blocks until ctx is cancelled, then stops
// them. This is the lifecycle used by the CLI.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// IsRunning reports whether the supervisor has started and not stopped.
func (s *Supervisor) IsRunning() bool {
	return s.running.Load()
}

// Stats returns a snapshot of every forwarder's counters.
func (s *Supervisor) Stats() Stats {
	st := Stats{Running: s.running.Load()}
	for _, f := range s.forwarders {
		st.Forwarders = append(st.Forwarders, f.Stats())
	}
	return st
}
