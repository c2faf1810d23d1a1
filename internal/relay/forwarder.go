package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/perimeterlab/udpbridge/internal/logging"
	"github.com/perimeterlab/udpbridge/internal/metrics"
	"github.com/perimeterlab/udpbridge/internal/recovery"
)

const (
	// maxDatagramSize is the largest UDP payload a single read can return.
	maxDatagramSize = 65535

	// socketBufferBytes sizes the kernel receive/send buffers. Bursty
	// sensor streams are absorbed by the OS instead of an in-process queue.
	socketBufferBytes = 4 * 1024 * 1024

	// readTimeout bounds each blocking receive so loops notice a stop
	// request. Closed sockets also unblock reads immediately.
	readTimeout = 1 * time.Second

	// packetMilestone is the forwarded-packet interval between progress
	// log lines on the forward path.
	packetMilestone = 1_000_000
)

// PortForwarder relays datagrams for one Rule until stopped. The forward
// loop moves host traffic to the destination; the reverse loop, when
// enabled, moves destination replies to the last accepted host-side sender.
type PortForwarder struct {
	rule    Rule
	logger  *slog.Logger
	metrics *metrics.Metrics

	// hostConn is bound to (ListenIP, Port) on the host side.
	// destConn is connected to (DestinationIP, Port) from an ephemeral
	// local port and receives only that peer's replies.
	hostConn *net.UDPConn
	destConn *net.UDPConn

	tracker SenderTracker

	// errLog throttles per-packet error logging in the hot loops.
	errLog *rate.Limiter

	started  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	forwardPackets atomic.Int64
	forwardBytes   atomic.Int64
	reversePackets atomic.Int64
	reverseBytes   atomic.Int64
}

// NewPortForwarder creates a forwarder for the given rule. Call Start to
// open sockets and begin relaying.
func NewPortForwarder(rule Rule, logger *slog.Logger, m *metrics.Metrics) *PortForwarder {
	return &PortForwarder{
		rule:    rule,
		logger:  logger.With(slog.Int(logging.KeyPort, int(rule.Port))),
		metrics: m,
		errLog:  rate.NewLimiter(rate.Limit(1), 5),
		done:    make(chan struct{}),
	}
}

// Rule returns the forwarder's immutable configuration.
func (f *PortForwarder) Rule() Rule {
	return f.rule
}

// Start opens both sockets and launches the relay loops. A bind failure
// is fatal for this forwarder and is returned to the caller; no loop is
// started in that case.
func (f *PortForwarder) Start() error {
	hostConn, err := listenUDP(f.rule.listenAddr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", f.rule.listenAddr(), err)
	}

	destConn, err := net.DialUDP("udp", nil, f.rule.destinationAddr())
	if err != nil {
		hostConn.Close()
		return fmt.Errorf("open destination socket for %s: %w", f.rule.destinationAddr(), err)
	}

	tuneSocket(f.logger, hostConn)
	tuneSocket(f.logger, destConn)

	f.hostConn = hostConn
	f.destConn = destConn

	f.wg.Add(1)
	go f.forwardLoop()

	if f.rule.Bidirectional {
		f.wg.Add(1)
		go f.reverseLoop()
	}

	f.started.Store(true)
	f.metrics.RecordForwarderStart()
	f.logger.Info("forwarder started",
		logging.KeyListenAddr, f.rule.listenAddr().String(),
		logging.KeyDestAddr, f.rule.destinationAddr().String(),
		logging.KeySubnet, f.rule.Filter.String(),
		"bidirectional", f.rule.Bidirectional)

	return nil
}

// Stop closes both sockets exactly once and waits for the relay loops to
// exit. Safe to call from any goroutine, multiple times.
func (f *PortForwarder) Stop() {
	f.stopOnce.Do(func() {
		close(f.done)
		if f.hostConn != nil {
			f.hostConn.Close()
		}
		if f.destConn != nil {
			f.destConn.Close()
		}
	})
	f.wg.Wait()

	if f.started.CompareAndSwap(true, false) {
		f.metrics.RecordForwarderStop()
		f.logger.Info("forwarder stopped",
			logging.KeyPackets, f.forwardPackets.Load(),
			logging.KeyBytes, humanize.IBytes(uint64(f.forwardBytes.Load())))
	}
}

// Stats returns the forwarder's traffic counters.
func (f *PortForwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Port:           f.rule.Port,
		Bidirectional:  f.rule.Bidirectional,
		ForwardPackets: f.forwardPackets.Load(),
		ForwardBytes:   f.forwardBytes.Load(),
		ReversePackets: f.reversePackets.Load(),
		ReverseBytes:   f.reverseBytes.Load(),
	}
}

// forwardLoop receives host-side datagrams and relays accepted ones to
// the destination. Rejected senders are dropped silently; UDP has no
// connection to reset.
func (f *PortForwarder) forwardLoop() {
	defer f.wg.Done()
	defer recovery.LogPanic(f.logger, "forward")

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.hostConn.SetReadDeadline(time.Now().Add(readTimeout))
		n, src, err := f.hostConn.ReadFromUDP(buf)
		if err != nil {
			if !f.handleReadErr(err, metrics.DirectionForward) {
				return
			}
			continue
		}

		if !f.rule.Filter.Accepts(src.IP) {
			f.metrics.RecordDropped(f.rule.Port, metrics.DropFiltered)
			continue
		}

		f.tracker.Record(src)

		if _, err := f.destConn.Write(buf[:n]); err != nil {
			f.metrics.RecordDropped(f.rule.Port, metrics.DropSendError)
			if f.errLog.Allow() {
				f.logger.Warn("send to destination failed",
					logging.KeyDestAddr, f.rule.destinationAddr().String(),
					logging.KeyError, err)
			}
			continue
		}

		f.metrics.RecordForwarded(f.rule.Port, metrics.DirectionForward, n)
		f.forwardBytes.Add(int64(n))
		if total := f.forwardPackets.Add(1); total%packetMilestone == 0 {
			f.logger.Info("relay progress",
				logging.KeyPackets, total,
				logging.KeyBytes, humanize.IBytes(uint64(f.forwardBytes.Load())))
		}
	}
}

// reverseLoop receives destination replies and relays them to the last
// accepted host-side sender. Replies arriving before any sender is known
// are dropped silently.
func (f *PortForwarder) reverseLoop() {
	defer f.wg.Done()
	defer recovery.LogPanic(f.logger, "reverse")

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.destConn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := f.destConn.Read(buf)
		if err != nil {
			if !f.handleReadErr(err, metrics.DirectionReverse) {
				return
			}
			continue
		}

		last := f.tracker.Last()
		if last == nil {
			f.metrics.RecordDropped(f.rule.Port, metrics.DropNoSender)
			continue
		}

		if _, err := f.hostConn.WriteToUDP(buf[:n], last); err != nil {
			f.metrics.RecordDropped(f.rule.Port, metrics.DropSendError)
			if f.errLog.Allow() {
				f.logger.Warn("send to host sender failed",
					logging.KeyRemoteAddr, last.String(),
					logging.KeyError, err)
			}
			continue
		}

		f.metrics.RecordForwarded(f.rule.Port, metrics.DirectionReverse, n)
		f.reversePackets.Add(1)
		f.reverseBytes.Add(int64(n))
	}
}

// handleReadErr classifies a receive error. It returns false when the
// loop should exit: the forwarder is stopping or the socket is gone.
// Transient errors (deadline expiry, ICMP unreachable surfaced on the
// connected socket) are absorbed and the loop continues.
func (f *PortForwarder) handleReadErr(err error, direction string) bool {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	select {
	case <-f.done:
		return false
	default:
	}

	f.metrics.RecordReceiveError(f.rule.Port, direction)
	if f.errLog.Allow() {
		f.logger.Warn("receive failed",
			logging.KeyDirection, direction,
			logging.KeyError, err)
	}
	return true
}

// listenUDP binds a UDP socket with SO_REUSEADDR so a restarted forwarder
// can reclaim its port immediately.
func listenUDP(addr *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: controlReuseAddr}
	conn, err := lc.ListenPacket(context.Background(), "udp", addr.String())
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}

// tuneSocket enlarges the kernel buffers on conn. Failure is not fatal;
// the OS may cap the requested size.
func tuneSocket(logger *slog.Logger, conn *net.UDPConn) {
	if err := conn.SetReadBuffer(socketBufferBytes); err != nil {
		logger.Warn("set receive buffer failed", logging.KeyError, err)
	}
	if err := conn.SetWriteBuffer(socketBufferBytes); err != nil {
		logger.Warn("set send buffer failed", logging.KeyError, err)
	}
}
