package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	// Create a new registry for isolated testing
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	if m == nil {
		t.Fatal("NewMetricsWithRegistry returned nil")
	}

	if m.PacketsForwarded == nil {
		t.Error("PacketsForwarded metric is nil")
	}
	if m.PacketsDropped == nil {
		t.Error("PacketsDropped metric is nil")
	}
	if m.ForwardersActive == nil {
		t.Error("ForwardersActive metric is nil")
	}
}

func TestRecordForwarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordForwarded(2368, DirectionForward, 1206)
	m.RecordForwarded(2368, DirectionForward, 1206)
	m.RecordForwarded(2368, DirectionReverse, 64)

	packets := testutil.ToFloat64(m.PacketsForwarded.WithLabelValues("2368", DirectionForward))
	if packets != 2 {
		t.Errorf("forward packets = %v, want 2", packets)
	}

	bytes := testutil.ToFloat64(m.BytesForwarded.WithLabelValues("2368", DirectionForward))
	if bytes != 2412 {
		t.Errorf("forward bytes = %v, want 2412", bytes)
	}

	reverse := testutil.ToFloat64(m.PacketsForwarded.WithLabelValues("2368", DirectionReverse))
	if reverse != 1 {
		t.Errorf("reverse packets = %v, want 1", reverse)
	}
}

func TestRecordDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordDropped(2368, DropFiltered)
	m.RecordDropped(2368, DropFiltered)
	m.RecordDropped(2369, DropNoSender)

	filtered := testutil.ToFloat64(m.PacketsDropped.WithLabelValues("2368", DropFiltered))
	if filtered != 2 {
		t.Errorf("filtered drops = %v, want 2", filtered)
	}

	noSender := testutil.ToFloat64(m.PacketsDropped.WithLabelValues("2369", DropNoSender))
	if noSender != 1 {
		t.Errorf("no_sender drops = %v, want 1", noSender)
	}
}

func TestForwarderLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordForwarderStart()
	m.RecordForwarderStart()

	if active := testutil.ToFloat64(m.ForwardersActive); active != 2 {
		t.Errorf("ForwardersActive = %v, want 2", active)
	}
	if starts := testutil.ToFloat64(m.ForwarderStarts); starts != 2 {
		t.Errorf("ForwarderStarts = %v, want 2", starts)
	}

	m.RecordForwarderStop()

	if active := testutil.ToFloat64(m.ForwardersActive); active != 1 {
		t.Errorf("ForwardersActive after stop = %v, want 1", active)
	}
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return a singleton")
	}
}
