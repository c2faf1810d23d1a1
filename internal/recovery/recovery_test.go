package recovery

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	func() {
		defer LogPanic(logger, "loop")
		panic("boom")
	}()

	output := buf.String()
	if !strings.Contains(output, "panic recovered") {
		t.Errorf("expected panic log, got: %s", output)
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("expected panic value in log, got: %s", output)
	}
	if !strings.Contains(output, "component=loop") {
		t.Errorf("expected component attribute, got: %s", output)
	}
}

func TestLogPanic_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	func() {
		defer LogPanic(logger, "loop")
	}()

	if buf.Len() != 0 {
		t.Errorf("expected no output without a panic, got: %s", buf.String())
	}
}
