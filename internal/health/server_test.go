package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/perimeterlab/udpbridge/internal/relay"
)

// stubProvider is a controllable StatsProvider for testing.
type stubProvider struct {
	running bool
	stats   relay.Stats
}

func (p *stubProvider) IsRunning() bool    { return p.running }
func (p *stubProvider) Stats() relay.Stats { return p.stats }

func startTestServer(t *testing.T, provider StatsProvider) *Server {
	t.Helper()

	cfg := DefaultServerConfig()
	cfg.Address = "127.0.0.1:0"

	srv := NewServer(cfg, provider)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestServer_Healthz(t *testing.T) {
	srv := startTestServer(t, &stubProvider{running: true})

	resp, body := get(t, fmt.Sprintf("http://%s/healthz", srv.Address()))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "ok" {
		t.Errorf("healthz body = %q, want \"ok\"", body)
	}
}

func TestServer_Ready(t *testing.T) {
	provider := &stubProvider{running: true}
	srv := startTestServer(t, provider)

	resp, _ := get(t, fmt.Sprintf("http://%s/ready", srv.Address()))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.StatusCode)
	}

	provider.running = false
	resp, _ = get(t, fmt.Sprintf("http://%s/ready", srv.Address()))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.StatusCode)
	}
}

func TestServer_Status(t *testing.T) {
	provider := &stubProvider{
		running: true,
		stats: relay.Stats{
			Running: true,
			Forwarders: []relay.ForwarderStats{
				{Port: 2368, Bidirectional: true, ForwardPackets: 42, ForwardBytes: 50652},
			},
		},
	}
	srv := startTestServer(t, provider)

	resp, body := get(t, fmt.Sprintf("http://%s/status", srv.Address()))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got relay.Stats
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !got.Running {
		t.Error("status Running = false, want true")
	}
	if len(got.Forwarders) != 1 || got.Forwarders[0].Port != 2368 {
		t.Errorf("status forwarders = %+v", got.Forwarders)
	}
	if got.Forwarders[0].ForwardPackets != 42 {
		t.Errorf("ForwardPackets = %d, want 42", got.Forwarders[0].ForwardPackets)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := startTestServer(t, &stubProvider{running: true})

	resp, _ := get(t, fmt.Sprintf("http://%s/metrics", srv.Address()))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_StopIsIdempotent(t *testing.T) {
	srv := startTestServer(t, &stubProvider{})

	ctx := context.Background()
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("first Stop error = %v", err)
	}
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("second Stop error = %v", err)
	}
}
