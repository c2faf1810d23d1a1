// Package config provides configuration parsing and validation for udpbridge.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perimeterlab/udpbridge/internal/relay"
)

// Config represents the complete bridge configuration.
type Config struct {
	// ListenIP is the host-side adapter address to bind. "0.0.0.0"
	// listens on every adapter.
	ListenIP string `yaml:"listen_ip"`

	// Ports lists the UDP ports to forward. Each port is forwarded
	// identically on both sides.
	Ports []uint16 `yaml:"ports"`

	// DestinationIP is the guest-side target. Empty means auto-detect
	// at startup.
	DestinationIP string `yaml:"destination_ip"`

	// SourceSubnet optionally restricts accepted host-side senders to a
	// CIDR block. Empty accepts every sender.
	SourceSubnet string `yaml:"source_subnet"`

	// Bidirectional enables relaying destination replies back to the
	// last accepted host-side sender.
	Bidirectional bool `yaml:"bidirectional"`

	Log    LogConfig    `yaml:"log"`
	Health HealthConfig `yaml:"health"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// HealthConfig defines the health/metrics HTTP server settings.
type HealthConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		ListenIP: "0.0.0.0",
		Ports:    []uint16{},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Health: HealthConfig{
			Enabled:      false,
			Address:      "127.0.0.1:9033",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes. Validation is the caller's
// responsibility: CLI flags may still override file values, so a file is
// allowed to be incomplete (e.g., ports supplied on the command line).
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
// ${VAR:-default} falls back to default when VAR is unset.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			varName := name[:idx]
			defaultVal := name[idx+2:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration for errors. All problems are
// collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	if net.ParseIP(c.ListenIP) == nil {
		errs = append(errs, fmt.Sprintf("invalid listen_ip: %q", c.ListenIP))
	}

	if len(c.Ports) == 0 {
		errs = append(errs, "at least one port is required")
	}
	seen := make(map[uint16]bool, len(c.Ports))
	for i, p := range c.Ports {
		if p == 0 {
			errs = append(errs, fmt.Sprintf("ports[%d]: port 0 is not forwardable", i))
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Sprintf("ports[%d]: duplicate port %d", i, p))
		}
		seen[p] = true
	}

	if c.DestinationIP != "" {
		ip := net.ParseIP(c.DestinationIP)
		if ip == nil || ip.To4() == nil {
			errs = append(errs, fmt.Sprintf("invalid destination_ip: %q (IPv4 required)", c.DestinationIP))
		}
	}

	if c.SourceSubnet != "" {
		if _, _, err := net.ParseCIDR(c.SourceSubnet); err != nil {
			errs = append(errs, fmt.Sprintf("invalid source_subnet: %q", c.SourceSubnet))
		}
	}

	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !isValidLogFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	if c.Health.Enabled && c.Health.Address == "" {
		errs = append(errs, "health.address is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Rules builds the forwarding rule set using destination as the
// guest-side target. Call Validate (or Parse) first; destination must be
// a concrete IPv4 address, resolved by the caller when DestinationIP is
// empty.
func (c *Config) Rules(destination net.IP) ([]relay.Rule, error) {
	if destination == nil || destination.To4() == nil {
		return nil, fmt.Errorf("destination address is required")
	}

	filter, err := relay.ParseSubnetFilter(c.SourceSubnet)
	if err != nil {
		return nil, err
	}

	listenIP := net.ParseIP(c.ListenIP)
	if listenIP == nil {
		return nil, fmt.Errorf("invalid listen_ip: %q", c.ListenIP)
	}

	rules := make([]relay.Rule, 0, len(c.Ports))
	for _, port := range c.Ports {
		rules = append(rules, relay.Rule{
			ListenIP:      listenIP,
			Port:          port,
			DestinationIP: destination.To4(),
			Bidirectional: c.Bidirectional,
			Filter:        filter,
		})
	}
	return rules, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}
