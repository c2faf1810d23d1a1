// Package wizard provides an interactive setup wizard for udpbridge.
package wizard

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/perimeterlab/udpbridge/internal/config"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
	}
}

// Run executes the interactive setup wizard and writes the resulting
// configuration file.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	cfg := config.Default()
	configPath := "./config.yaml"

	var (
		portsInput    string
		listenIP      = cfg.ListenIP
		destinationIP string
		sourceSubnet  string
		bidirectional bool
		healthEnabled bool
		healthAddr    = cfg.Health.Address
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Bridge Setup").
				Description("Configure the UDP relay between the host adapter and the guest network."),

			huh.NewInput().
				Title("Listen IP").
				Description("Host adapter address to bind; 0.0.0.0 listens on all adapters").
				Placeholder("0.0.0.0").
				Value(&listenIP).
				Validate(func(s string) error {
					if net.ParseIP(s) == nil {
						return fmt.Errorf("not a valid IP address")
					}
					return nil
				}),

			huh.NewInput().
				Title("Ports").
				Description("UDP ports to forward, separated by spaces or commas (e.g., 2368 2369)").
				Placeholder("2368").
				Value(&portsInput).
				Validate(func(s string) error {
					ports, err := ParsePorts(s)
					if err != nil {
						return err
					}
					if len(ports) == 0 {
						return fmt.Errorf("at least one port is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Destination IP").
				Description("Guest-side IPv4 target; leave empty to auto-detect at startup").
				Value(&destinationIP).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					ip := net.ParseIP(s)
					if ip == nil || ip.To4() == nil {
						return fmt.Errorf("not a valid IPv4 address")
					}
					return nil
				}),

			huh.NewInput().
				Title("Source Subnet").
				Description("Optional CIDR restricting accepted senders (e.g., 192.168.198.0/24)").
				Value(&sourceSubnet).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					if _, _, err := net.ParseCIDR(s); err != nil {
						return fmt.Errorf("not a valid CIDR block")
					}
					return nil
				}),

			huh.NewConfirm().
				Title("Bidirectional relay?").
				Description("Forward guest replies back to the last host-side sender").
				Value(&bidirectional),

			huh.NewConfirm().
				Title("Enable health/metrics endpoint?").
				Value(&healthEnabled),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return nil, err
	}

	if healthEnabled {
		addrForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Health Address").
					Description("Address for /healthz, /status and /metrics").
					Placeholder("127.0.0.1:9033").
					Value(&healthAddr).
					Validate(func(s string) error {
						if _, _, err := net.SplitHostPort(s); err != nil {
							return fmt.Errorf("not a valid host:port")
						}
						return nil
					}),
			),
		).WithTheme(w.theme)
		if err := addrForm.Run(); err != nil {
			return nil, err
		}
	}

	ports, err := ParsePorts(portsInput)
	if err != nil {
		return nil, err
	}

	cfg.ListenIP = listenIP
	cfg.Ports = ports
	cfg.DestinationIP = destinationIP
	cfg.SourceSubnet = sourceSubnet
	cfg.Bidirectional = bidirectional
	cfg.Health.Enabled = healthEnabled
	cfg.Health.Address = healthAddr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := w.writeConfig(cfg, configPath); err != nil {
		return nil, err
	}

	w.printSummary(configPath, cfg)

	return &Result{Config: cfg, ConfigPath: configPath}, nil
}

// ParsePorts splits a comma- or space-separated list of UDP ports.
func ParsePorts(s string) ([]uint16, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	ports := make([]uint16, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid port %q", f)
		}
		ports = append(ports, uint16(n))
	}
	return ports, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
            _       _          _     _
  _   _  __| |_ __ | |__  _ __(_) __| | __ _  ___
 | | | |/ _` + "`" + ` | '_ \| '_ \| '__| |/ _` + "`" + ` |/ _` + "`" + ` |/ _ \
 | |_| | (_| | |_) | |_) | |  | | (_| | (_| |  __/
  \__,_|\__,_| .__/|_.__/|_|  |_|\__,_|\__, |\___|
             |_|                       |___/
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  UDP relay for isolated guest networks - Setup Wizard\n")

	fmt.Println(banner)
	fmt.Println(subtitle)
}

func (w *Wizard) writeConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# udpbridge configuration
# Generated by setup wizard

`
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *config.Config) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("─────────────────────────────────────────────────")

	fmt.Println()
	fmt.Println(divider)
	fmt.Println(style.Render("✓ Setup Complete!"))
	fmt.Println(divider)
	fmt.Println()

	fmt.Printf("  Config file:  %s\n", configPath)
	fmt.Printf("  Listen IP:    %s\n", cfg.ListenIP)
	fmt.Printf("  Ports:        %v\n", cfg.Ports)
	if cfg.DestinationIP != "" {
		fmt.Printf("  Destination:  %s\n", cfg.DestinationIP)
	} else {
		fmt.Printf("  Destination:  auto-detect\n")
	}
	if cfg.SourceSubnet != "" {
		fmt.Printf("  Subnet:       %s\n", cfg.SourceSubnet)
	}
	fmt.Printf("  Bidirectional: %v\n", cfg.Bidirectional)
	if cfg.Health.Enabled {
		fmt.Printf("  Health:       http://%s/healthz\n", cfg.Health.Address)
	}

	fmt.Println()
	fmt.Println("  To start the bridge:")
	fmt.Printf("    udpbridge run -c %s\n", configPath)
	fmt.Println()
}
