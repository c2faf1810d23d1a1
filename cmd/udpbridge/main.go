// Package main provides the CLI entry point for the udpbridge relay.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perimeterlab/udpbridge/internal/config"
	"github.com/perimeterlab/udpbridge/internal/discover"
	"github.com/perimeterlab/udpbridge/internal/health"
	"github.com/perimeterlab/udpbridge/internal/logging"
	"github.com/perimeterlab/udpbridge/internal/metrics"
	"github.com/perimeterlab/udpbridge/internal/relay"
	"github.com/perimeterlab/udpbridge/internal/wizard"
)

var (
	// Version is set at build time
	Version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "udpbridge",
		Short: "udpbridge - UDP relay between a host adapter and an isolated guest network",
		Long: `udpbridge relays UDP datagrams arriving on a host-side network adapter
to a fixed destination on an isolated guest network segment (such as a
WSL2 virtual machine), and optionally relays replies back to the last
observed sender.

It runs entirely in userspace; no firewall rules or elevated privileges
are required.`,
		Version: Version,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(setupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		configPath    string
		listenIP      string
		ports         []int
		destinationIP string
		sourceSubnet  string
		bidirectional bool
		quiet         bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the UDP relay",
		Long:  "Start forwarding the configured UDP ports. Flags override the configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}

			// Flags override file values.
			if cmd.Flags().Changed("listen-ip") {
				cfg.ListenIP = listenIP
			}
			if cmd.Flags().Changed("ports") {
				cfg.Ports = cfg.Ports[:0]
				for _, p := range ports {
					if p < 1 || p > 65535 {
						return fmt.Errorf("port %d out of range", p)
					}
					cfg.Ports = append(cfg.Ports, uint16(p))
				}
			}
			if cmd.Flags().Changed("destination-ip") {
				cfg.DestinationIP = destinationIP
			}
			if cmd.Flags().Changed("source-subnet") {
				cfg.SourceSubnet = sourceSubnet
			}
			if cmd.Flags().Changed("bidirectional") {
				cfg.Bidirectional = bidirectional
			}
			if quiet {
				cfg.Log.Level = "warn"
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

			destination := net.ParseIP(cfg.DestinationIP)
			if destination == nil {
				detected, err := discover.GuestIPv4(cmd.Context())
				if err != nil {
					return fmt.Errorf("could not detect guest IPv4 (is the guest running?), pass --destination-ip: %w", err)
				}
				destination = detected
				logger.Info("detected guest address", logging.KeyAddress, destination.String())
			}

			rules, err := cfg.Rules(destination)
			if err != nil {
				return err
			}

			m := metrics.Default()
			sup, err := relay.NewSupervisor(rules, logger, m)
			if err != nil {
				return err
			}

			var healthSrv *health.Server
			if cfg.Health.Enabled {
				healthSrv = health.NewServer(health.ServerConfig{
					Address:      cfg.Health.Address,
					ReadTimeout:  cfg.Health.ReadTimeout,
					WriteTimeout: cfg.Health.WriteTimeout,
				}, sup)
				if err := healthSrv.Start(); err != nil {
					return fmt.Errorf("start health server: %w", err)
				}
				logger.Info("health server started", logging.KeyAddress, healthSrv.Address())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = sup.Run(ctx)

			if healthSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				healthSrv.Stop(shutdownCtx)
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")
	cmd.Flags().StringVar(&listenIP, "listen-ip", "0.0.0.0", "Host adapter IP to bind; 0.0.0.0 listens on all")
	cmd.Flags().IntSliceVar(&ports, "ports", nil, "UDP ports to forward (e.g., 2368,2369)")
	cmd.Flags().StringVar(&destinationIP, "destination-ip", "", "Guest IPv4 target (auto-detected when empty)")
	cmd.Flags().StringVar(&sourceSubnet, "source-subnet", "", "Optional CIDR; accept senders only from this subnet")
	cmd.Flags().BoolVar(&bidirectional, "bidirectional", false, "Relay guest replies back to the last sender")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Reduce log output to warnings and errors")

	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Detect the guest IPv4 address",
		Long:  "Query the guest environment for its IPv4 address and print it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ip, err := discover.GuestIPv4(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(ip.String())
			return nil
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive configuration wizard",
		Long:  "Walk through the bridge settings and write a config.yaml.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wizard.New().Run()
			return err
		},
	}
}

// loadConfig reads the config file when present. A missing file at the
// default path falls back to defaults so flag-only invocations work; a
// missing file named explicitly is an error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("failed to load config: %w", err)
}
