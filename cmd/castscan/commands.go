package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/castscan/internal/config"
	"github.com/muurk/castscan/internal/discovery"
	"github.com/muurk/castscan/internal/feed"
	"github.com/muurk/castscan/internal/logging"
	"github.com/muurk/castscan/internal/ui"
	"github.com/muurk/castscan/internal/version"
)

// Discovery command flags
var (
	timeoutMS    int
	outputFormat string
	dedupPolicy  string
	remember     bool
	listenAddr   string
	intervalMS   int
	certPath     string
	keyPath      string
)

// shutdownGrace bounds how long serve waits for HTTP connections to drain
const shutdownGrace = 5 * time.Second

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var troubleshooting = []string{
	"Check that this host has a multicast-capable network interface",
	"Check that UDP port 5353 is not blocked by a firewall",
	"Run with --log-level debug for details",
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)

	for _, cmd := range []*cobra.Command{rootCmd, scanCmd, watchCmd} {
		cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "Discovery budget in milliseconds (default from config, 2000)")
		cmd.Flags().StringVar(&dedupPolicy, "dedup", "", "Duplicate handling: address or none (default from config, address)")
	}
	for _, cmd := range []*cobra.Command{rootCmd, scanCmd} {
		cmd.Flags().StringVar(&outputFormat, "format", formatTable, "Output format (table, json, yaml)")
		cmd.Flags().BoolVar(&remember, "remember", false, "Record discovered receivers in the config file")
	}

	serveCmd.Flags().IntVar(&timeoutMS, "timeout", 0, "Per-session discovery budget in milliseconds")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().IntVar(&intervalMS, "interval", 10000, "Pause between discovery sessions in milliseconds")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves HTTPS when set with --key)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configNicknameCmd)
}

// scanCmd runs one discovery session and prints the result
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for cast receivers on the network",
	Long: `Scan for Google Cast receivers using mDNS/DNS-SD discovery.

This command browses for _googlecast._tcp services for the discovery budget
and prints every receiver found, in the order they were discovered.`,
	Example: `  # Scan with the default 2 second budget
  castscan scan

  # Longer scan for busy networks
  castscan scan --timeout 5000

  # JSON output for scripting
  castscan scan --format json

  # Remember receivers so they can be given nicknames
  castscan scan --remember`,
	RunE: runScan,
}

// watchCmd shows receivers live as they are announced
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch receivers appear during a discovery session",
	Long: `Run one discovery session and list receivers as soon as they are announced.

Press q to end the session early; the receivers found so far are kept.`,
	RunE: runWatch,
}

// serveCmd repeats discovery sessions and streams them over websocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve discovered receivers over HTTP and WebSocket",
	Long: `Run discovery sessions continuously and publish receivers to clients.

Endpoints:
  /ws         WebSocket stream of receiver events as they are discovered
  /receivers  JSON list of receivers from the last completed session`,
	Example: `  # Serve on localhost:8080, scanning every 10 seconds
  castscan serve

  # Listen on all interfaces and scan every 30 seconds
  castscan serve --listen :8080 --interval 30000

  # Serve over HTTPS/WSS
  castscan serve --cert fullchain.pem --key privkey.pem`,
	RunE: runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the castscan config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config file contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return writeYAML(cfg)
	},
}

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <receiver-id> <nickname>",
	Short: "Set a nickname for a remembered receiver",
	Long: `Set a nickname shown instead of the receiver's friendly name.

The receiver id is the key shown by 'castscan config show' (the receiver's
"id" TXT value, or its host when it has none).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.SetNickname(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Printf("Receiver %s is now %q\n", args[0], args[1])
		return nil
	},
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// newLocator builds a Locator over the zeroconf browser from the config
// preferences with command-line overrides applied.
func newLocator(cmd *cobra.Command, cfg *config.Config) (*discovery.Locator, error) {
	prefs := *cfg.Preferences
	if cmd.Flags().Changed("timeout") {
		if timeoutMS <= 0 {
			return nil, fmt.Errorf("--timeout must be positive, got %d", timeoutMS)
		}
		prefs.TimeoutMS = timeoutMS
	}
	if cmd.Flags().Changed("dedup") {
		prefs.Dedup = dedupPolicy
	}

	opts, err := prefs.LocatorOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, discovery.WithLogger(logging.GetLogger()))

	return discovery.NewLocator(discovery.NewZeroconfBrowser(), opts...), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q (expected table, json, or yaml)", outputFormat)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	locator, err := newLocator(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, locator.Timeout())
	defer cancel()

	if outputFormat == formatTable {
		fmt.Printf("Scanning for cast receivers (timeout: %s)...\n\n", locator.Timeout())
	}

	receivers, err := locator.FindReceiversWithContext(ctx)
	if err != nil {
		if outputFormat == formatTable {
			ui.NewPrinter(nil).PrintError("Discovery", err, troubleshooting)
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	if remember {
		if err := rememberReceivers(cfg, receivers); err != nil {
			return err
		}
	}

	switch outputFormat {
	case formatJSON:
		data, err := json.MarshalIndent(discovery.Views(receivers), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case formatYAML:
		return writeYAML(discovery.Views(receivers))
	default:
		subtitle := fmt.Sprintf("Found %d receiver(s) in %s", len(receivers), locator.Timeout())
		ui.NewPrinter(nil).WithNames(cfg.DisplayName).PrintReceivers(receivers, subtitle)
		if remember && len(receivers) > 0 {
			fmt.Println("\nUse 'castscan config nickname <id> <nickname>' to name a receiver")
		}
	}

	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Without a terminal there is nothing to animate
	if !ui.IsTerminal() {
		outputFormat = formatTable
		return runScan(cmd, args)
	}

	locator, err := newLocator(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	model := ui.NewWatchModel(ctx, locator, cfg.DisplayName)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	if m, ok := final.(ui.WatchModel); ok {
		if m.Err != nil {
			return fmt.Errorf("watch failed: %w", m.Err)
		}
		if m.Dropped > 0 {
			logging.Debug("Live notifications dropped", zap.Int64("dropped", m.Dropped))
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if intervalMS <= 0 {
		return fmt.Errorf("--interval must be positive, got %d", intervalMS)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	locator, err := newLocator(cmd, cfg)
	if err != nil {
		return err
	}

	tlsConfig, err := feed.NewTLSConfig(certPath, keyPath)
	if err != nil {
		return err
	}

	logger := logging.GetLogger()
	hub := feed.NewHub(logger)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           hub.Handler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}

	ctx, stop := signalContext()
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		var err error
		if tlsConfig != nil {
			// Certificates are already in TLSConfig
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	fmt.Printf("Serving receivers on %s://%s (ws: /ws, snapshot: /receivers)\n", scheme, listenAddr)
	logger.Info("Feed server started",
		zap.String("version", version.Full()),
		zap.String("listen", listenAddr),
		zap.String("scheme", scheme),
		zap.Duration("timeout", locator.Timeout()),
		zap.Int("interval_ms", intervalMS),
	)

	runCtx, cancelRun := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() {
		runErr <- hub.Run(runCtx, locator, time.Duration(intervalMS)*time.Millisecond)
	}()

	var result error
	select {
	case err := <-serveErr:
		result = fmt.Errorf("server failed: %w", err)
		cancelRun()
		<-runErr
	case err := <-runErr:
		if err != nil {
			result = fmt.Errorf("discovery failed: %w", err)
		}
	}
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server shutdown incomplete", zap.Error(err))
	}

	logger.Info("Feed server stopped")
	return result
}

// rememberReceivers records every receiver in the config file
func rememberReceivers(cfg *config.Config, receivers []*discovery.Receiver) error {
	keys := make([]string, 0, len(receivers))
	for _, r := range receivers {
		keys = append(keys, cfg.RecordReceiver(r))
	}
	sort.Strings(keys)

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to remember receivers: %w", err)
	}
	logging.Debug("Receivers remembered", zap.Strings("keys", keys))
	return nil
}

func writeYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
