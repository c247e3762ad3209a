package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dumpmemory/rspd/pkg/config"
	"github.com/dumpmemory/rspd/pkg/netguard"
	"github.com/dumpmemory/rspd/pkg/proxy"
	"github.com/dumpmemory/rspd/pkg/resolver"
	"github.com/dumpmemory/rspd/pkg/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:     "rspd",
	Short:   "rspd - transparent TLS SNI routing proxy",
	Version: version.Version,
	Long: `rspd inspects just enough of an incoming TLS ClientHello to read
the SNI host name, then splices the connection to the upstream mapped
to that host name without terminating TLS.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy server",
	Long:  "Start accepting TLS connections and routing them by SNI host name",
	RunE:  runServe,
}

var configPathFlag string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the rspd configuration file",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.GenerateConfig(configPathFlag); err != nil {
			return fmt.Errorf("generating config: %w", err)
		}
		slog.Info("default config generated", "path", configPathFlag)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.LoadConfig(configPathFlag); err != nil {
			return fmt.Errorf("config is invalid: %w", err)
		}
		fmt.Printf("%s is valid\n", configPathFlag)
		return nil
	},
}

func main() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config/rspd.yaml", "Configuration file path")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Override the configured listen address")

	configGenerateCmd.Flags().StringVarP(&configPathFlag, "output", "o", "config/rspd.yaml", "Output configuration file path")
	configValidateCmd.Flags().StringVarP(&configPathFlag, "config", "c", "config/rspd.yaml", "Configuration file path")

	configCmd.AddCommand(configGenerateCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting rspd", "version", version.Version, "host_mappings", len(cfg.HostMappings))

	res := resolver.New(cfg.DNS.CacheTTL, cfg.DNS.Servers)
	guard, err := netguard.New(cfg.NetGuard.ExtraGuardedCIDRs...)
	if err != nil {
		return fmt.Errorf("building netguard: %w", err)
	}

	p := proxy.New(
		cfg.Server.ListenAddr,
		cfg.HostMappings,
		res,
		guard,
		cfg.Server.InspectionTimeout,
		cfg.Server.DialTimeout,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- p.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig.String())
		cancel()
		return <-errc
	case err := <-errc:
		return err
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
