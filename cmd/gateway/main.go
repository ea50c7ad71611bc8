// Package main is the entry point for the API manager gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool

	// logLevelSet is true when -log-level was given explicitly; it then
	// wins over the configured level.
	logLevelSet bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	if !flags.logLevelSet {
		applyLogLevel(logger, cfg.Spec.Logging.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize gateway", observability.Error(err))
	}
	app.logLevelPinned = flags.logLevelSet

	if err := runGateway(ctx, app, flags.configPath); err != nil {
		logger.Fatal("gateway failed", observability.Error(err))
	}
}

// parseFlags parses command line flags.
func parseFlags(fs *flag.FlagSet, args []string) cliFlags {
	var f cliFlags
	fs.StringVar(&f.configPath, "config", getEnvOrDefault("APIMANAGER_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	fs.StringVar(&f.logLevel, "log-level", getEnvOrDefault("APIMANAGER_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", getEnvOrDefault("APIMANAGER_LOG_FORMAT", "json"),
		"Log format (json, console)")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	_ = fs.Parse(args)

	f.logLevelSet = os.Getenv("APIMANAGER_LOG_LEVEL") != ""
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "log-level" {
			f.logLevelSet = true
		}
	})

	return f
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("apimanager version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.GatewayConfig {
	logger.Info("starting apimanager",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.String("service", cfg.Spec.Service.Name),
		observability.Int("methods", len(cfg.Spec.Service.Methods)),
		observability.String("backend", cfg.Spec.Backend.URL),
		observability.Bool("remote_service_control", cfg.Spec.ServiceControl.Endpoint != ""),
	)

	return cfg
}

// applyLogLevel sets the configured level, keeping the current one when
// the level is invalid.
func applyLogLevel(logger observability.Logger, level string) {
	if level == "" {
		return
	}
	if err := logger.SetLevel(level); err != nil {
		logger.Warn("ignoring invalid log level",
			observability.String("level", level),
			observability.Error(err),
		)
	}
}
