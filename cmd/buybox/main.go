package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/buybox-analyzer/internal/cli"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/logging"
)

// CLI holds the global flags
type CLI struct {
	configFile string
	verbose    bool
}

func main() {
	app := &CLI{}

	// Global flags
	flag.StringVar(&app.configFile, "config", "", "Configuration file path")
	flag.BoolVar(&app.verbose, "verbose", false, "Enable verbose logging")
	flag.Usage = printUsage
	flag.Parse()

	// Get subcommand
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subArgs := args[1:]

	logLevel := "info"
	if app.verbose {
		logLevel = "debug"
	}
	logger := logging.NewLogger(config.LoggingConfig{Level: logLevel, Format: "text"})

	cfg := loadConfig(app.configFile, logger)
	if app.verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	var err error
	switch subcommand {
	case "analyze":
		err = runAnalyze(cfg, subArgs)
	case "serve":
		err = runServe(cfg, subArgs)
	case "test-connection":
		err = runTestConnection(cfg, subArgs)
	case "configure":
		err = runConfigure(subArgs)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(cfg *config.Config, args []string) error {
	flags, err := cli.ParseAnalyzeFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.RunAnalyze(ctx, cfg, flags, os.Stdout)
}

func runServe(cfg *config.Config, args []string) error {
	flags, err := cli.ParseServeFlags(args, cfg.Server.Port, os.Stderr)
	if err != nil {
		return err
	}
	return cli.RunServe(cfg, flags)
}

func runTestConnection(cfg *config.Config, args []string) error {
	flags, err := cli.ParseTestConnectionFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.RunTestConnection(ctx, cfg, flags, os.Stdout)
}

func runConfigure(args []string) error {
	flags, err := cli.ParseConfigureFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	return cli.RunConfigure(flags, cli.NewPrompter(os.Stdin, os.Stdout), os.Stdout)
}

func printUsage() {
	fmt.Println("Buy Box Analyzer")
	fmt.Println("================")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  buybox [global options] <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  analyze           Analyze Buy Box winners and export to Excel")
	fmt.Println("                    -asins, -file, -output, -no-db, or ASINs as arguments")
	fmt.Println("  serve             Run the HTTP API (-port)")
	fmt.Println("  test-connection   Verify SP-API credentials")
	fmt.Println("  configure         Save SP-API credentials to a .env file (-env-file)")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  -config string    Configuration file path")
	fmt.Println("  -verbose          Enable verbose logging")
}

func loadConfig(configFile string, logger *slog.Logger) *config.Config {
	if configFile == "" {
		// Try to find config file
		candidates := []string{"config.yaml", "config.yml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
				break
			}
		}
	}

	if configFile == "" {
		logger.Debug("No config file found, using environment variables")
		return config.LoadFromEnv()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	return cfg
}
