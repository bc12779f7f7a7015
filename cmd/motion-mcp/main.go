package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/motion-tools-mcp/internal/config"
	"github.com/ironsheep/motion-tools-mcp/internal/logging"
	"github.com/ironsheep/motion-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("motion-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("motion-tools-mcp - MCP server for temporal-derivative motion analysis")
			fmt.Println()
			fmt.Println("Usage: motion-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=<file>        YAML parameter sets and directories\n", config.EnvConfigFile)
			fmt.Printf("  %s=<dir>      Default frame directory\n", config.EnvImageDir)
			fmt.Printf("  %s=<dir>    Default figure directory\n", config.EnvResultsDir)
			fmt.Printf("  %s=<n>     Default target frame index\n", config.EnvFrameIndex)
			fmt.Printf("  %s=debug      Enable debug logging\n", config.EnvLogLevel)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "motion-tools-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv(config.EnvConfigFile))
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout is for the MCP protocol.
	log, err := logging.New(os.Stderr, cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return err
	}
	log.Debug().
		Str("version", Version).
		Str("built", BuildTime).
		Str("commit", GitCommit).
		Str("image_dir", cfg.ImageDir).
		Msg("motion MCP server starting")

	server.Version = Version
	return server.New(cfg, log).Run()
}
