package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/internal/logger"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	configPath string
	logFile    string

	// conf is the effective configuration: defaults, then --config, then flags.
	conf = defaultSettings()

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "Exercise and inspect the poolkit allocators",
	Long: `poolctl drives the poolkit allocators from the command line. It runs the
reference scenarios for the relocating heap, random stress workloads with
validation, and timing comparisons between the pools and the Go allocator.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file")
}

// setup loads the configuration file and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		loaded, err := loadSettings(configPath)
		if err != nil {
			return err
		}
		conf = loaded
	}
	if logFile != "" {
		conf.Log.File = logFile
	}

	level := slog.LevelInfo
	if conf.Log.Level != "" {
		if err := level.UnmarshalText([]byte(conf.Log.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", conf.Log.Level, err)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	closer, err := logger.Init(logger.Options{
		Enabled: verbose || conf.Log.File != "",
		File:    conf.Log.File,
		Level:   level,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logCloser = closer
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
