package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/pool/arena"
)

// settings is the poolctl configuration file layout.
type settings struct {
	Arena arenaSettings `toml:"arena"`
	Log   logSettings   `toml:"log"`
}

type arenaSettings struct {
	InitialSize  int     `toml:"initial_size"`
	MaxSize      int     `toml:"max_size"`
	GrowthFactor float64 `toml:"growth_factor"`
	Source       string  `toml:"source"` // "os" or "heap"
}

type logSettings struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

func defaultSettings() settings {
	d := arena.DefaultConfig
	return settings{
		Arena: arenaSettings{
			InitialSize:  d.InitialSize,
			MaxSize:      d.MaxSize,
			GrowthFactor: d.GrowthFactor,
			Source:       "os",
		},
		Log: logSettings{Level: "info"},
	}
}

// loadSettings overlays the TOML file at path on the defaults. Keys the file
// leaves out keep their default values.
func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return settings{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	if _, err := s.arenaConfig(); err != nil {
		return settings{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return s, nil
}

// arenaConfig converts the arena section to an arena.Config.
func (s settings) arenaConfig() (arena.Config, error) {
	cfg := arena.Config{
		InitialSize:  s.Arena.InitialSize,
		MaxSize:      s.Arena.MaxSize,
		GrowthFactor: s.Arena.GrowthFactor,
	}
	switch s.Arena.Source {
	case "", "os":
		cfg.Source = backing.OS
	case "heap":
		cfg.Source = backing.Heap
	default:
		return arena.Config{}, fmt.Errorf("unknown backing source %q (want os or heap)", s.Arena.Source)
	}
	return cfg, cfg.Validate()
}

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `The config command prints the configuration poolctl would use: built-in
defaults overlaid with the file given by --config. The output is valid TOML
and can be used as a starting point for a config file.

Example:
  poolctl config > poolctl.toml
  poolctl config --config poolctl.toml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig()
		},
	}
}

func runConfig() error {
	if jsonOut {
		return printJSON(conf)
	}
	return toml.NewEncoder(os.Stdout).Encode(conf)
}
