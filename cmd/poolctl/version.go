package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}
}

func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(map[string]string{"version": version, "commit": commit, "date": date})
	}
	_, err := fmt.Fprintf(out, "poolctl %s (commit %s, built %s)\n", version, commit, date)
	return err
}
