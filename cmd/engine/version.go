package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These are overridden at build time via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// NewVersionCommand creates the version subcommand.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("engine\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Git commit: %s\n", gitCommit)
			fmt.Printf("  Build date: %s\n", buildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
