package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cmd := NewEngineCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewEngineCommand creates the root command.
func NewEngineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Security event processing engine core",
		Long: `engine compiles decoder/rule/output/filter assets into an expression
tree and routes agent events through it: parse, normalize, match, and
enrich, one event at a time.`,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
