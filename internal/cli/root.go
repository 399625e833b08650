// Package cli implements the callscope command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root callscope command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "callscope",
		Short:         "callscope - in-process call-level profiler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewDemoCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}
