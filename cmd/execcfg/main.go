// Package main is execcfg, a command line tool for inspecting executor
// profiles and running the config resolvers offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "execcfg",
		Short:         "Inspect executor profiles and resolve executor configs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newResolveCommand(), newProfilesCommand())
	return root
}
