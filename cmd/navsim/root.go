package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "navsim",
		Short:        "Simulate a traveler following a route and recalculate on deviation",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}
