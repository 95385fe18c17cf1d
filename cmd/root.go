package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "signcast",
	Short: "SignCast is the collaborative playlist engine of a digital-signage console.",
	Long: `SignCast keeps playlist state in sync across concurrent editors.
It applies local edits optimistically, reconciles them against the backend,
listens to per-playlist realtime rooms, and surfaces edit conflicts for
resolution.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
