package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/keydecoder/internal/morse"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the Morse lookup table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, e := range morse.Table() {
			fmt.Fprintf(out, "%c  %s\n", e.Char, e.Pattern)
		}
		return nil
	},
}
