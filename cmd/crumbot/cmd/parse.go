package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/crumbot/internal/numparse"
)

var parseCmd = &cobra.Command{
	Use:   "parse <text>...",
	Short: "Normalize on-screen number text the way the reader does",
	Long:  "Each argument is parsed as a counter reading (thousand separators, decimal marks, suffixes like million or B).",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, a := range args {
			v := numparse.Parse(a)
			fmt.Fprintf(w, "%-24s %s\t(%g)\n", strings.TrimSpace(a), numparse.Format(v), v)
		}
		return nil
	},
}
