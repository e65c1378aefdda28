package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/crumbot/internal/config"
	"github.com/GriffinCanCode/crumbot/internal/journal"
	"github.com/GriffinCanCode/crumbot/internal/numparse"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent purchases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Journal.Path == "" {
			return fmt.Errorf("journal disabled: journal.path is empty")
		}
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.Recent(journalLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTIME\tITEM\tCOST\tPAYOFF\tSOURCE\tSESSION")
		for _, r := range recs {
			payoff := "-"
			if r.Payoff > 0 {
				payoff = fmt.Sprintf("%.1f min", r.Payoff/60)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%.8s\n",
				r.Seq, r.At.Local().Format("2006-01-02 15:04:05"), r.Name,
				numparse.Format(r.Cost), payoff, r.Source, r.Session)
		}
		return w.Flush()
	},
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of purchases to show (0 for all)")
}
