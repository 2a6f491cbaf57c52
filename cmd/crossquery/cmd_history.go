package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"crossquery/internal/history"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <template>",
		Short: "List recent runs of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			store, closeHistory, err := history.Open(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			runs, err := store.Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no recorded runs for %s (history backend: %s)\n", args[0], a.cfg.History.Backend)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tSUCCEEDED\tFAILED\tDURATION")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					run.RunID,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Succeeded(),
					run.Failed(),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
