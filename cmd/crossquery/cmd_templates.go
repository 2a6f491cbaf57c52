package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTemplatesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List templates and the service queries they run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TEMPLATE\tQUERIES\tPARAMS\tDESCRIPTION")
			for _, tmpl := range a.store.Templates() {
				entries := make([]string, 0, len(tmpl.Queries))
				for _, e := range tmpl.Queries {
					entry := e.Service + "/" + e.Template
					if !a.cfg.IsServiceEnabled(e.Service) {
						entry += " (off)"
					}
					entries = append(entries, entry)
				}
				params := make([]string, 0, len(tmpl.Params))
				for k := range tmpl.Params {
					params = append(params, k)
				}
				sort.Strings(params)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tmpl.Name, strings.Join(entries, ", "), strings.Join(params, ","), tmpl.Description)
			}
			return w.Flush()
		},
	}
}
