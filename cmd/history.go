package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/specimen/store"
)

func (a *app) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or the species counts of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(a.settings.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				runs, err := db.Runs(ctx)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintf(w, "%s  %s  %5d rows  %s\n",
						r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.MergedRows, r.InputDir)
				}
				return nil
			}

			counts, err := db.SpeciesCounts(ctx, args[0])
			if err != nil {
				return err
			}
			species := make([]string, 0, len(counts))
			for s := range counts {
				species = append(species, s)
			}
			sort.Strings(species)
			for _, s := range species {
				fmt.Fprintf(w, "%-30s %5d\n", s, counts[s])
			}
			return nil
		},
	}
}
