package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"warren/internal/history"
	pkgstrings "warren/pkg/strings"
)

func newHistoryCmd() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous apply runs",
		Long:  `Lists the runs recorded by apply, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(commandContext(cmd), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(header("STARTED", "RUN", "MODE", "RESULT", "DURATION"))
			for _, r := range runs {
				mode := "apply"
				if r.Noop {
					mode = "noop"
				}
				result := r.Summary
				if r.Error != "" {
					result += "\n" + pkgstrings.Truncate(r.Error, pkgstrings.DefaultCellMaxLen)
				}
				t.AppendRow(table.Row{
					r.Started.Local().Format(time.DateTime),
					r.ID,
					mode,
					result,
					r.Finished.Sub(r.Started).Round(time.Millisecond),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "history-db", history.DefaultPath, "Run journal location")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show, 0 for all")
	return cmd
}
