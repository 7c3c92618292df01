package cmd

import (
	"github.com/spf13/cobra"

	"warren/internal/converge"
)

func newPlanCmd() *cobra.Command {
	var showDiff, showAll bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the changes apply would make",
		Long: `Checks every resource against the host and lists the ones apply would
change. Nothing is modified. With --diff, file content changes are shown as
diffs; the Erlang cookie is never shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			_, cat, cleanup, err := compile(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := (&converge.Engine{Noop: true}).Run(ctx, cat.Resources)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report, showAll, showDiff)
			return report.Err()
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "Show content diffs for files")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include resources that are already in sync")
	return cmd
}
