package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"warren/internal/health"
	pkgstrings "warren/pkg/strings"
)

func newCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the AMQP listeners of this node and its cluster peers",
		Long: `Opens an AMQP connection to the local node and to every cluster peer
named in the descriptor, using the default user's credentials, and reports
the broker version each one announces. The TLS listener is used when the
descriptor disables plain AMQP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescriptor()
			if err != nil {
				return err
			}
			tlsConfig, err := health.TLSConfig(desc)
			if err != nil {
				return err
			}

			checker := &health.Checker{
				Dial:  health.AMQPDialer(desc.DefaultUser, desc.DefaultPass, timeout, tlsConfig),
				Limit: 8,
			}
			results := checker.Probe(commandContext(cmd), health.Targets(desc))

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(header("NODE", "ADDRESS", "STATUS", "VERSION", "LATENCY"))
			failed := 0
			for _, r := range results {
				status := text.FgGreen.Sprint("reachable")
				if !r.OK() {
					failed++
					status = text.FgRed.Sprint(pkgstrings.Truncate(r.Err.Error(), pkgstrings.DefaultCellMaxLen))
				}
				t.AppendRow(table.Row{r.Target.Name, r.Target.Address(), status, r.Version, r.Latency.Round(time.Millisecond)})
			}
			t.Render()

			if failed > 0 {
				return fmt.Errorf("%d of %d nodes unreachable", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Connection timeout per node")
	return cmd
}
