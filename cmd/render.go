package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"warren/internal/render"
)

func newRenderCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the generated configuration files",
		Long: `Renders rabbitmq.config and rabbitmq-env.conf from the descriptor and
prints them without touching the host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescriptor()
			if err != nil {
				return err
			}
			files, err := render.Render(desc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch only {
			case "config":
				fmt.Fprint(out, files.Config)
			case "env":
				fmt.Fprint(out, files.Env)
			case "":
				fmt.Fprintf(out, "# %s\n%s\n# %s\n%s", desc.Paths.Config, files.Config, desc.Paths.EnvConfig, files.Env)
			default:
				return fmt.Errorf("unknown file %q (expected config or env)", only)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "Print a single file: config or env")
	return cmd
}
