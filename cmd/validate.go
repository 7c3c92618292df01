package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"warren/internal/config"
	"warren/internal/render"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the descriptor for errors",
		Long: `Parses and validates the descriptor and renders the configuration files
once, reporting every problem found. The host is not inspected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescriptor()
			if err != nil {
				var cfgErr config.ConfigurationError
				if errors.As(err, &cfgErr) {
					fmt.Fprintln(cmd.ErrOrStderr(), cfgErr.DetailedError())
				}
				return err
			}
			if _, err := render.Render(desc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is valid\n", text.FgGreen.Sprint("✓"), descriptorPath)
			return nil
		},
	}
}
