package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"warren/pkg/logging"
)

// githubRepoSlug specifies the GitHub repository (owner/repo) to check for updates.
const githubRepoSlug = "giantswarm/warren"

// checksumsAsset is the release asset listing SHA-256 sums of every binary.
const checksumsAsset = "checksums.txt"

var errDevelopmentBuild = errors.New("cannot self-update a development version")

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update warren to the latest version",
		Long: `Checks for the latest release of warren on GitHub and
replaces the running binary when a newer version exists. The download is
verified against the release's checksums before it is installed.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	current := rootCmd.Version
	// Development builds do not follow semantic versioning.
	if current == "" || current == "dev" {
		return errDevelopmentBuild
	}

	var out io.Writer = os.Stdout
	if cmd != nil {
		out = cmd.OutOrStdout()
	}
	ctx := commandContext(cmd)

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: checksumsAsset},
	})
	if err != nil {
		return fmt.Errorf("create updater: %w", err)
	}

	logging.Info("SelfUpdate", "Looking up the latest release of %s", githubRepoSlug)
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", githubRepoSlug)
	}
	if !latest.GreaterThan(current) {
		fmt.Fprintf(out, "warren %s is the latest version\n", current)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	fmt.Fprintf(out, "Updating %s from %s to %s (published %s)\n",
		exe, current, latest.Version(), latest.PublishedAt.Format("2006-01-02"))
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update to %s: %w", latest.Version(), err)
	}
	if latest.ReleaseNotes != "" {
		fmt.Fprintf(out, "\nRelease notes:\n%s\n", latest.ReleaseNotes)
	}
	return nil
}
