package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	c := newSelfUpdateCmd()

	assert.Equal(t, "self-update", c.Use)
	assert.NotEmpty(t, c.Short)
	assert.Contains(t, c.Long, "checksums")
	assert.NotNil(t, c.RunE)
}

func TestRunSelfUpdate_DevelopmentBuilds(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	for _, v := range []string{"", "dev"} {
		rootCmd.Version = v
		err := runSelfUpdate(nil, nil)
		assert.ErrorIs(t, err, errDevelopmentBuild, "version %q", v)
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	c := newSelfUpdateCmd()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"--help"})

	require.NoError(t, c.Execute())
	assert.Contains(t, buf.String(), "Checks for the latest release of warren")
}

func TestGithubRepoSlug(t *testing.T) {
	assert.Equal(t, "giantswarm/warren", githubRepoSlug)
}
