package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	tests := []struct {
		version string
		want    string
	}{
		{version: "1.2.3-test", want: "warren version 1.2.3-test\n"},
		{version: "", want: "warren version \n"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			rootCmd.Version = tt.version
			c := newVersionCmd()
			var buf bytes.Buffer
			c.SetOut(&buf)

			c.Run(c, nil)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestVersionFlag(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()
	SetVersion("0.4.0")
	rootCmd.SetVersionTemplate(`{{printf "warren version %s\n" .Version}}`)

	out, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "warren version 0.4.0\n", out)
}
