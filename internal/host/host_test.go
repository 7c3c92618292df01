package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Success(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExecRunner_Env(t *testing.T) {
	out, err := ExecRunner{Env: []string{"WARREN_TEST=42"}}.Run(context.Background(), "sh", "-c", "echo $WARREN_TEST")
	require.NoError(t, err)
	assert.Equal(t, "42\n", string(out))
}

func TestExecRunner_FailureCarriesOutput(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Output, "oops")
	assert.Contains(t, err.Error(), "oops")
}

func TestStatFile_Missing(t *testing.T) {
	st, err := StatFile(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.False(t, st.ContentEqual(nil))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rabbitmq.config")

	require.NoError(t, WriteFileAtomic(path, []byte("[].\n"), 0640, NoOwner))

	st, err := StatFile(path)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.False(t, st.IsDir)
	assert.Equal(t, os.FileMode(0640), st.Mode)
	assert.True(t, st.ContentEqual([]byte("[].\n")))
	assert.False(t, st.ContentEqual([]byte("other")))

	require.NoError(t, WriteFileAtomic(path, []byte("[a].\n"), 0400, NoOwner))
	st, err = StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0400), st.Mode)
	assert.True(t, st.ContentEqual([]byte("[a].\n")))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestEnsureAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, EnsureAttributes(path, 0600, NoOwner))
	st, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode)
}

func TestOwnerMatches(t *testing.T) {
	st := FileState{UID: 100, GID: 200}
	assert.True(t, NoOwner.Matches(st))
	assert.True(t, Owner{UID: 100, GID: -1}.Matches(st))
	assert.False(t, Owner{UID: 101, GID: 200}.Matches(st))
	assert.False(t, Owner{UID: -1, GID: 0}.Matches(st))
}

func TestLookupOwner_Empty(t *testing.T) {
	o, err := LookupOwner("", "")
	require.NoError(t, err)
	assert.Equal(t, NoOwner, o)
}

func TestLookupOwner_Unknown(t *testing.T) {
	_, err := LookupOwner("warren-no-such-user-xyz", "")
	assert.Error(t, err)
}

func TestRooted(t *testing.T) {
	assert.Equal(t, "/etc/rabbitmq", Rooted("", "/etc/rabbitmq"))
	assert.Equal(t, "/etc/rabbitmq", Rooted("/", "/etc/rabbitmq"))
	assert.Equal(t, "/tmp/chroot/etc/rabbitmq", Rooted("/tmp/chroot", "/etc/rabbitmq"))
}
