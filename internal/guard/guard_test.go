package guard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCookie(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".erlang.cookie")
	require.NoError(t, os.WriteFile(path, []byte(content), 0400))
	return path
}

func TestEvaluate_NoCookieYet(t *testing.T) {
	g := CookieGuard{Path: filepath.Join(t.TempDir(), ".erlang.cookie"), Desired: "NEW"}

	d, err := g.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, DecisionInitial, d)
}

func TestEvaluate_Unchanged(t *testing.T) {
	g := CookieGuard{Path: writeCookie(t, "SAME\n"), Desired: "SAME"}

	d, err := g.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, DecisionUnchanged, d)
}

func TestEvaluate_MismatchWithoutAuthorization(t *testing.T) {
	path := writeCookie(t, "OLDCOOKIE")
	g := CookieGuard{Path: path, Desired: "NEWCOOKIE"}

	_, err := g.Evaluate()
	require.Error(t, err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, Fingerprint("OLDCOOKIE"), mismatch.Current)
	assert.Equal(t, Fingerprint("NEWCOOKIE"), mismatch.Desired)
	assert.Contains(t, err.Error(), "cluster.wipeDBOnCookieChange")
	assert.NotContains(t, err.Error(), "OLDCOOKIE")
	assert.NotContains(t, err.Error(), "NEWCOOKIE")

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "OLDCOOKIE", string(data), "evaluation must not touch the cookie")
}

func TestEvaluate_MismatchWithAuthorization(t *testing.T) {
	g := CookieGuard{Path: writeCookie(t, "OLDCOOKIE"), Desired: "NEWCOOKIE", AllowWipe: true}

	d, err := g.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, DecisionWipe, d)
}

func TestEvaluate_UnreadableCookie(t *testing.T) {
	dir := t.TempDir()
	g := CookieGuard{Path: dir, Desired: "X"}

	_, err := g.Evaluate()
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("EOKOWXQREETZSHFNTPEY")
	assert.Len(t, fp, len("sha256:")+12)
	assert.Equal(t, fp, Fingerprint("EOKOWXQREETZSHFNTPEY"))
	assert.NotEqual(t, fp, Fingerprint("OTHER"))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "initial", DecisionInitial.String())
	assert.Equal(t, "unchanged", DecisionUnchanged.String())
	assert.Equal(t, "wipe", DecisionWipe.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
