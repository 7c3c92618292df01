package secret

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warren/internal/config"
)

func encryptArmored(t *testing.T, plaintext string, recipient age.Recipient) string {
	t.Helper()
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	require.NoError(t, err)
	_, err = w.Write([]byte(plaintext))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, aw.Close())
	return buf.String()
}

func TestResolveCookie_Plain(t *testing.T) {
	cookie, err := ResolveCookie(config.ClusterConfig{ErlangCookie: "PLAINCOOKIE"})
	require.NoError(t, err)
	assert.Equal(t, "PLAINCOOKIE", cookie)
}

func TestResolveCookie_Unset(t *testing.T) {
	cookie, err := ResolveCookie(config.ClusterConfig{})
	require.NoError(t, err)
	assert.Empty(t, cookie)
}

func TestResolveCookie_Age(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	idPath := filepath.Join(t.TempDir(), "key.txt")
	require.NoError(t, os.WriteFile(idPath, []byte("# warren test key\n"+identity.String()+"\n"), 0600))

	cookie, err := ResolveCookie(config.ClusterConfig{
		ErlangCookieAge: encryptArmored(t, "SECRETCOOKIE\n", identity.Recipient()),
		AgeIdentityFile: idPath,
	})
	require.NoError(t, err)
	assert.Equal(t, "SECRETCOOKIE", cookie)
}

func TestResolveCookie_AgeCookieCharset(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	idPath := filepath.Join(t.TempDir(), "key.txt")
	require.NoError(t, os.WriteFile(idPath, []byte(identity.String()+"\n"), 0600))

	_, err = ResolveCookie(config.ClusterConfig{
		ErlangCookieAge: encryptArmored(t, "not a cookie!", identity.Recipient()),
		AgeIdentityFile: idPath,
	})
	var verrs config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "cluster.erlangCookieAge", verrs[0].Field)
	assert.NotContains(t, err.Error(), "not a cookie")
}

func TestResolveCookie_WrongIdentity(t *testing.T) {
	owner, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	other, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	idPath := filepath.Join(t.TempDir(), "key.txt")
	require.NoError(t, os.WriteFile(idPath, []byte(other.String()+"\n"), 0600))

	_, err = ResolveCookie(config.ClusterConfig{
		ErlangCookieAge: encryptArmored(t, "SECRETCOOKIE", owner.Recipient()),
		AgeIdentityFile: idPath,
	})
	assert.ErrorContains(t, err, "decrypt erlang cookie")
}

func TestResolveCookie_MissingIdentityFile(t *testing.T) {
	_, err := ResolveCookie(config.ClusterConfig{
		ErlangCookieAge: "-----BEGIN AGE ENCRYPTED FILE-----",
		AgeIdentityFile: filepath.Join(t.TempDir(), "absent"),
	})
	assert.ErrorContains(t, err, "open age identity file")
}
