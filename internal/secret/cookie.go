// Package secret resolves the Erlang cookie from the descriptor, decrypting it
// with age when it is stored encrypted.
package secret

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"warren/internal/config"
)

// ResolveCookie returns the plaintext cookie for c. A plain erlangCookie is
// returned as is; an erlangCookieAge ciphertext is decrypted with the
// identities in ageIdentityFile. It returns "" when neither is set.
func ResolveCookie(c config.ClusterConfig) (string, error) {
	if c.ErlangCookieAge == "" {
		return c.ErlangCookie, nil
	}

	f, err := os.Open(c.AgeIdentityFile)
	if err != nil {
		return "", fmt.Errorf("open age identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return "", fmt.Errorf("parse age identities in %s: %w", c.AgeIdentityFile, err)
	}

	cookie, err := decrypt(c.ErlangCookieAge, identities)
	if err != nil {
		return "", err
	}
	if !config.ValidCookie(cookie) {
		return "", config.ValidationErrors{{
			Field:   "cluster.erlangCookieAge",
			Message: "decrypts to a cookie that contains characters other than letters and digits",
		}}
	}
	return cookie, nil
}

func decrypt(armored string, identities []age.Identity) (string, error) {
	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(armored)+"\n")), identities...)
	if err != nil {
		return "", fmt.Errorf("decrypt erlang cookie: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read decrypted erlang cookie: %w", err)
	}

	cookie := strings.TrimSpace(string(plaintext))
	if cookie == "" {
		return "", fmt.Errorf("decrypted erlang cookie is empty")
	}
	return cookie, nil
}
