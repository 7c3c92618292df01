// Package guard protects the Erlang cookie from being replaced underneath a
// broker that still holds state created with the old one.
//
// A node's mnesia database is bound to the cookie it was created with.
// Swapping the cookie without wiping that database leaves a node that cannot
// rejoin its cluster, and wiping it destroys queues, users and definitions.
// CookieGuard therefore refuses to proceed unless the wipe has been
// explicitly authorized.
package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"warren/pkg/logging"
)

// Decision is the outcome of evaluating the persisted cookie.
type Decision int

const (
	// DecisionInitial means no cookie is persisted yet; writing one is safe.
	DecisionInitial Decision = iota
	// DecisionUnchanged means the persisted cookie already matches.
	DecisionUnchanged
	// DecisionWipe means the cookie differs and the wipe is authorized: the
	// service must be stopped and its database removed before the new
	// cookie is written.
	DecisionWipe
)

func (d Decision) String() string {
	switch d {
	case DecisionInitial:
		return "initial"
	case DecisionUnchanged:
		return "unchanged"
	case DecisionWipe:
		return "wipe"
	default:
		return "unknown"
	}
}

// MismatchError aborts a run when the persisted cookie differs from the
// desired one and the wipe was not authorized. Cookies are identified by
// fingerprint only.
type MismatchError struct {
	Path       string
	Current    string
	Desired    string
	AuthOption string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"the erlang cookie at %s is %s and needs to change to %s; this requires wiping the RabbitMQ database, set %s to true to allow it",
		e.Path, e.Current, e.Desired, e.AuthOption)
}

// CookieGuard compares the persisted cookie at Path with Desired.
type CookieGuard struct {
	Path      string
	Desired   string
	AllowWipe bool
}

// Evaluate reads the persisted cookie and decides how the run may proceed.
// It never modifies anything on disk.
func (g *CookieGuard) Evaluate() (Decision, error) {
	data, err := os.ReadFile(g.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Guard", "No cookie at %s yet", g.Path)
			return DecisionInitial, nil
		}
		return 0, fmt.Errorf("read erlang cookie %s: %w", g.Path, err)
	}

	current := strings.TrimSpace(string(data))
	desired := strings.TrimSpace(g.Desired)
	if current == desired {
		return DecisionUnchanged, nil
	}

	if !g.AllowWipe {
		return 0, &MismatchError{
			Path:       g.Path,
			Current:    Fingerprint(current),
			Desired:    Fingerprint(desired),
			AuthOption: "cluster.wipeDBOnCookieChange",
		}
	}

	logging.Warn("Guard", "Erlang cookie at %s changes from %s to %s; the broker database will be wiped",
		g.Path, Fingerprint(current), Fingerprint(desired))
	return DecisionWipe, nil
}

// Fingerprint identifies a cookie in logs and errors without revealing it.
func Fingerprint(cookie string) string {
	sum := sha256.Sum256([]byte(cookie))
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}
