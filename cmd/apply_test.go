package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warren/internal/config"
	"warren/internal/watch"
)

func TestWatchIdentity_FollowsDescriptor(t *testing.T) {
	t.Cleanup(func() { descriptorPath = config.DefaultDescriptorPath })

	dir := t.TempDir()
	descriptorPath = filepath.Join(dir, "rabbitmq.yaml")
	require.NoError(t, os.WriteFile(descriptorPath, []byte("port: 5672\n"), 0o644))

	w := watch.New([]string{descriptorPath}, 20*time.Millisecond)
	changes := make(chan watch.Change, 10)
	require.NoError(t, w.Start(context.Background(), changes))
	defer func() { require.NoError(t, w.Stop()) }()

	watchIdentity(w)

	// The descriptor is edited to name an identity in another directory.
	identity := filepath.Join(t.TempDir(), "cookie.key")
	require.NoError(t, os.WriteFile(descriptorPath, []byte(
		"cluster:\n  erlangCookieAge: placeholder\n  ageIdentityFile: "+identity+"\n"), 0o644))
	watchIdentity(w)
	drain(changes)

	require.NoError(t, os.WriteFile(identity, []byte("AGE-SECRET-KEY-1\n"), 0o600))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Path == identity {
				return
			}
		case <-deadline:
			t.Fatal("identity file named by the edited descriptor is not watched")
		}
	}
}

func drain(changes <-chan watch.Change) {
	time.Sleep(100 * time.Millisecond)
	for {
		select {
		case <-changes:
		default:
			return
		}
	}
}

func TestWatchIdentity_InvalidDescriptorIsIgnored(t *testing.T) {
	t.Cleanup(func() { descriptorPath = config.DefaultDescriptorPath })
	descriptorPath = filepath.Join(t.TempDir(), "rabbitmq.yaml")
	require.NoError(t, os.WriteFile(descriptorPath, []byte("port: [\n"), 0o644))

	w := watch.New([]string{descriptorPath}, 0)
	assert.NotPanics(t, func() { watchIdentity(w) })
}
