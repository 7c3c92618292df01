package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMergeOperations(t *testing.T) {
	tests := []struct {
		old, next, expected Operation
	}{
		{OperationCreate, OperationUpdate, OperationCreate},
		{OperationCreate, OperationDelete, OperationDelete},
		{OperationUpdate, OperationUpdate, OperationUpdate},
		{OperationUpdate, OperationDelete, OperationDelete},
		{OperationDelete, OperationCreate, OperationUpdate},
	}

	for _, tt := range tests {
		t.Run(string(tt.old)+"_"+string(tt.next), func(t *testing.T) {
			assert.Equal(t, tt.expected, mergeOperations(tt.old, tt.next))
		})
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	descriptor := filepath.Join(dir, "rabbitmq.yaml")
	require.NoError(t, os.WriteFile(descriptor, []byte("port: 5672\n"), 0o644))

	w := New([]string{descriptor}, 50*time.Millisecond)
	changes := make(chan Change, 10)
	require.NoError(t, w.Start(context.Background(), changes))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(descriptor, []byte("port: 5673\n"), 0o644))
	}
	// Files next to the descriptor are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))

	select {
	case c := <-changes:
		assert.Equal(t, descriptor, c.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case c := <-changes:
		t.Fatalf("unexpected second change: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, w.Stop())
}

func TestWatcher_RenameOver(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	descriptor := filepath.Join(dir, "rabbitmq.yaml")
	require.NoError(t, os.WriteFile(descriptor, []byte("port: 5672\n"), 0o644))

	w := New([]string{descriptor}, 50*time.Millisecond)
	changes := make(chan Change, 10)
	require.NoError(t, w.Start(context.Background(), changes))
	defer func() { require.NoError(t, w.Stop()) }()

	tmp := filepath.Join(dir, ".rabbitmq.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("port: 5674\n"), 0o644))
	require.NoError(t, os.Rename(tmp, descriptor))

	select {
	case c := <-changes:
		assert.Equal(t, descriptor, c.Path)
		assert.NotEqual(t, OperationDelete, c.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	w := New([]string{filepath.Join(dir, "rabbitmq.yaml")}, 0)
	require.NoError(t, w.Start(ctx, make(chan Change, 1)))

	cancel()
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "stopping twice is harmless")
}

func TestWatcher_AddWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	descriptor := filepath.Join(t.TempDir(), "rabbitmq.yaml")
	identity := filepath.Join(t.TempDir(), "cookie.key")

	w := New([]string{descriptor}, 50*time.Millisecond)
	changes := make(chan Change, 10)
	require.NoError(t, w.Start(context.Background(), changes))
	defer func() { require.NoError(t, w.Stop()) }()

	require.NoError(t, w.Add(identity))
	require.NoError(t, w.Add(identity), "adding twice is harmless")
	require.NoError(t, os.WriteFile(identity, []byte("AGE-SECRET-KEY-1\n"), 0o600))

	select {
	case c := <-changes:
		assert.Equal(t, identity, c.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the added file")
	}
}
