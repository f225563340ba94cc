package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger() { c.n.Add(1) }

func TestInboxWatcher_TriggersOnBundle(t *testing.T) {
	dir := t.TempDir()
	target := &countingTrigger{}

	w, err := NewInboxWatcher(dir, target, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, target.n.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "part1.json"), []byte(`{}`), 0o600))

	assert.Eventually(t, func() bool { return target.n.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestNewInboxWatcher_MissingDir(t *testing.T) {
	_, err := NewInboxWatcher(filepath.Join(t.TempDir(), "missing"), &countingTrigger{}, nil)

	assert.Error(t, err)
}
