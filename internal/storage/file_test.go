package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	kv, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "queue/changes", `[{"id":"1"}]`))
	require.NoError(t, kv.Set(ctx, "telemetry/metrics", `[]`))

	reopened, err := NewFile(path)
	require.NoError(t, err)

	value, err := reopened.Get(ctx, "queue/changes")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, value)
}

func TestFile_CorruptStateResetsToEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	kv, err := NewFile(path)
	require.NoError(t, err)

	_, err = kv.Get(ctx, "anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_RemoveDeletesFromDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	kv, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", "v"))
	require.NoError(t, kv.Remove(ctx, "k"))

	reopened, err := NewFile(path)
	require.NoError(t, err)
	_, err = reopened.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
