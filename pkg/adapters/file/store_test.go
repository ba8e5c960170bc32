package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/wayfinder/pkg/adapters/file"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Atomicity(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &domain.Session{ID: "s1", RouteID: "r"}))
	require.NoError(t, store.Save(ctx, "s1", &domain.Session{ID: "s1", RouteID: "r", Completed: true}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not linger")
	assert.Equal(t, "s1.json", entries[0].Name())
}

func TestFileStore_ListIgnoresStrays(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-s2.json-123"), []byte("{}"), 0644))
	require.NoError(t, store.Save(context.Background(), "s1", &domain.Session{ID: "s1"}))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestFileStore_EmptyID(t *testing.T) {
	store := file.New(t.TempDir())
	assert.Error(t, store.Save(context.Background(), "", &domain.Session{}))
	_, err := store.Load(context.Background(), "")
	assert.Error(t, err)
}
