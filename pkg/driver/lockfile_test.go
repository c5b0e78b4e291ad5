package driver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockfilePinAndDrop(t *testing.T) {
	lock := NewLockfile("demo", "gclisp")

	require.True(t, lock.Pin("zeta", "https://example.com/zeta.git", "aaa"))
	require.True(t, lock.Pin("alpha", "https://example.com/alpha.git", "bbb"))
	require.Equal(t, "alpha", lock.Packages[0].Name)
	require.Equal(t, "zeta", lock.Packages[1].Name)

	// Re-pinning the same revision is a no-op.
	require.False(t, lock.Pin("alpha", "https://example.com/alpha.git", "bbb"))
	require.True(t, lock.Pin("alpha", "https://example.com/alpha.git", "ccc"))
	require.Equal(t, "ccc", lock.Package("alpha").Revision)

	require.True(t, lock.Drop("zeta"))
	require.False(t, lock.Drop("zeta"))
	require.Nil(t, lock.Package("zeta"))
}

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockfileName)

	lock := NewLockfile("demo", "gclisp")
	lock.Pin("prelude", "https://example.com/prelude.git", "deadbeef")
	require.NoError(t, WriteLockfile(lock, path))

	loaded, err := LoadLockfile(path)
	require.NoError(t, err)
	require.Equal(t, "demo", loaded.Root)
	require.Equal(t, "gclisp", loaded.Tool)
	require.Equal(t, path, loaded.Path)
	require.Len(t, loaded.Packages, 1)
	require.Equal(t, "deadbeef", loaded.Package("prelude").Revision)
}
