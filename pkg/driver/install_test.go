package driver

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(rel)
		return err
	}))
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "gclisp",
			Email: "gclisp@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash.String()
}

func commitFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	writeFile(t, filepath.Join(dir, name), contents)
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(name)
	require.NoError(t, err)
	hash, err := worktree.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "gclisp",
			Email: "gclisp@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash.String()
}

func depManifest(t *testing.T, root, depName, depURL string) *Manifest {
	t.Helper()
	dir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(dir, ManifestName), `
name: app
version: 0.1.0
entry: main.lisp
dependencies:
  `+depName+`:
    git: `+depURL)
	m, err := LoadManifest(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	return m
}

func TestInstallerClonesAndPins(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "prelude-src")
	writeFile(t, filepath.Join(repoDir, "prelude.lisp"), `(define prelude-loaded #t)`)
	rev := initGitRepo(t, repoDir)

	m := depManifest(t, root, "prelude", repoDir)
	cache := filepath.Join(root, "cache")
	ins := NewInstaller(m, cache, nil)

	lock := NewLockfile(m.Name, "gclisp")
	changed, err := ins.Install(lock, false)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, rev, lock.Package("prelude").Revision)

	_, err = os.Stat(filepath.Join(ins.DependencyDir("prelude"), "prelude.lisp"))
	require.NoError(t, err)

	// A second install with the same pins is a no-op.
	changed, err = ins.Install(lock, false)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestInstallerHonorsLockedRevision(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "lib-src")
	writeFile(t, filepath.Join(repoDir, "lib.lisp"), `(define lib-version 1)`)
	first := initGitRepo(t, repoDir)
	commitFile(t, repoDir, "lib.lisp", `(define lib-version 2)`)

	m := depManifest(t, root, "lib", repoDir)
	cache := filepath.Join(root, "cache")
	ins := NewInstaller(m, cache, nil)

	lock := NewLockfile(m.Name, "gclisp")
	lock.Pin("lib", repoDir, first)
	changed, err := ins.Install(lock, false)
	require.NoError(t, err)
	require.False(t, changed)

	data, err := os.ReadFile(filepath.Join(ins.DependencyDir("lib"), "lib.lisp"))
	require.NoError(t, err)
	require.Contains(t, string(data), "lib-version 1")
}

func TestInstallerUpdateMovesPin(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "lib-src")
	writeFile(t, filepath.Join(repoDir, "lib.lisp"), `(define lib-version 1)`)
	first := initGitRepo(t, repoDir)

	m := depManifest(t, root, "lib", repoDir)
	cache := filepath.Join(root, "cache")
	ins := NewInstaller(m, cache, nil)

	lock := NewLockfile(m.Name, "gclisp")
	_, err := ins.Install(lock, false)
	require.NoError(t, err)
	require.Equal(t, first, lock.Package("lib").Revision)

	second := commitFile(t, repoDir, "lib.lisp", `(define lib-version 2)`)
	// Without --update the old pin sticks; with it the pin follows the
	// remote.
	changed, err := ins.Install(lock, false)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, first, lock.Package("lib").Revision)

	changed, err = ins.Install(lock, true)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, second, lock.Package("lib").Revision)
}

func TestInstallerDropsRemovedDependencies(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "lib-src")
	writeFile(t, filepath.Join(repoDir, "lib.lisp"), `(define lib 1)`)
	initGitRepo(t, repoDir)

	m := depManifest(t, root, "lib", repoDir)
	ins := NewInstaller(m, filepath.Join(root, "cache"), nil)

	lock := NewLockfile(m.Name, "gclisp")
	lock.Pin("gone", "https://example.com/gone.git", "abc")
	changed, err := ins.Install(lock, false)
	require.NoError(t, err)
	require.True(t, changed)
	require.Nil(t, lock.Package("gone"))
	require.NotNil(t, lock.Package("lib"))
}

func TestInstallerSources(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "lib-src")
	writeFile(t, filepath.Join(repoDir, "b.lisp"), `(define b 2)`)
	writeFile(t, filepath.Join(repoDir, "a.lisp"), `(define a 1)`)
	writeFile(t, filepath.Join(repoDir, "README.md"), `docs`)
	initGitRepo(t, repoDir)

	m := depManifest(t, root, "lib", repoDir)
	ins := NewInstaller(m, filepath.Join(root, "cache"), nil)

	lock := NewLockfile(m.Name, "gclisp")
	_, err := ins.Install(lock, false)
	require.NoError(t, err)

	sources, err := ins.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, filepath.Join(ins.DependencyDir("lib"), "a.lisp"), sources[0])
	require.Equal(t, filepath.Join(ins.DependencyDir("lib"), "b.lisp"), sources[1])
}
