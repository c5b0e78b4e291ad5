package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Installer materializes a manifest's git dependencies into a cache
// directory and keeps the lockfile's pins in sync with what is
// actually checked out.
type Installer struct {
	manifest *Manifest
	cacheDir string
	logger   log.Logger
}

// NewInstaller creates an installer for the manifest. A nil logger is
// replaced by a no-op logger.
func NewInstaller(m *Manifest, cacheDir string, logger log.Logger) *Installer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Installer{manifest: m, cacheDir: cacheDir, logger: logger}
}

// DependencyDir is the cache directory one dependency is checked out
// into.
func (ins *Installer) DependencyDir(name string) string {
	return filepath.Join(ins.cacheDir, name)
}

// Install ensures every manifest dependency is present at its pinned
// revision. Locked pins win unless update is set, in which case the
// manifest's revision expression is re-resolved against the remote.
// Pins for dependencies no longer in the manifest are dropped. Reports
// whether the lockfile changed.
func (ins *Installer) Install(lock *Lockfile, update bool) (bool, error) {
	changed := false

	names := make([]string, 0, len(ins.manifest.Dependencies))
	for name := range ins.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := ins.manifest.Dependencies[name]
		revision, err := ins.installOne(name, spec, lock, update)
		if err != nil {
			return changed, fmt.Errorf("install %s: %w", name, err)
		}
		if lock.Pin(name, spec.Git, revision) {
			changed = true
		}
	}

	for _, pinned := range append([]*LockedPackage(nil), lock.Packages...) {
		if _, ok := ins.manifest.Dependencies[pinned.Name]; !ok {
			lock.Drop(pinned.Name)
			changed = true
		}
	}
	return changed, nil
}

func (ins *Installer) installOne(name string, spec *DependencySpec, lock *Lockfile, update bool) (string, error) {
	dir := ins.DependencyDir(name)

	// Updates discard the cached clone so HEAD and revision
	// expressions resolve against the remote's current state.
	if update {
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("discard cached clone: %w", err)
		}
	}

	repo, cloned, err := ins.openOrClone(name, spec, dir)
	if err != nil {
		return "", err
	}

	// A locked pin is authoritative unless the caller asked for an
	// update; otherwise fall back to the manifest's expression, then
	// to whatever the clone's HEAD is.
	target := ""
	if pinned := lock.Package(name); pinned != nil && !update {
		target = pinned.Revision
	} else if expr := spec.Revision(); expr != "" {
		target = expr
	}

	if target == "" {
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("resolve HEAD: %w", err)
		}
		return head.Hash().String(), nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(target))
	if err != nil && !cloned {
		// The cached clone may predate the pinned commit; retry from
		// a fresh clone before giving up.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return "", fmt.Errorf("discard stale clone: %w", rmErr)
		}
		repo, _, err = ins.openOrClone(name, spec, dir)
		if err != nil {
			return "", err
		}
		hash, err = repo.ResolveRevision(plumbing.Revision(target))
	}
	if err != nil {
		return "", fmt.Errorf("resolve revision %q: %w", target, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return "", fmt.Errorf("checkout %s: %w", hash, err)
	}
	level.Debug(ins.logger).Log("msg", "dependency ready", "name", name, "revision", hash.String())
	return hash.String(), nil
}

func (ins *Installer) openOrClone(name string, spec *DependencySpec, dir string) (*git.Repository, bool, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, false, nil
	}
	if err != git.ErrRepositoryNotExists {
		return nil, false, fmt.Errorf("open cached clone: %w", err)
	}
	level.Debug(ins.logger).Log("msg", "cloning dependency", "name", name, "url", spec.Git)
	repo, err = git.PlainClone(dir, false, &git.CloneOptions{URL: spec.Git})
	if err != nil {
		return nil, false, fmt.Errorf("clone %s: %w", spec.Git, err)
	}
	return repo, true, nil
}

// Sources returns every dependency's .lisp files in deterministic load
// order: dependencies sorted by name, files sorted by path within each.
func (ins *Installer) Sources() ([]string, error) {
	names := make([]string, 0, len(ins.manifest.Dependencies))
	for name := range ins.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var sources []string
	for _, name := range names {
		dir := ins.DependencyDir(name)
		var files []string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, ".lisp") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("dependency %s not installed (run deps install)", name)
			}
			return nil, err
		}
		sort.Strings(files)
		sources = append(sources, files...)
	}
	return sources, nil
}
