package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LockfileName sits next to the manifest and pins resolved dependency
// revisions.
const LockfileName = "program.lock"

// Lockfile records the resolved state of every manifest dependency.
type Lockfile struct {
	Path     string           `yaml:"-"`
	Root     string           `yaml:"root"`
	Tool     string           `yaml:"tool"`
	Packages []*LockedPackage `yaml:"packages"`
}

// LockedPackage pins one dependency to the exact commit that was
// installed.
type LockedPackage struct {
	Name     string `yaml:"name"`
	Git      string `yaml:"git"`
	Revision string `yaml:"revision"`
}

// NewLockfile creates an empty lockfile for the named root package.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{Root: root, Tool: tool}
}

// Package looks up a pinned dependency by name.
func (l *Lockfile) Package(name string) *LockedPackage {
	for _, p := range l.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Pin records (or updates) the pinned revision for a dependency and
// reports whether the lockfile changed.
func (l *Lockfile) Pin(name, gitURL, revision string) bool {
	if existing := l.Package(name); existing != nil {
		if existing.Git == gitURL && existing.Revision == revision {
			return false
		}
		existing.Git = gitURL
		existing.Revision = revision
		return true
	}
	l.Packages = append(l.Packages, &LockedPackage{Name: name, Git: gitURL, Revision: revision})
	sort.Slice(l.Packages, func(i, j int) bool { return l.Packages[i].Name < l.Packages[j].Name })
	return true
}

// Drop removes a pinned dependency; reports whether it was present.
func (l *Lockfile) Drop(name string) bool {
	for i, p := range l.Packages {
		if p.Name == name {
			l.Packages = append(l.Packages[:i], l.Packages[i+1:]...)
			return true
		}
	}
	return false
}

// LoadLockfile parses program.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", path, err)
	}
	lock.Path = path
	return &lock, nil
}

// WriteLockfile serialises the lockfile next to the manifest.
func WriteLockfile(lock *Lockfile, path string) error {
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("lockfile: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("lockfile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return nil
}
