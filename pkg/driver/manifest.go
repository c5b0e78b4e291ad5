package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gclisp/gclisp-go/pkg/gc"
)

// ManifestName is the file the driver looks for when resolving a
// program directory.
const ManifestName = "program.yml"

// Manifest represents the parsed contents of program.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Entry        string
	GC           GCSpec
	Dependencies map[string]*DependencySpec
}

// GCSpec is the manifest's heap policy block.
type GCSpec struct {
	ChunkSize        int `yaml:"chunk_size"`
	CollectThreshold int `yaml:"collect_threshold"`
}

// Policy maps the manifest block onto the collector's policy; zero
// fields fall back to the collector defaults.
func (g GCSpec) Policy() gc.Policy {
	return gc.Policy{
		ChunkSize:        g.ChunkSize,
		CollectThreshold: g.CollectThreshold,
	}
}

// DependencySpec describes one git-hosted library dependency.
type DependencySpec struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

// Revision returns the requested revision expression, empty when the
// dependency floats on the remote default branch.
func (d *DependencySpec) Revision() string {
	switch {
	case d.Rev != "":
		return d.Rev
	case d.Tag != "":
		return d.Tag
	case d.Branch != "":
		return d.Branch
	default:
		return ""
	}
}

func (d *DependencySpec) validate() []string {
	var issues []string
	if d.Git == "" {
		issues = append(issues, "git url must be provided")
	}
	pinned := 0
	for _, v := range []string{d.Rev, d.Tag, d.Branch} {
		if v != "" {
			pinned++
		}
	}
	if pinned > 1 {
		issues = append(issues, "at most one of rev, tag, branch may be set")
	}
	return issues
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name         string                     `yaml:"name"`
	Version      string                     `yaml:"version"`
	Entry        string                     `yaml:"entry"`
	GC           GCSpec                     `yaml:"gc"`
	Dependencies map[string]*DependencySpec `yaml:"dependencies"`
}

// LoadManifest parses program.yml from disk, returning a validated
// manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := &Manifest{
		Path:         absPath,
		Name:         raw.Name,
		Version:      raw.Version,
		Entry:        raw.Entry,
		GC:           raw.GC,
		Dependencies: raw.Dependencies,
	}
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Entry == "" {
		errs.Issues = append(errs.Issues, "entry must name the program's main source file")
	} else if filepath.IsAbs(m.Entry) {
		errs.Issues = append(errs.Issues, "entry must be relative to the manifest directory")
	}
	if m.GC.ChunkSize < 0 {
		errs.Issues = append(errs.Issues, "gc.chunk_size must not be negative")
	}
	if m.GC.CollectThreshold < 0 {
		errs.Issues = append(errs.Issues, "gc.collect_threshold must not be negative")
	}
	for name, dep := range m.Dependencies {
		if name == "" {
			errs.Issues = append(errs.Issues, "dependencies must not use empty keys")
			continue
		}
		if dep == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: specification must be provided", name))
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// EntryPath resolves the entry file against the manifest directory.
func (m *Manifest) EntryPath() string {
	return filepath.Join(filepath.Dir(m.Path), m.Entry)
}

// FindManifest walks upward from dir looking for program.yml.
func FindManifest(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(current, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%s not found in %s or any parent", ManifestName, dir)
		}
		current = parent
	}
}
