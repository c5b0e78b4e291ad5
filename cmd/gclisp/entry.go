package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gclisp/gclisp-go/pkg/driver"
	"gclisp/gclisp-go/pkg/gc"
	"gclisp/gclisp-go/pkg/lisp"
)

var errManifestNotFound = errors.New("program.yml not found")

func runEntry(args []string) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}

	var entryPath string
	var manifest *driver.Manifest
	var err error

	if len(args) == 1 {
		entryPath, err = filepath.Abs(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		if _, statErr := os.Stat(entryPath); statErr != nil {
			fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", args[0], statErr)
			return 1
		}
		// A manifest near the file contributes its heap policy and
		// library dependencies; running a bare file works without one.
		manifest, err = loadManifestFrom(filepath.Dir(entryPath))
		if err != nil && !errors.Is(err, errManifestNotFound) {
			fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
			return 1
		}
	} else {
		manifest, err = loadManifestFrom(".")
		if err != nil {
			if errors.Is(err, errManifestNotFound) {
				fmt.Fprintln(os.Stderr, "gclisp run requires a source file or a program.yml")
			} else {
				fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
			}
			return 1
		}
		entryPath = manifest.EntryPath()
	}

	sources, err := librarySources(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	sources = append(sources, entryPath)

	heap := newHeap(manifest)
	defer heap.Close()
	interp := lisp.New(heap)

	err = heap.Enter(func(s *gc.Session) error {
		for _, path := range sources {
			src, readErr := os.ReadFile(path)
			if readErr != nil {
				return readErr
			}
			if _, evalErr := interp.EvalString(s, string(src)); evalErr != nil {
				return fmt.Errorf("%s: %w", path, evalErr)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "gclisp repl does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}
	manifest, err := loadManifestFrom(".")
	if err != nil && !errors.Is(err, errManifestNotFound) {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	sources, err := librarySources(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	heap := newHeap(manifest)
	defer heap.Close()
	interp := lisp.New(heap)

	fmt.Fprintln(os.Stdout, cliToolVersion)
	err = heap.Enter(func(s *gc.Session) error {
		for _, path := range sources {
			src, readErr := os.ReadFile(path)
			if readErr != nil {
				return readErr
			}
			if _, evalErr := interp.EvalString(s, string(src)); evalErr != nil {
				return fmt.Errorf("%s: %w", path, evalErr)
			}
		}
		return replLoop(s, interp, os.Stdin)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func replLoop(s *gc.Session, interp *lisp.Interp, input *os.File) error {
	scanner := bufio.NewScanner(input)
	for {
		fmt.Fprint(os.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(os.Stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		result, err := interp.EvalString(s, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(os.Stdout, lisp.Sprint(s, result))
	}
}

func loadManifestFrom(dir string) (*driver.Manifest, error) {
	path, err := driver.FindManifest(dir)
	if err != nil {
		return nil, errManifestNotFound
	}
	return driver.LoadManifest(path)
}

// librarySources returns the dependency .lisp files to evaluate before
// the program's own sources, in deterministic order.
func librarySources(manifest *driver.Manifest) ([]string, error) {
	if manifest == nil || len(manifest.Dependencies) == 0 {
		return nil, nil
	}
	installer := driver.NewInstaller(manifest, depsCacheDir(manifest), newLogger())
	return installer.Sources()
}

func depsCacheDir(manifest *driver.Manifest) string {
	return filepath.Join(filepath.Dir(manifest.Path), ".gclisp", "deps")
}

func lockfilePath(manifest *driver.Manifest) string {
	return filepath.Join(filepath.Dir(manifest.Path), driver.LockfileName)
}

func newHeap(manifest *driver.Manifest) *gc.Heap {
	opts := []gc.Option{gc.WithLogger(newLogger())}
	if manifest != nil {
		opts = append(opts, gc.WithPolicy(manifest.GC.Policy()))
	}
	return gc.NewHeap(opts...)
}
