package main

import (
	"errors"
	"fmt"
	"os"

	"gclisp/gclisp-go/pkg/driver"
)

func runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "gclisp deps requires a subcommand: install or update")
		return 1
	}

	var update bool
	switch args[0] {
	case "install":
		update = false
	case "update":
		update = true
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand %q\n", args[0])
		return 1
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "gclisp deps %s does not take arguments\n", args[0])
		return 1
	}

	manifest, err := loadManifestFrom(".")
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			fmt.Fprintln(os.Stderr, "gclisp deps requires a program.yml")
		} else {
			fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		}
		return 1
	}

	lockPath := lockfilePath(manifest)
	lock, err := driver.LoadLockfile(lockPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "failed to load lockfile: %v\n", err)
			return 1
		}
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
	}

	installer := driver.NewInstaller(manifest, depsCacheDir(manifest), newLogger())
	changed, err := installer.Install(lock, update)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if changed {
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "pinned %d dependency(ies) in %s\n", len(lock.Packages), driver.LockfileName)
	} else {
		fmt.Fprintln(os.Stdout, "dependencies up to date")
	}
	return 0
}
