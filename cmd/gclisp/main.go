package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const cliToolVersion = "gclisp 0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "repl":
		return runRepl(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		return runEntry(args)
	}
}

// newLogger returns the collector/installer logger. Debug output is
// opt-in via GCLISP_DEBUG to keep program output clean.
func newLogger() log.Logger {
	if os.Getenv("GCLISP_DEBUG") == "" {
		return log.NewNopLogger()
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	return level.NewFilter(logger, level.AllowDebug())
}
