package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  gclisp run [file.lisp]")
	fmt.Fprintln(os.Stderr, "  gclisp <file.lisp>")
	fmt.Fprintln(os.Stderr, "  gclisp repl")
	fmt.Fprintln(os.Stderr, "  gclisp deps install")
	fmt.Fprintln(os.Stderr, "  gclisp deps update")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "With no file argument, run resolves the entry file from the nearest program.yml.")
}
