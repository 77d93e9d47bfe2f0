// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"ssaflow/internal/domtree"
	"ssaflow/internal/irtext"
	"ssaflow/internal/simplify"
	"ssaflow/internal/srcctx"
	"ssaflow/internal/ssaconv"
	"ssaflow/internal/ssair"
)

const (
	exitOK    = 0
	exitUsage = 1
	exitFail  = 2
)

func main() {
	if len(os.Args) > 2 {
		fmt.Fprintln(os.Stderr, "Usage: ssaflowc [file.ir]  (reads stdin if no file given)")
		os.Exit(exitUsage)
	}

	path := "<stdin>"
	var source []byte
	var err error
	if len(os.Args) == 2 {
		path = os.Args[1]
		source, err = os.ReadFile(path)
	} else {
		source, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(color.Error, "failed to read input: %s\n", err)
		os.Exit(exitUsage)
	}

	prog, err := irtext.NewReader().ParseProgram(path, string(source))
	if err != nil {
		reportError(string(source), err)
		os.Exit(exitFail)
	}

	if err := runPipeline(prog); err != nil {
		reportError(string(source), err)
		os.Exit(exitFail)
	}

	if err := irtext.NewWriter().WriteProgram(os.Stdout, prog); err != nil {
		color.New(color.FgRed).Fprintf(color.Error, "failed to write output: %s\n", err)
		os.Exit(exitFail)
	}
}

// runPipeline applies the canonical eight-pass sequence to every function
// in the program, checking well-formedness after each step — an
// IR-structural assertion failure is recovered here and reported the same
// way a parse error is; neither loops back into a pass.
func runPipeline(prog *ssair.Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(srcctx.AssertionError); ok {
				err = ae
				return
			}
			panic(r)
		}
	}()

	for _, fn := range prog.Functions() {
		simplify.CombineBlocks(fn)
		fn.CheckWellFormed()

		simplify.RemoveUnreachable(fn)
		fn.CheckWellFormed()

		domtree.Update(fn)
		fn.CheckWellFormed()
		domtree.UpdatePost(fn)
		fn.CheckWellFormed()

		ssaconv.ConvertToSSA(fn)
		fn.CheckWellFormed()

		for simplify.PropagateThroughCopies(fn) {
		}
		fn.CheckWellFormed()

		ssaconv.ConvertFromSSA(fn)
		fn.CheckWellFormed()

		simplify.RemoveUselessCopies(fn)
		fn.CheckWellFormed()
	}

	return nil
}

// reportError prints a caret-style message for a *irtext.ParseError and
// falls back to a plain message for any other error — an IR-structural
// assertion or an I/O failure, neither of which carries a source
// position. Everything goes to stderr; stdout is reserved for the
// transformed IR.
func reportError(src string, err error) {
	red := color.New(color.FgRed)

	pe, ok := err.(*irtext.ParseError)
	if !ok {
		red.Fprintf(color.Error, "error: %s\n", err)
		return
	}

	lines := strings.Split(src, "\n")
	line := pe.Pos.Line
	if line <= 0 || line > len(lines) {
		red.Fprintf(color.Error, "%s: %s\n", pe.Filename, pe.Msg)
		return
	}

	caret := strings.Repeat(" ", pe.Pos.Column-1) + "^"

	red.Fprintf(color.Error, "%s at line %d, column %d:\n", pe.Filename, pe.Pos.Line, pe.Pos.Column)
	fmt.Fprintln(os.Stderr, lines[line-1])
	color.New(color.FgHiRed).Fprintln(color.Error, caret)
	fmt.Fprintf(os.Stderr, "-> %s\n", pe.Msg)
}
