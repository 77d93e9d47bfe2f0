// Package repl SPDX-License-Identifier: Apache-2.0
//
// Start reads pasted `fun NAME { ... }` blocks from in, runs the canonical
// pipeline one pass at a time, and prints the IR after each pass — letting
// a user watch combine_blocks, dominator computation, SSA construction and
// destruction, and copy cleanup happen incrementally instead of all at
// once, the way cmd/ssaflowc's single driver run does.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"ssaflow/internal/domtree"
	"ssaflow/internal/irtext"
	"ssaflow/internal/simplify"
	"ssaflow/internal/srcctx"
	"ssaflow/internal/ssaconv"
	"ssaflow/internal/ssair"
)

const PROMPT = ">> "

// envelopeLexer recognizes only enough of the grammar to tell where a
// pasted `fun ... { ... }` block ends: brace nesting. Everything inside a
// register name, rvalue or comment is irrelevant to that question, so
// this is deliberately not the full irtext grammar — just the subset
// needed to find the closing brace.
var envelopeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Other", Pattern: `[^{}]+`},
})

var envelopeSymbols = envelopeLexer.Symbols()

// braceDepth tokenizes line with envelopeLexer and returns how much the
// brace nesting changed.
func braceDepth(line string) int {
	toks, err := envelopeLexer.Lex("<repl>", strings.NewReader(line))
	if err != nil {
		return 0
	}
	depth := 0
	for {
		tok, err := toks.Next()
		if err != nil || tok.EOF() {
			break
		}
		switch tok.Type {
		case envelopeSymbols["LBrace"]:
			depth++
		case envelopeSymbols["RBrace"]:
			depth--
		}
	}
	return depth
}

type step struct {
	name  string
	apply func(fn *ssair.Function)
}

// canonicalSteps mirrors cmd/ssaflowc's pipeline, split into one step each
// so the REPL can print the IR in between.
func canonicalSteps() []step {
	return []step{
		{"combine_blocks", func(fn *ssair.Function) { simplify.CombineBlocks(fn) }},
		{"remove_unreachable", func(fn *ssair.Function) { simplify.RemoveUnreachable(fn) }},
		{"update_dominators", func(fn *ssair.Function) { domtree.Update(fn) }},
		{"update_post_dominators", func(fn *ssair.Function) { domtree.UpdatePost(fn) }},
		{"convert_to_ssa_form", func(fn *ssair.Function) { ssaconv.ConvertToSSA(fn) }},
		{"propagate_through_copies", func(fn *ssair.Function) {
			for simplify.PropagateThroughCopies(fn) {
			}
		}},
		{"convert_from_ssa_form", func(fn *ssair.Function) { ssaconv.ConvertFromSSA(fn) }},
		{"remove_useless_copies", func(fn *ssair.Function) { simplify.RemoveUselessCopies(fn) }},
	}
}

// Start runs the interactive loop over in, printing to out.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	reader := irtext.NewReader()
	writer := irtext.NewWriter()

	for {
		fmt.Fprint(out, PROMPT)
		block, ok := readBlock(scanner)
		if !ok {
			return
		}
		if strings.TrimSpace(block) == "" {
			continue
		}

		runBlock(out, reader, writer, block)
	}
}

// readBlock accumulates lines until the brace nesting opened by a `fun
// NAME {` line returns to zero, or input ends.
func readBlock(scanner *bufio.Scanner) (string, bool) {
	var b strings.Builder
	depth := 0
	sawBrace := false

	for scanner.Scan() {
		line := scanner.Text()
		b.WriteString(line)
		b.WriteString("\n")

		d := braceDepth(line)
		if d != 0 {
			sawBrace = true
		}
		depth += d

		if sawBrace && depth <= 0 {
			return b.String(), true
		}
	}

	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func runBlock(out io.Writer, reader *irtext.Reader, writer *irtext.Writer, src string) {
	prog, err := reader.ParseProgram("<repl>", src)
	if err != nil {
		if pe, ok := err.(*irtext.ParseError); ok {
			rep := srcctx.NewReporter("<repl>", src)
			fmt.Fprint(out, rep.Format(srcctx.Diagnostic{
				Level:    srcctx.LevelError,
				Message:  pe.Msg,
				Position: pe.Pos,
			}))
		} else {
			fmt.Fprintf(out, "error: %s\n", err)
		}
		return
	}

	for _, fn := range prog.Functions() {
		fmt.Fprintf(out, "=== %s (initial) ===\n", fn.Name)
		printFunction(out, writer, fn)

		for _, st := range canonicalSteps() {
			if !applyStep(out, st, fn) {
				break
			}
			fmt.Fprintf(out, "=== %s (after %s) ===\n", fn.Name, st.name)
			printFunction(out, writer, fn)
		}
	}
}

// applyStep runs one pass, recovering an IR-structural assertion failure
// the same way cmd/ssaflowc's driver does, so a bad paste aborts this
// block's display rather than the whole REPL session.
func applyStep(out io.Writer, st step, fn *ssair.Function) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if ae, isAssert := r.(srcctx.AssertionError); isAssert {
				fmt.Fprintf(out, "%s failed: %s\n", st.name, ae.Error())
				ok = false
				return
			}
			panic(r)
		}
	}()

	st.apply(fn)
	fn.CheckWellFormed()
	return true
}

func printFunction(out io.Writer, writer *irtext.Writer, fn *ssair.Function) {
	single := ssair.NewProgram()
	single.AddFunction(fn)
	if err := writer.WriteProgram(out, single); err != nil {
		fmt.Fprintf(out, "write error: %s\n", err)
	}
}
