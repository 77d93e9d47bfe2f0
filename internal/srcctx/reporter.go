package srcctx

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a reported diagnostic.
type Level string

const (
	LevelError Level = "error"
	LevelNote  Level = "note"
)

// Diagnostic is a single formatted report: a parse error or an
// IR-structural assertion failure, rendered as a Rust-style caret
// diagnostic.
type Diagnostic struct {
	Level    Level
	Message  string
	Position Position
	Length   int // underline width; defaults to 1
	Notes    []string
}

// Reporter formats Diagnostics against one source file.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter builds a Reporter for filename/source.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders d as a multi-line, colorized diagnostic: a header line, a
// `-->` location line, a gutter, the offending source line, and a caret.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	if d.Level == LevelNote {
		levelColor = color.New(color.FgBlue, color.Bold).SprintFunc()
	}

	out.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(d.Level)), d.Message))

	width := lineNumberWidth(d.Position.Line)
	indent := strings.Repeat(" ", width)

	out.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, d.Position.Line, d.Position.Column))
	out.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	if d.Position.Line >= 1 && d.Position.Line <= len(r.lines) {
		line := r.lines[d.Position.Line-1]
		out.WriteString(fmt.Sprintf("%s %s %s\n", bold(fmt.Sprintf("%*d", width, d.Position.Line)), dim("│"), line))

		length := d.Length
		if length <= 0 {
			length = 1
		}
		spaces := strings.Repeat(" ", max(0, d.Position.Column-1))
		marker := color.New(color.FgRed, color.Bold).SprintFunc()(strings.Repeat("^", length))
		out.WriteString(fmt.Sprintf("%s %s %s%s\n", indent, dim("│"), spaces, marker))
	}

	for _, note := range d.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		out.WriteString(fmt.Sprintf("%s %s %s %s\n", indent, dim("│"), noteColor("note:"), note))
	}

	out.WriteString("\n")
	return out.String()
}

func lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
