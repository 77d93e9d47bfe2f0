// Package irtext parses and emits the line-oriented IR textual format.
// The grammar is whitespace-insignificant except for line breaks and one
// line-final-anchored rule (a label line is recognized by ending, after
// trailing whitespace is trimmed, in a colon) — a shape that fits a small
// hand-rolled scanner far better than a declarative grammar. The error
// type still presents the participle.Error shape so callers (in
// particular the CLI's caret formatter) don't need to special-case it.
package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"ssaflow/internal/srcctx"
	"ssaflow/internal/ssair"
)

// ParseError is returned by Reader.ParseProgram on malformed input. It
// mirrors participle/v2's Error interface (Message/Position/Error) so a
// single caret-printing code path handles both this and a participle
// parser's errors (see internal/irlsp and cmd/ssaflowc).
type ParseError struct {
	Filename string
	Pos      srcctx.Position
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.Filename, e.Pos, e.Msg)
}

// Message returns the error text without position information.
func (e *ParseError) Message() string { return e.Msg }

// Position returns where in the source the error occurred (Line/Column/
// Offset fields, participle-Position-shaped).
func (e *ParseError) Position() srcctx.Position { return e.Pos }

// Reader parses IR program text into a live ssair.Program.
type Reader struct{}

// NewReader returns a Reader. Readers are stateless and safe to reuse.
func NewReader() *Reader { return &Reader{} }

// ParseProgram parses src (attributed to filename for diagnostics) and
// returns the resulting program, or a *ParseError describing the first
// syntax or structural problem encountered.
func (*Reader) ParseProgram(filename, src string) (prog *ssair.Program, err error) {
	ctx := srcctx.NewFileContext(filename, src)
	lr := newLineReader(ctx, src)

	// srcctx.Recover (innermost, runs first) turns the ctx.Error panic
	// raised by lr.errorf into a plain error; this defer then upgrades it
	// into a ParseError carrying the position lr.errorf captured.
	defer func() {
		if err != nil {
			err = &ParseError{Filename: filename, Pos: lr.lastPos, Msg: lr.lastMsg}
		}
	}()
	defer srcctx.Recover(&err)

	prog = ssair.NewProgram()

	for lr.nextLine() {
		lr.skipWhitespace()
		if lr.atEOL() {
			continue
		}
		lr.expectKeyword("fun")
		name := lr.readID()
		if prog.Function(name) != nil {
			lr.errorf("duplicate function name %q", name)
		}
		prog.AddFunction(parseFun(lr, name))
	}

	return prog, nil
}

// parseFun parses the body of one function, from the line holding "{"
// through its closing "}". The leading "fun <name>" line has already been
// consumed by the caller.
func parseFun(lr *lineReader, name string) *ssair.Function {
	fn := ssair.NewFunction(name)

	lr.nextLine()
	lr.expectByte('{')

	registers := map[string]ssair.RegID{}
	labeledBlocks := map[string]ssair.BlockID{}

	getReg := func(regName string) ssair.RegID {
		id, ok := registers[regName]
		if !ok {
			lr.errorf("unknown register %q", regName)
		}
		return id
	}

	labelBlock := func(label string) ssair.BlockID {
		if id, ok := labeledBlocks[label]; ok {
			return id
		}
		id := fn.AddBlock()
		labeledBlocks[label] = id
		return id
	}

	readRvalueReg := func() ssair.RegID {
		lr.skipWhitespace()
		if !lr.atEOL() && isIDStart(lr.peek()) {
			return getReg(lr.readID())
		}

		v := lr.readInt()
		for _, r := range fn.Registers() {
			if r.IsConstant() && fn.Value(r.Const).Data == v {
				return r.ID()
			}
		}
		return fn.NewConstRegister(fn.NewValue(v)).ID()
	}

	var curBlock ssair.BlockID = fn.Entry()
	sawLabel := false
	sawFunResult := false

	for lr.nextLine() {
		if lr.skipByte('}') {
			if curBlock.Valid() {
				fn.Block(curBlock).SetFallThrough(fn.Exit())
			}
			return fn
		}

		if lr.skipByte('#') || lr.atEOL() {
			continue
		}

		if lr.skipKeyword("fun_result") {
			num := lr.readUnsigned()
			resultReg := getReg(lr.readID())
			insn := ssair.NewFunResult(fn, num, resultReg)
			fn.Block(fn.Exit()).AddInsn(insn.ID())
			sawFunResult = true
			continue
		}

		if sawFunResult {
			lr.errorf("no instructions can follow a fun_result instruction")
		}

		// Label line: recognized by the line ending (after trailing
		// whitespace) in ':', regardless of what precedes it on the
		// line.
		if lr.skipEOL(':') {
			prevBlock := curBlock
			label := lr.readID()
			blockID := labelBlock(label)

			if !fn.Block(blockID).IsEmpty() {
				lr.errorf("duplicate label %s", label)
			}
			if prevBlock.Valid() {
				fn.Block(prevBlock).SetFallThrough(blockID)
			}

			curBlock = blockID
			sawLabel = true
			continue
		}

		id := lr.readID()

		// Register declaration.
		if id == "reg" && lr.peek() != ':' {
			regName := lr.readID()
			if _, dup := registers[regName]; dup {
				lr.errorf("duplicate register declaration %q", regName)
			}
			registers[regName] = fn.NewRegister(regName).ID()
			continue
		}

		if !curBlock.Valid() {
			lr.errorf("expected label")
		}

		lr.skipWhitespace()

		// Assignment: "id := ..." or parallel copy "id, id2 := ..., ...".
		if lr.peek() == ':' || lr.peek() == ',' {
			parseAssignment(lr, fn, curBlock, getReg, readRvalueReg, id)
			continue
		}

		switch id {
		case "goto":
			target := labelBlock(lr.readID())
			fn.Block(curBlock).SetFallThrough(target)
			curBlock = 0
			continue

		case "if":
			lr.expectByte('(')
			cond := readRvalueReg()
			lr.expectByte(')')
			lr.expectKeyword("goto")
			target := labelBlock(lr.readID())
			insn := ssair.NewCondBranch(fn, cond, target)
			fn.Block(curBlock).AddInsn(insn.ID())
			continue

		case "nop":
			insn := ssair.NewNop(fn)
			fn.Block(curBlock).AddInsn(insn.ID())
			continue

		case "fun_arg":
			if sawLabel {
				lr.errorf("fun_arg instructions are only valid at the start of a function")
			}
			argNum := lr.readUnsigned()
			argReg := getReg(lr.readID())
			insn := ssair.NewFunArg(fn, argNum, argReg)
			fn.Block(fn.Entry()).AddInsn(insn.ID())
			continue
		}

		lr.errorf("unknown instruction %q", id)
	}

	lr.errorf("unexpected end of input, expected '}'")
	return nil
}

// parseAssignment handles both "result := rvalue [op rvalue]" and the
// parallel-copy form "r1, r2 := s1, s2", refusing anything beyond
// matching arity between the two sides.
func parseAssignment(lr *lineReader, fn *ssair.Function, block ssair.BlockID,
	getReg func(string) ssair.RegID, readRvalueReg func() ssair.RegID, firstID string) {

	results := []ssair.RegID{getReg(firstID)}
	for lr.skipByte(',') {
		results = append(results, getReg(lr.readID()))
	}

	lr.expectByte(':')
	lr.expectByte('=')
	lr.skipWhitespace()

	if len(results) > 1 {
		var sources []ssair.RegID
		sources = append(sources, readRvalueReg())
		for lr.skipByte(',') {
			sources = append(sources, readRvalueReg())
		}
		if len(sources) != len(results) {
			lr.errorf("parallel copy arity mismatch: %d results, %d sources", len(results), len(sources))
		}
		for i, result := range results {
			insn := ssair.NewCopy(fn, sources[i], result)
			fn.Block(block).AddInsn(insn.ID())
		}
		return
	}

	result := results[0]

	if lr.skipByte('-') {
		arg := readRvalueReg()
		insn := ssair.NewCalc(fn, ssair.CalcNEG, []ssair.RegID{arg}, result)
		fn.Block(block).AddInsn(insn.ID())
		return
	}

	arg1 := readRvalueReg()
	lr.skipWhitespace()

	if lr.atEOL() {
		insn := ssair.NewCopy(fn, arg1, result)
		fn.Block(block).AddInsn(insn.ID())
		return
	}

	opCh := lr.readChar()
	var op ssair.CalcOp
	switch opCh {
	case '+':
		op = ssair.CalcADD
	case '-':
		op = ssair.CalcSUB
	case '*':
		op = ssair.CalcMUL
	case '/':
		op = ssair.CalcDIV
	default:
		lr.errorf("unknown calculation operation %q", opCh)
	}

	arg2 := readRvalueReg()
	insn := ssair.NewCalc(fn, op, []ssair.RegID{arg1, arg2}, result)
	fn.Block(block).AddInsn(insn.ID())
}

// --- lineReader: a small hand-rolled scanner over line-oriented,
// whitespace-insignificant (except newlines) source text.

type lineReader struct {
	ctx     srcctx.Context
	lines   []string
	offsets []int

	lineIdx int // index into lines of the line currently being scanned
	pos     int // byte offset into lines[lineIdx] of the next unread byte
	maxOffs int // effective end of the current line; shrinks via skipEOL

	lastPos srcctx.Position // captured by errorf just before the fatal panic
	lastMsg string
}

func newLineReader(ctx srcctx.Context, src string) *lineReader {
	lines := strings.Split(src, "\n")
	offsets := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		offsets[i] = off
		off += len(l) + 1
	}
	return &lineReader{ctx: ctx, lines: lines, offsets: offsets, lineIdx: -1}
}

func (lr *lineReader) curLine() string { return lr.lines[lr.lineIdx] }

func (lr *lineReader) nextLine() bool {
	lr.lineIdx++
	if lr.lineIdx >= len(lr.lines) {
		return false
	}
	lr.pos = 0
	lr.maxOffs = len(lr.curLine())
	return true
}

func (lr *lineReader) loc() srcctx.Loc {
	if lr.lineIdx >= len(lr.lines) {
		last := len(lr.lines) - 1
		return srcctx.NewOffsetLoc(lr.offsets[last] + len(lr.lines[last]))
	}
	return srcctx.NewOffsetLoc(lr.offsets[lr.lineIdx] + lr.pos)
}

func (lr *lineReader) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	lr.lastPos = lr.ctx.Resolve(lr.loc())
	lr.lastMsg = msg
	lr.ctx.Error(lr.loc(), msg) // never returns
}

func (lr *lineReader) atEOL() bool { return lr.pos >= lr.maxOffs }

func (lr *lineReader) peek() byte {
	if lr.atEOL() {
		return 0
	}
	return lr.curLine()[lr.pos]
}

func (lr *lineReader) peekEOL() byte {
	if lr.maxOffs <= lr.pos {
		return 0
	}
	return lr.curLine()[lr.maxOffs-1]
}

func (lr *lineReader) readChar() byte {
	c := lr.peek()
	lr.pos++
	return c
}

func isSpaceByte(c byte) bool { return c == ' ' || c == '\t' || c == '\r' }

func isIDStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIDCont(c byte) bool { return isIDStart(c) || (c >= '0' && c <= '9') }

func (lr *lineReader) skipWhitespace() {
	for !lr.atEOL() && isSpaceByte(lr.peek()) {
		lr.pos++
	}
}

func (lr *lineReader) skipEOLWhitespace() {
	for lr.maxOffs > lr.pos && isSpaceByte(lr.curLine()[lr.maxOffs-1]) {
		lr.maxOffs--
	}
}

// skipEOL reports whether the current line, with trailing whitespace
// trimmed, ends in ch — and if so, consumes it from the end.
func (lr *lineReader) skipEOL(ch byte) bool {
	lr.skipEOLWhitespace()
	if lr.peekEOL() == ch {
		lr.maxOffs--
		return true
	}
	return false
}

func (lr *lineReader) readID() string {
	lr.skipWhitespace()
	start := lr.pos
	if lr.atEOL() || !isIDStart(lr.peek()) {
		lr.errorf("expected identifier")
	}
	for !lr.atEOL() && isIDCont(lr.peek()) {
		lr.pos++
	}
	return lr.curLine()[start:lr.pos]
}

func (lr *lineReader) readUnsigned() int {
	lr.skipWhitespace()
	start := lr.pos
	for !lr.atEOL() && lr.peek() >= '0' && lr.peek() <= '9' {
		lr.pos++
	}
	if lr.pos == start {
		lr.errorf("expected an unsigned integer")
	}
	n, _ := strconv.Atoi(lr.curLine()[start:lr.pos])
	return n
}

func (lr *lineReader) readInt() int64 {
	lr.skipWhitespace()
	neg := lr.skipByte('-')
	start := lr.pos
	for !lr.atEOL() && lr.peek() >= '0' && lr.peek() <= '9' {
		lr.pos++
	}
	if lr.pos == start {
		lr.errorf("expected an integer")
	}
	n, _ := strconv.ParseInt(lr.curLine()[start:lr.pos], 10, 64)
	if neg {
		n = -n
	}
	return n
}

func (lr *lineReader) skipByte(ch byte) bool {
	lr.skipWhitespace()
	if !lr.atEOL() && lr.peek() == ch {
		lr.pos++
		return true
	}
	return false
}

func (lr *lineReader) expectByte(ch byte) {
	if !lr.skipByte(ch) {
		lr.errorf("expected %q", ch)
	}
}

func (lr *lineReader) skipKeyword(kw string) bool {
	save := lr.pos
	lr.skipWhitespace()
	rest := lr.curLine()[lr.pos:lr.maxOffs]
	if !strings.HasPrefix(rest, kw) {
		lr.pos = save
		return false
	}
	end := lr.pos + len(kw)
	if end < lr.maxOffs && isIDCont(lr.curLine()[end]) {
		lr.pos = save
		return false
	}
	lr.pos = end
	return true
}

func (lr *lineReader) expectKeyword(kw string) {
	if !lr.skipKeyword(kw) {
		lr.errorf("expected %q", kw)
	}
}
