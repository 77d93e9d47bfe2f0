package ssair

import (
	"fmt"
	"strings"

	"ssaflow/internal/srcctx"
)

// regDisplay renders a register the way the textual format does: its name,
// or its constant value if it has none.
func regDisplay(fn *Function, id RegID) string {
	if !id.Valid() {
		return "?"
	}
	r := fn.Register(id)
	if r.IsConstant() {
		return fmt.Sprintf("%d", fn.Value(r.Const).Data)
	}
	return r.Name
}

// Insn is the common contract every instruction variant satisfies:
// read-only args/results views, atomic re-plumbing of use/def links by
// index or by register identity, the IsBranch/HasSideEffect/
// ChangeBranchTarget trio (default no/no/no-op, overridden per variant),
// and a dominates query. The hierarchy is a closed tagged sum: one struct
// per variant, each embedding insnBase and implementing this interface.
type Insn interface {
	ID() InsnID
	Block() BlockID
	Args() []RegID
	Results() []RegID

	IsBranch() bool
	HasSideEffect() bool

	ChangeArg(from, to RegID)
	ChangeArgAt(i int, to RegID)
	ChangeResult(from, to RegID)
	ChangeResultAt(i int, to RegID)

	// ChangeBranchTarget rewires a branch target from "from" to "to".
	// The default implementation (embedded via insnBase) is a no-op;
	// CondBranch is the only variant that overrides it.
	ChangeBranchTarget(from, to BlockID)

	// Dominates reports whether this instruction dominates other: same
	// block, precedes it in instruction order (false if equal);
	// different blocks, this instruction's block strictly dominates
	// other's block.
	Dominates(other Insn) bool

	String() string

	// setBlockID, placedIn and removedFrom are the unexported hooks
	// Function.relocateInsn drives when an instruction moves between
	// blocks. Every variant is defined here, so nothing outside ssair
	// can implement Insn, which is what lets these stay unexported
	// instead of part of the public contract.
	setBlockID(id BlockID)
	placedIn(block BlockID)
	removedFrom(block BlockID)
	detach()
}

// insnBase is embedded by every concrete variant. It owns the arg/result
// register vectors and the function/block back-references needed to keep
// use/def lists and block membership consistent; variants add only their
// own payload (a branch target, an op code, a phi-function's input list).
type insnBase struct {
	id    InsnID
	fn    *Function
	block BlockID // zero until placed in a block

	args    []RegID
	results []RegID

	self Insn // back-reference set by the constructor, for use/def bookkeeping
}

func (b *insnBase) ID() InsnID      { return b.id }
func (b *insnBase) Block() BlockID  { return b.block }
func (b *insnBase) Args() []RegID    { return b.args }
func (b *insnBase) Results() []RegID { return b.results }

func (b *insnBase) IsBranch() bool      { return false }
func (b *insnBase) HasSideEffect() bool { return false }

func (b *insnBase) ChangeBranchTarget(from, to BlockID) {}

func (b *insnBase) setBlockID(id BlockID)       { b.block = id }
func (b *insnBase) placedIn(block BlockID)      {}
func (b *insnBase) removedFrom(block BlockID)   {}

// attachArgs/attachResults register one use/def link per slot, duplicates
// included; removal drops every matching entry at once and re-adds the
// survivors, so the two stay symmetric.
func (b *insnBase) attachArgs() {
	for _, a := range b.args {
		if a.Valid() {
			b.fn.Register(a).addUse(b.id)
		}
	}
}

func (b *insnBase) attachResults() {
	for _, r := range b.results {
		if r.Valid() {
			b.fn.Register(r).addDef(b.id)
		}
	}
}

// detach removes this instruction from every register it reads or writes,
// the use/def-list half of destroying an instruction.
func (b *insnBase) detach() {
	for _, a := range b.args {
		if a.Valid() {
			b.fn.Register(a).removeUse(b.id)
		}
	}
	for _, r := range b.results {
		if r.Valid() {
			b.fn.Register(r).removeDef(b.id)
		}
	}
}

// ChangeArg rewrites every arg slot equal to from to to, atomically moving
// the use link. A no-op if from == to.
func (b *insnBase) ChangeArg(from, to RegID) {
	if from == to {
		return
	}
	for i, a := range b.args {
		if a == from {
			if a.Valid() {
				b.fn.Register(a).removeUse(b.id)
			}
			b.args[i] = to
			if to.Valid() {
				b.fn.Register(to).addUse(b.id)
			}
		}
	}
}

// ChangeArgAt rewrites the single arg at index i.
func (b *insnBase) ChangeArgAt(i int, to RegID) {
	srcctx.Assert(i >= 0 && i < len(b.args), "invalid argument index %d (of %d)", i, len(b.args))
	from := b.args[i]
	if from == to {
		return
	}
	if from.Valid() {
		b.fn.Register(from).removeUse(b.id)
	}
	b.args[i] = to
	if to.Valid() {
		b.fn.Register(to).addUse(b.id)
	}
	if from.Valid() {
		for _, a := range b.args {
			if a == from {
				b.fn.Register(from).addUse(b.id)
			}
		}
	}
}

func (b *insnBase) ChangeResult(from, to RegID) {
	if from == to {
		return
	}
	for i, r := range b.results {
		if r == from {
			if r.Valid() {
				b.fn.Register(r).removeDef(b.id)
			}
			b.results[i] = to
			if to.Valid() {
				b.fn.Register(to).addDef(b.id)
			}
		}
	}
}

func (b *insnBase) ChangeResultAt(i int, to RegID) {
	srcctxAssertIndex(i, len(b.results), "result")
	from := b.results[i]
	if from == to {
		return
	}
	if from.Valid() {
		b.fn.Register(from).removeDef(b.id)
	}
	b.results[i] = to
	if to.Valid() {
		b.fn.Register(to).addDef(b.id)
	}
	if from.Valid() {
		for _, r := range b.results {
			if r == from {
				b.fn.Register(from).addDef(b.id)
			}
		}
	}
}

// Dominates implements the shared half of the dominates contract: same-
// block ordering is a linear scan of the block's instruction list,
// cross-block falls through to the block-level dominator query.
func (b *insnBase) Dominates(other Insn) bool {
	if b.self == other {
		return false
	}
	if b.block == other.Block() {
		blk := b.fn.Block(b.block)
		for _, id := range blk.insns {
			if id == b.id {
				return true
			}
			if id == other.ID() {
				return false
			}
		}
		panic("instruction not found in its own block")
	}
	return b.fn.Block(b.block).Dominates(other.Block(), Forward)
}

// --- Nop ---

// Nop is an opaque instruction that does nothing but cannot be removed.
type Nop struct{ insnBase }

func NewNop(fn *Function) *Nop {
	n := &Nop{}
	fn.initInsn(&n.insnBase, n)
	return n
}

func (n *Nop) HasSideEffect() bool { return true }
func (n *Nop) String() string      { return "nop" }

// --- Copy ---

// Copy is a pure move: results[0] := args[0].
type Copy struct{ insnBase }

func NewCopy(fn *Function, from, to RegID) *Copy {
	c := &Copy{}
	c.args = []RegID{from}
	c.results = []RegID{to}
	fn.initInsn(&c.insnBase, c)
	return c
}

func (c *Copy) From() RegID { return c.args[0] }
func (c *Copy) To() RegID   { return c.results[0] }
func (c *Copy) String() string {
	return fmt.Sprintf("%s := %s", regDisplay(c.fn, c.To()), regDisplay(c.fn, c.From()))
}

// --- Calc ---

// CalcOp names a Calc instruction's operation.
type CalcOp int

const (
	CalcADD CalcOp = iota
	CalcSUB
	CalcMUL
	CalcDIV
	CalcNEG
)

func (op CalcOp) String() string {
	switch op {
	case CalcADD:
		return "+"
	case CalcSUB:
		return "-"
	case CalcMUL:
		return "*"
	case CalcDIV:
		return "/"
	case CalcNEG:
		return "-"
	default:
		return "?"
	}
}

// Calc performs a pure arithmetic operation. NEG takes a single arg; the
// rest take two.
type Calc struct {
	insnBase
	Op CalcOp
}

func NewCalc(fn *Function, op CalcOp, args []RegID, result RegID) *Calc {
	c := &Calc{Op: op}
	c.args = append([]RegID(nil), args...)
	c.results = []RegID{result}
	fn.initInsn(&c.insnBase, c)
	return c
}

func (c *Calc) String() string {
	if c.Op == CalcNEG {
		return fmt.Sprintf("%s := - %s", regDisplay(c.fn, c.results[0]), regDisplay(c.fn, c.args[0]))
	}
	return fmt.Sprintf("%s := %s %s %s", regDisplay(c.fn, c.results[0]),
		regDisplay(c.fn, c.args[0]), c.Op, regDisplay(c.fn, c.args[1]))
}

// --- CondBranch ---

// CondBranch transfers control to Target if its single arg holds a
// non-zero value; otherwise control falls through. It is the only
// instruction variant that is a branch.
type CondBranch struct {
	insnBase
	Target BlockID
}

func NewCondBranch(fn *Function, cond RegID, target BlockID) *CondBranch {
	cb := &CondBranch{Target: target}
	cb.args = []RegID{cond}
	fn.initInsn(&cb.insnBase, cb)
	return cb
}

func (cb *CondBranch) IsBranch() bool { return true }

func (cb *CondBranch) Condition() RegID { return cb.args[0] }

// SetTarget rewires this branch's target. If this instruction is
// currently placed in a block, the block's successor edges are updated to
// match (old target removed, new target added) — this is the one
// instruction variant whose placement affects the edge lists, since a
// branch target is not carried via SetFallThrough.
func (cb *CondBranch) SetTarget(to BlockID) {
	if cb.block.Valid() {
		blk := cb.fn.Block(cb.block)
		if cb.Target.Valid() {
			blk.removeSuccEdge(cb.fn.Block(cb.Target))
		}
		if to.Valid() {
			blk.addSuccEdge(cb.fn.Block(to))
		}
		cb.fn.invalidateBoth()
	}
	cb.Target = to
}

func (cb *CondBranch) ChangeBranchTarget(from, to BlockID) {
	if cb.Target == from {
		cb.SetTarget(to)
	}
}

// placedIn adds the control-flow edge to this branch's target in its new
// block.
func (cb *CondBranch) placedIn(block BlockID) {
	if cb.Target.Valid() {
		cb.fn.Block(block).addSuccEdge(cb.fn.Block(cb.Target))
		cb.fn.invalidateBoth()
	}
}

// removedFrom drops the control-flow edge to this branch's target from
// its old block.
func (cb *CondBranch) removedFrom(block BlockID) {
	if cb.Target.Valid() {
		cb.fn.Block(block).removeSuccEdge(cb.fn.Block(cb.Target))
		cb.fn.invalidateBoth()
	}
}

func (cb *CondBranch) String() string {
	if !cb.Target.Valid() {
		return fmt.Sprintf("if (%s) goto -", regDisplay(cb.fn, cb.Condition()))
	}
	return fmt.Sprintf("if (%s) goto _%d", regDisplay(cb.fn, cb.Condition()), cb.fn.Block(cb.Target).Num)
}

// --- FunArg ---

// FunArg associates the nth function parameter with a register. Valid
// only in the entry block, before any other instruction.
type FunArg struct {
	insnBase
	Num int
}

func NewFunArg(fn *Function, num int, result RegID) *FunArg {
	fa := &FunArg{Num: num}
	fa.results = []RegID{result}
	fn.initInsn(&fa.insnBase, fa)
	return fa
}

func (fa *FunArg) String() string {
	return fmt.Sprintf("fun_arg %d %s", fa.Num, regDisplay(fa.fn, fa.results[0]))
}

// --- FunResult ---

// FunResult stores a register into the nth function result. Side-
// effecting; valid only in the exit block, and no instruction may follow
// it.
type FunResult struct {
	insnBase
	Num int
}

func NewFunResult(fn *Function, num int, arg RegID) *FunResult {
	fr := &FunResult{Num: num}
	fr.args = []RegID{arg}
	fn.initInsn(&fr.insnBase, fr)
	return fr
}

func (fr *FunResult) HasSideEffect() bool { return true }

func (fr *FunResult) String() string {
	return fmt.Sprintf("fun_result %d %s", fr.Num, regDisplay(fr.fn, fr.args[0]))
}

// --- PhiFun ---

// PhiFun is the output half of an SSA phi-function: a placement-
// constrained pseudo-instruction valid only contiguously at a block's
// prologue. Its inputs live in separate PhiFunInp instructions in
// predecessor blocks.
type PhiFun struct {
	insnBase
	inputs []InsnID // InsnIDs of associated PhiFunInp instructions
}

func NewPhiFun(fn *Function, result RegID) *PhiFun {
	p := &PhiFun{}
	p.results = []RegID{result}
	fn.initInsn(&p.insnBase, p)
	return p
}

func (p *PhiFun) Result() RegID { return p.results[0] }

// Inputs returns this phi-function's associated PhiFunInp instructions.
func (p *PhiFun) Inputs() []InsnID { return p.inputs }

// AddInput records that input is an input of this phi-function. Does not
// modify input itself.
func (p *PhiFun) AddInput(input InsnID) {
	p.inputs = append(p.inputs, input)
}

// RemoveInput forgets that input is an input of this phi-function. Does
// not modify input itself.
func (p *PhiFun) RemoveInput(input InsnID) {
	out := p.inputs[:0]
	for _, id := range p.inputs {
		if id != input {
			out = append(out, id)
		}
	}
	p.inputs = out
}

func (p *PhiFun) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s := phi (", regDisplay(p.fn, p.results[0]))
	for i, inputID := range p.inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		input := p.fn.Insn(inputID).(*PhiFunInp)
		fmt.Fprintf(&b, "_%d: %s", p.fn.Block(input.Block()).Num, regDisplay(p.fn, input.args[0]))
	}
	b.WriteString(")")
	return b.String()
}

// --- PhiFunInp ---

// PhiFunInp is one input to a PhiFun in a successor block. Valid only at a
// block's epilogue, immediately before any branch instruction.
type PhiFunInp struct {
	insnBase
	PhiFun InsnID // the PhiFun this input feeds, zero if torn down
}

func NewPhiFunInp(fn *Function, phiFun InsnID, arg RegID) *PhiFunInp {
	pi := &PhiFunInp{PhiFun: phiFun}
	pi.args = []RegID{arg}
	fn.initInsn(&pi.insnBase, pi)
	if phiFun.Valid() {
		fn.Insn(phiFun).(*PhiFun).AddInput(pi.id)
	}
	return pi
}

// SetPhiFun rewires this input to a different PhiFun, without touching the
// old or new PhiFun's input list.
func (pi *PhiFunInp) SetPhiFun(phiFun InsnID) { pi.PhiFun = phiFun }

func (pi *PhiFunInp) String() string {
	if !pi.PhiFun.Valid() {
		return fmt.Sprintf("phi_fun_inp ? := %s", regDisplay(pi.fn, pi.args[0]))
	}
	phi := pi.fn.Insn(pi.PhiFun).(*PhiFun)
	return fmt.Sprintf("phi_fun_inp %s := %s", regDisplay(phi.fn, phi.results[0]), regDisplay(pi.fn, pi.args[0]))
}

func srcctxAssertIndex(i, n int, what string) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("invalid %s index %d (of %d)", what, i, n))
	}
}
