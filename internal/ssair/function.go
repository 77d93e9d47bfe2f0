package ssair

import "ssaflow/internal/srcctx"

// Function owns a flow graph: a set of Blocks, Registers and Values, with
// exactly one entry block (no predecessors) and one exit block (no
// successors), both created at construction.
type Function struct {
	Name string

	blocks []*Block // arena; index 0 unused, ids start at 1
	regs   []*Register
	values []*Value
	insns  []Insn

	maxBlockNum int

	entry BlockID
	exit  BlockID

	DominatorsValid     bool
	PostDominatorsValid bool
}

// NewFunction builds a Function with its entry and exit blocks already in
// place.
func NewFunction(name string) *Function {
	fn := &Function{Name: name}
	fn.blocks = append(fn.blocks, nil) // id 0 = none
	fn.regs = append(fn.regs, nil)
	fn.values = append(fn.values, nil)
	fn.insns = append(fn.insns, nil)

	fn.entry = fn.newBlock()
	fn.exit = fn.newBlock()
	return fn
}

func (fn *Function) newBlock() BlockID {
	fn.maxBlockNum++
	id := BlockID(len(fn.blocks))
	b := &Block{id: id, fn: fn, Num: fn.maxBlockNum}
	fn.blocks = append(fn.blocks, b)
	return id
}

// AddBlock creates and returns the id of a new, empty block in fn, with
// the next monotonically increasing block number.
func (fn *Function) AddBlock() BlockID { return fn.newBlock() }

// Block resolves a BlockID to its Block. Panics (via Assert) if id does not
// name a live block in this function.
func (fn *Function) Block(id BlockID) *Block {
	srcctx.Assert(id.Valid() && int(id) < len(fn.blocks) && fn.blocks[id] != nil,
		"invalid block id %d", id)
	return fn.blocks[id]
}

// Blocks returns every live block in this function, in arena order (no
// particular control-flow order).
func (fn *Function) Blocks() []*Block {
	out := make([]*Block, 0, len(fn.blocks))
	for _, b := range fn.blocks {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (fn *Function) Entry() BlockID { return fn.entry }
func (fn *Function) Exit() BlockID  { return fn.exit }

// NewRegister adds a named register to fn.
func (fn *Function) NewRegister(name string) *Register {
	id := RegID(len(fn.regs))
	r := &Register{id: id, fn: fn, Name: name}
	fn.regs = append(fn.regs, r)
	return r
}

// NewConstRegister adds an anonymous register bound to a constant value.
func (fn *Function) NewConstRegister(v ValueID) *Register {
	id := RegID(len(fn.regs))
	r := &Register{id: id, fn: fn, Const: v}
	fn.regs = append(fn.regs, r)
	return r
}

// Register resolves a RegID to its Register.
func (fn *Function) Register(id RegID) *Register {
	srcctx.Assert(id.Valid() && int(id) < len(fn.regs) && fn.regs[id] != nil,
		"invalid register id %d", id)
	return fn.regs[id]
}

// Registers returns every register belonging to this function.
func (fn *Function) Registers() []*Register {
	out := make([]*Register, 0, len(fn.regs))
	for _, r := range fn.regs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// NewValue adds an integer constant to fn and returns its id.
func (fn *Function) NewValue(data int64) ValueID {
	id := ValueID(len(fn.values))
	fn.values = append(fn.values, &Value{id: id, Data: data})
	return id
}

// Value resolves a ValueID to its Value.
func (fn *Function) Value(id ValueID) *Value {
	srcctx.Assert(id.Valid() && int(id) < len(fn.values) && fn.values[id] != nil,
		"invalid value id %d", id)
	return fn.values[id]
}

// Insn resolves an InsnID to its Insn.
func (fn *Function) Insn(id InsnID) Insn {
	srcctx.Assert(id.Valid() && int(id) < len(fn.insns) && fn.insns[id] != nil,
		"invalid instruction id %d", id)
	return fn.insns[id]
}

// initInsn mints an id for a freshly constructed insn, registers it in the
// arena, and attaches its initial args/results to their registers' use/def
// lists. Called by each variant constructor (New*) after populating args
// and results.
func (fn *Function) initInsn(base *insnBase, self Insn) {
	base.id = InsnID(len(fn.insns))
	base.fn = fn
	base.self = self
	fn.insns = append(fn.insns, self)
	base.attachArgs()
	base.attachResults()
}

// relocateInsn detaches insn from whatever block it is currently in (if
// any) and records that it now belongs to block; every AddInsn variant
// does this before splicing into the new block's list.
func (fn *Function) relocateInsn(id InsnID, block BlockID) {
	insn := fn.Insn(id)
	if old := insn.Block(); old.Valid() {
		fn.Block(old).RemoveInsn(id)
		insn.removedFrom(old)
	}
	insn.setBlockID(block)
	insn.placedIn(block)
}

// invalidateBoth clears both validity flags; every control-flow edge
// addition or removal funnels through here.
func (fn *Function) invalidateBoth() {
	fn.DominatorsValid = false
	fn.PostDominatorsValid = false
}

// DestroyInsn removes insn from its block and from every register it reads
// or writes, then tears down variant-specific associations: a PhiFun nulls
// the back-reference of each of its inputs, a PhiFunInp deregisters itself
// from its PhiFun.
func (fn *Function) DestroyInsn(id InsnID) {
	insn := fn.Insn(id)

	switch v := insn.(type) {
	case *PhiFun:
		for _, inputID := range v.inputs {
			if int(inputID) < len(fn.insns) && fn.insns[inputID] != nil {
				fn.insns[inputID].(*PhiFunInp).PhiFun = 0
			}
		}
	case *PhiFunInp:
		if v.PhiFun.Valid() {
			fn.Insn(v.PhiFun).(*PhiFun).RemoveInput(id)
		}
	}

	if blk := insn.Block(); blk.Valid() {
		fn.Block(blk).RemoveInsn(id)
		insn.removedFrom(blk)
	}
	insn.detach()
	fn.insns[id] = nil
}

// DestroyBlock atomically removes block from the flow graph: destroys
// every instruction it contains, clears its fall-through, and unhooks
// every predecessor edge — rerouting the predecessor's fall-through or
// terminator to this block's own fall-through (possibly none) — before
// asserting both edge lists are empty and detaching the block from its
// function.
func (fn *Function) DestroyBlock(id BlockID) {
	b := fn.Block(id)

	for len(b.insns) > 0 {
		fn.DestroyInsn(b.insns[0])
	}

	fallThrough := b.fallThrough
	b.SetFallThrough(0)

	preds := append([]BlockID(nil), b.preds...)
	for _, predID := range preds {
		pred := fn.Block(predID)
		if pred.fallThrough == id {
			pred.SetFallThrough(fallThrough)
		} else {
			srcctx.Assert(len(pred.insns) > 0, "no branch insn")
			term := pred.Terminator()
			srcctx.Assert(term != nil, "no branch insn")
			term.ChangeBranchTarget(id, fallThrough)
			pred.removeSuccEdge(b)
		}
	}

	srcctx.Assert(len(b.preds) == 0, "destroyed block has remaining predecessors")
	srcctx.Assert(len(b.succs) == 0, "destroyed block has remaining successors")

	// remove_unreachable may legitimately destroy an exit block that no
	// path reaches; clear the designation so consumers can detect it
	// instead of resolving a dead id.
	if id == fn.entry {
		fn.entry = 0
	}
	if id == fn.exit {
		fn.exit = 0
	}

	fn.blocks[id] = nil
}
