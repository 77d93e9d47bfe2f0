package ssair

import "fmt"

// Register is a symbolic, typeless storage cell — not a machine register.
// A constant register is anonymous and carries a Value instead of a name.
type Register struct {
	id    RegID
	fn    *Function
	Name  string
	Const ValueID // valid for constant registers, which are anonymous

	uses []InsnID // instructions whose args contain this register
	defs []InsnID // instructions whose results contain this register

	// SSAProto is the pre-SSA register this one was renamed from, set by
	// the SSA converter (internal/ssaconv). Zero for non-SSA registers and
	// for proto registers themselves.
	SSAProto RegID
	// SSAValues lists every SSA value register the converter minted from
	// this proto register, in rename order, when this register *is* a
	// proto (i.e. SSAProto is zero but it has been renamed away from).
	SSAValues []RegID
}

// ID is this register's arena-local handle.
func (r *Register) ID() RegID { return r.id }

// Function returns the owning Function.
func (r *Register) Function() *Function { return r.fn }

// IsConstant reports whether this is an anonymous constant-valued register.
func (r *Register) IsConstant() bool { return r.Name == "" && r.Const.Valid() }

// Uses returns the instructions whose args contain this register.
func (r *Register) Uses() []InsnID { return r.uses }

// Defs returns the instructions whose results contain this register. In
// SSA form a non-constant register has exactly one.
func (r *Register) Defs() []InsnID { return r.defs }

// MakeSSAValue returns a new individual SSA value register for this
// (proto) register: named proto.name + "." + next index, back-pointing to
// proto, with proto's SSAValues list extended to record it.
func (r *Register) MakeSSAValue() *Register {
	idx := len(r.SSAValues)
	value := r.fn.NewRegister(fmt.Sprintf("%s.%d", r.Name, idx))
	value.SSAProto = r.id
	r.SSAValues = append(r.SSAValues, value.id)
	return value
}

// addUse/addDef/removeUse/removeDef record or forget that insn uses or
// defines this register. They do not touch insn itself — callers (Insn's
// ChangeArg/ChangeResult) are responsible for keeping both sides in sync.
// One entry is recorded per arg/result *slot*, so an instruction that reads
// the same register twice (e.g. a Calc add with both operands equal)
// appears twice in uses; removeUse/removeDef therefore drop every matching
// entry at once, and the caller re-adds one entry per slot that still
// refers to the register afterward.
func (r *Register) addUse(i InsnID)  { r.uses = append(r.uses, i) }
func (r *Register) addDef(i InsnID)  { r.defs = append(r.defs, i) }
func (r *Register) removeUse(i InsnID) { r.uses = removeAllInsnIDs(r.uses, i) }
func (r *Register) removeDef(i InsnID) { r.defs = removeAllInsnIDs(r.defs, i) }

func removeAllInsnIDs(list []InsnID, target InsnID) []InsnID {
	out := list[:0]
	for _, x := range list {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}
