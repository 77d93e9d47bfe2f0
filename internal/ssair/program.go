package ssair

import "ssaflow/internal/srcctx"

// Program owns an ordered mapping from function name to Function. Adding a
// duplicate name is an error.
type Program struct {
	order []string
	funs  map[string]*Function
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{funs: make(map[string]*Function)}
}

// AddFunction adds fn to the program under its own Name. Panics (via
// Assert) on a duplicate name.
func (p *Program) AddFunction(fn *Function) {
	srcctx.Assert(fn.Name != "", "function has no name")
	_, exists := p.funs[fn.Name]
	srcctx.Assert(!exists, "duplicate function name %q", fn.Name)
	p.funs[fn.Name] = fn
	p.order = append(p.order, fn.Name)
}

// Function looks up a function by name, returning nil if absent.
func (p *Program) Function(name string) *Function {
	return p.funs[name]
}

// Functions returns every function in the program, in the order they were
// added.
func (p *Program) Functions() []*Function {
	out := make([]*Function, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.funs[name])
	}
	return out
}
