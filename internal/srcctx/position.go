// Package srcctx provides source-location tracking and diagnostic formatting
// shared by the reader, the simplification passes, and the driver.
package srcctx

import "fmt"

// Position identifies a single point in a source file.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based absolute index into the source text
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Loc is an opaque source location handle, resolved back to a Position by
// a Context. Readers hand these out instead of raw Positions so that the
// context is free to choose its own internal representation (line table,
// byte offsets, whatever).
type Loc int

// NoLoc is the Loc that stands for "no source position"; Resolve maps it to
// the zero Position.
const NoLoc Loc = -1
