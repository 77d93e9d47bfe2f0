package ssair

// BlockID, InsnID, RegID and ValueID are indices into typed arenas held by
// Function; every cross-entity edge (successor/predecessor lists, use/def
// lists, dominator pointers, fall-through) stores an id, not a pointer.
// The zero value of each id type means "none" — ids minted by a Function
// start at 1, so a zero-valued BlockID/RegID/etc. can never alias a live
// entity.

// BlockID names a Block within its owning Function.
type BlockID int

// InsnID names an Instruction within its owning Function.
type InsnID int

// RegID names a Register within its owning Function.
type RegID int

// ValueID names a Value within its owning Function.
type ValueID int

// Valid reports whether an id refers to a live entity (as opposed to the
// zero value, meaning "none").
func (id BlockID) Valid() bool { return id != 0 }
func (id InsnID) Valid() bool  { return id != 0 }
func (id RegID) Valid() bool   { return id != 0 }
func (id ValueID) Valid() bool { return id != 0 }
