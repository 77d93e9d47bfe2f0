package ssair

// Value is a compile-time constant belonging to a Function. Registers bound
// to a Value are anonymous (see Register.Const).
type Value struct {
	id   ValueID
	Data int64
}

// ID is this value's arena-local handle, stable for the life of the owning
// Function.
func (v *Value) ID() ValueID { return v.id }
