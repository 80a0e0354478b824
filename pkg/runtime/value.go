package runtime

// Value is one decoded sample. A missing read is represented by Present
// being false; sinks must render that as their respective null encoding
// rather than a zero value (§3).
type Value struct {
	DataType DataType
	Present  bool
	V        interface{}
}

// Null returns an absent Value of the given declared type.
func Null(dt DataType) Value {
	return Value{DataType: dt}
}

// Of returns a present Value wrapping v.
func Of(dt DataType, v interface{}) Value {
	return Value{DataType: dt, Present: true, V: v}
}

// Bool synthesizes the HEARTBEAT value, always present (§4.6 step 5).
func Bool(b bool) Value {
	return Value{DataType: BOOL, Present: true, V: b}
}
