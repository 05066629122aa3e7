package bytecode

import "strings"

// ValueKind is the type of a single bytecode value.
type ValueKind uint8

const (
	I32 ValueKind = iota
	I64
	F32
	F64
)

// RegClass partitions the physical register file.
type RegClass uint8

const (
	ClassInt RegClass = iota
	ClassFloat
)

// Class returns the register class a value of this kind occupies.
func (k ValueKind) Class() RegClass {
	switch k {
	case I32, I64:
		return ClassInt
	case F32, F64:
		return ClassFloat
	}
	panic("bytecode: invalid ValueKind")
}

// Size returns the storage width in bytes. Spill slots are always
// pointer-width regardless of this value.
func (k ValueKind) Size() int {
	switch k {
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	}
	panic("bytecode: invalid ValueKind")
}

// Is64 reports whether the kind occupies a full 64-bit register.
func (k ValueKind) Is64() bool {
	return k == I64 || k == F64
}

func (k ValueKind) String() string {
	switch k {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return "unknown"
}

func (c RegClass) String() string {
	if c == ClassInt {
		return "int"
	}
	return "float"
}

// FuncType is a function signature. At most one result is supported by
// the baseline tier; the decoder enforces this.
type FuncType struct {
	Params  []ValueKind
	Results []ValueKind
}

// Equal reports whether two signatures match exactly.
func (t FuncType) Equal(o FuncType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if o.Params[i] != p {
			return false
		}
	}
	for i, r := range t.Results {
		if o.Results[i] != r {
			return false
		}
	}
	return true
}

func (t FuncType) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")->(")
	for i, r := range t.Results {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
