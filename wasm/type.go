package wasm

import "fmt"

// FunctionType describes the parameter and result types of a function.
type FunctionType struct {
	Params, Results []ValueType
}

// EqualsSignature returns true iff both the parameter and result type
// sequences are identical: same length, same types, same order. Import
// matching uses exact equality with no subtyping or width coercion.
func (t *FunctionType) EqualsSignature(params []ValueType, results []ValueType) bool {
	return valueTypesEqual(t.Params, params) && valueTypesEqual(t.Results, results)
}

func valueTypesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t *FunctionType) String() (ret string) {
	for _, b := range t.Params {
		ret += ValueTypeName(b)
	}
	if len(t.Params) == 0 {
		ret += "null"
	}
	ret += "_"
	for _, b := range t.Results {
		ret += ValueTypeName(b)
	}
	if len(t.Results) == 0 {
		ret += "null"
	}
	return
}

// Limits constrains the size of a table or memory: a required minimum and an
// optional maximum. Invariant: Min <= *Max when Max is present.
type Limits struct {
	Min uint32
	Max *uint32
}

func (l *Limits) String() string {
	if l.Max == nil {
		return fmt.Sprintf("{min=%d}", l.Min)
	}
	return fmt.Sprintf("{min=%d,max=%d}", l.Min, *l.Max)
}

// LimitsMatch reports whether a target entity's limits satisfy an importer's
// declared limits:
//
//   - the target's minimum must reach the importer's required minimum,
//   - a maximumless target only matches a maximumless importer requirement,
//   - when both declare a maximum, the target's must not exceed the importer's.
//
// The check is one-sided: it is reflexive but not symmetric in general.
func LimitsMatch(target, importer *Limits) bool {
	if target.Min < importer.Min {
		return false
	}
	if target.Max == nil && importer.Max != nil {
		return false
	}
	if target.Max != nil && importer.Max != nil && *target.Max > *importer.Max {
		return false
	}
	return true
}

// TableType describes a table: its element type and size limits.
type TableType struct {
	ElemType byte
	Limits   *Limits
}

// MemoryType describes a memory's size limits in pages.
type MemoryType = Limits

// GlobalType describes a global's value type and mutability. Import matching
// on globals is exact on both fields.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

func (g *GlobalType) String() string {
	if g.Mutable {
		return "mut " + ValueTypeName(g.ValType)
	}
	return ValueTypeName(g.ValType)
}
