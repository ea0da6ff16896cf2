package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uint32Ptr(v uint32) *uint32 { return &v }

func TestFunctionType_EqualsSignature(t *testing.T) {
	ft := &FunctionType{
		Params:  []ValueType{ValueTypeI32, ValueTypeI64},
		Results: []ValueType{ValueTypeF64},
	}
	assert.True(t, ft.EqualsSignature([]ValueType{ValueTypeI32, ValueTypeI64}, []ValueType{ValueTypeF64}))
	assert.False(t, ft.EqualsSignature([]ValueType{ValueTypeI64, ValueTypeI32}, []ValueType{ValueTypeF64}))
	assert.False(t, ft.EqualsSignature([]ValueType{ValueTypeI32}, []ValueType{ValueTypeF64}))
	assert.False(t, ft.EqualsSignature([]ValueType{ValueTypeI32, ValueTypeI64}, nil))

	empty := &FunctionType{}
	assert.True(t, empty.EqualsSignature(nil, nil))
}

func TestFunctionType_String(t *testing.T) {
	for _, c := range []struct {
		in  *FunctionType
		exp string
	}{
		{in: &FunctionType{}, exp: "null_null"},
		{in: &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Results: []ValueType{ValueTypeI32}}, exp: "i32i32_i32"},
		{in: &FunctionType{Results: []ValueType{ValueTypeF64}}, exp: "null_f64"},
	} {
		assert.Equal(t, c.exp, c.in.String())
	}
}

func TestLimitsMatch(t *testing.T) {
	for _, c := range []struct {
		name             string
		target, importer *Limits
		exp              bool
	}{
		{
			name:   "equal without max",
			target: &Limits{Min: 1}, importer: &Limits{Min: 1},
			exp: true,
		},
		{
			name:   "equal with max",
			target: &Limits{Min: 1, Max: uint32Ptr(2)}, importer: &Limits{Min: 1, Max: uint32Ptr(2)},
			exp: true,
		},
		{
			name:   "target min below required",
			target: &Limits{Min: 5, Max: uint32Ptr(20)}, importer: &Limits{Min: 10},
			exp: false,
		},
		{
			name:   "target min above required",
			target: &Limits{Min: 10}, importer: &Limits{Min: 5},
			exp: true,
		},
		{
			name:   "target lacks max the importer requires",
			target: &Limits{Min: 10}, importer: &Limits{Min: 5, Max: uint32Ptr(20)},
			exp: false,
		},
		{
			name:   "target has max the importer doesn't require",
			target: &Limits{Min: 10, Max: uint32Ptr(20)}, importer: &Limits{Min: 5},
			exp: true,
		},
		{
			name:   "target max exceeds importer max",
			target: &Limits{Min: 5, Max: uint32Ptr(30)}, importer: &Limits{Min: 5, Max: uint32Ptr(20)},
			exp: false,
		},
		{
			name:   "target max within importer max",
			target: &Limits{Min: 5, Max: uint32Ptr(15)}, importer: &Limits{Min: 5, Max: uint32Ptr(20)},
			exp: true,
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.exp, LimitsMatch(c.target, c.importer))
		})
	}
}

func TestLimitsMatch_Reflexive(t *testing.T) {
	for _, l := range []*Limits{
		{Min: 0},
		{Min: 1},
		{Min: 10, Max: uint32Ptr(10)},
		{Min: 0, Max: uint32Ptr(100)},
	} {
		assert.True(t, LimitsMatch(l, l), l.String())
	}
}

func TestGlobalType_String(t *testing.T) {
	assert.Equal(t, "i32", (&GlobalType{ValType: ValueTypeI32}).String())
	assert.Equal(t, "mut f64", (&GlobalType{ValType: ValueTypeF64, Mutable: true}).String())
}
