package wasm

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopEngine satisfies Engine for linking tests that never execute code.
type nopEngine struct{}

func (e *nopEngine) Compile(f *FunctionInstance) error { return nil }
func (e *nopEngine) Call(s *Store, f *FunctionInstance, args ...uint64) ([]uint64, error) {
	return nil, nil
}

func newTestStore() *Store { return NewStore(&nopEngine{}) }

func TestStore_Instantiate(t *testing.T) {
	s := newTestStore()
	m, err := s.Instantiate(&Module{}, "mod")
	require.NoError(t, err)
	require.NotNil(t, m)

	got, ok := s.Module("mod")
	require.True(t, ok)
	assert.Equal(t, m, got)

	_, err = s.Instantiate(&Module{}, "mod")
	require.Error(t, err, "duplicate names must be rejected")
}

func TestStore_Instantiate_Exports(t *testing.T) {
	s := newTestStore()
	module := &Module{
		TypeSection:     []*FunctionType{{Results: []ValueType{ValueTypeI32}}},
		FunctionSection: []uint32{0},
		CodeSection:     []*Code{{Body: []byte{OpcodeI32Const, 0x01, OpcodeEnd}}},
		ExportSection:   []*Export{{Name: "answer", Kind: ExternKindFunc, Index: 0}},
	}
	m, err := s.Instantiate(module, "exporter")
	require.NoError(t, err)

	addr, ok := m.ExportedFunction("answer")
	require.True(t, ok)
	f := s.Functions[addr]
	assert.Equal(t, "exporter.$0", f.Name)
	assert.Equal(t, module.TypeSection[0], f.Signature)

	_, ok = m.ExportedFunction("missing")
	assert.False(t, ok)
	_, ok = m.ExportedGlobal("answer")
	assert.False(t, ok, "export categories are separate namespaces")
}

func TestStore_Instantiate_FunctionImport(t *testing.T) {
	hostFn := reflect.ValueOf(func(ctx *HostFunctionCallContext, v uint32) uint32 { return v })

	t.Run("matching signature", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.AddHostFunction("env", "id", hostFn))

		importer := &Module{
			TypeSection: []*FunctionType{{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}},
			ImportSection: []*Import{{
				Module: "env", Name: "id",
				Desc: &ImportDesc{Kind: ExternKindFunc, TypeIndexPtr: uint32Ptr(0)},
			}},
			ExportSection: []*Export{{Name: "id", Kind: ExternKindFunc, Index: 0}},
		}
		m, err := s.Instantiate(importer, "user")
		require.NoError(t, err)

		// The import is re-exported: both names resolve to the same instance.
		hostMod, ok := s.Module("env")
		require.True(t, ok)
		hostAddr, _ := hostMod.ExportedFunction("id")
		userAddr, _ := m.ExportedFunction("id")
		assert.Equal(t, hostAddr, userAddr)
	})

	t.Run("signature mismatch", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.AddHostFunction("env", "id", hostFn))

		importer := &Module{
			TypeSection: []*FunctionType{{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Results: []ValueType{ValueTypeI32}}},
			ImportSection: []*Import{{
				Module: "env", Name: "id",
				Desc: &ImportDesc{Kind: ExternKindFunc, TypeIndexPtr: uint32Ptr(0)},
			}},
		}
		_, err := s.Instantiate(importer, "user")
		var incompatible *IncompatibleImportTypeError
		require.ErrorAs(t, err, &incompatible)
		assert.Equal(t, ExternKindFunc, incompatible.Kind)
		assert.Equal(t, ExternKindFunc, incompatible.ActualKind)
	})
}

func TestStore_Instantiate_UnknownImport(t *testing.T) {
	t.Run("module not registered", func(t *testing.T) {
		s := newTestStore()
		module := &Module{
			TypeSection: []*FunctionType{{}},
			ImportSection: []*Import{{
				Module: "nowhere", Name: "f",
				Desc: &ImportDesc{Kind: ExternKindFunc, TypeIndexPtr: uint32Ptr(0)},
			}},
		}
		_, err := s.Instantiate(module, "user")
		var unknown *UnknownImportError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "nowhere", unknown.ModuleName)
	})

	t.Run("name not exported", func(t *testing.T) {
		s := newTestStore()
		_, err := s.Instantiate(&Module{}, "empty")
		require.NoError(t, err)

		module := &Module{
			TypeSection: []*FunctionType{{}},
			ImportSection: []*Import{{
				Module: "empty", Name: "f",
				Desc: &ImportDesc{Kind: ExternKindFunc, TypeIndexPtr: uint32Ptr(0)},
			}},
		}
		_, err = s.Instantiate(module, "user")
		var unknown *UnknownImportError
		require.ErrorAs(t, err, &unknown)
	})
}

func TestStore_Instantiate_WrongImportKind(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddGlobal("env", "g", 42, ValueTypeI32, false))

	module := &Module{
		TypeSection: []*FunctionType{{}},
		ImportSection: []*Import{{
			Module: "env", Name: "g",
			Desc: &ImportDesc{Kind: ExternKindFunc, TypeIndexPtr: uint32Ptr(0)},
		}},
	}
	_, err := s.Instantiate(module, "user")
	var incompatible *IncompatibleImportTypeError
	require.ErrorAs(t, err, &incompatible)
	assert.Equal(t, ExternKindFunc, incompatible.Kind)
	assert.Equal(t, ExternKindGlobal, incompatible.ActualKind)
}

func TestStore_Instantiate_MemoryImportLimits(t *testing.T) {
	t.Run("maximumless target cannot satisfy a bounded requirement", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.AddMemoryInstance("env", "mem", 10, nil))

		module := &Module{
			ImportSection: []*Import{{
				Module: "env", Name: "mem",
				Desc: &ImportDesc{Kind: ExternKindMemory, MemTypePtr: &MemoryType{Min: 5, Max: uint32Ptr(20)}},
			}},
		}
		_, err := s.Instantiate(module, "user")
		var incompatible *IncompatibleImportTypeError
		require.ErrorAs(t, err, &incompatible)
		assert.Equal(t, ExternKindMemory, incompatible.Kind)
	})

	t.Run("target minimum below requirement", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.AddMemoryInstance("env", "mem", 5, uint32Ptr(20)))

		module := &Module{
			ImportSection: []*Import{{
				Module: "env", Name: "mem",
				Desc: &ImportDesc{Kind: ExternKindMemory, MemTypePtr: &MemoryType{Min: 10}},
			}},
		}
		_, err := s.Instantiate(module, "user")
		var incompatible *IncompatibleImportTypeError
		require.ErrorAs(t, err, &incompatible)
	})

	t.Run("bounded target within requirement", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.AddMemoryInstance("env", "mem", 10, uint32Ptr(15)))

		module := &Module{
			ImportSection: []*Import{{
				Module: "env", Name: "mem",
				Desc: &ImportDesc{Kind: ExternKindMemory, MemTypePtr: &MemoryType{Min: 5, Max: uint32Ptr(20)}},
			}},
		}
		_, err := s.Instantiate(module, "user")
		require.NoError(t, err)
	})
}

func TestStore_Instantiate_GlobalImportMutability(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddGlobal("env", "g", 1, ValueTypeI64, false))

	module := &Module{
		ImportSection: []*Import{{
			Module: "env", Name: "g",
			Desc: &ImportDesc{Kind: ExternKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI64, Mutable: true}},
		}},
	}
	_, err := s.Instantiate(module, "user")
	var incompatible *IncompatibleImportTypeError
	require.ErrorAs(t, err, &incompatible)
}

func TestStore_Instantiate_RollbackOnFailure(t *testing.T) {
	s := newTestStore()

	// Functions and globals build fine; the export section then fails.
	module := &Module{
		TypeSection:     []*FunctionType{{}},
		FunctionSection: []uint32{0},
		CodeSection:     []*Code{{Body: []byte{OpcodeEnd}}},
		GlobalSection: []*Global{{
			Type: &GlobalType{ValType: ValueTypeI32},
			Init: &ConstantExpression{Opcode: OpcodeI32Const, Data: []byte{0x07}},
		}},
		ExportSection: []*Export{{Name: "f", Kind: ExternKindFunc, Index: 99}},
	}
	_, err := s.Instantiate(module, "user")
	require.Error(t, err)

	_, ok := s.Module("user")
	assert.False(t, ok, "a failed instantiation must not be registered")
	assert.Empty(t, s.Functions, "allocated functions must be rolled back")
	assert.Empty(t, s.Globals, "allocated globals must be rolled back")
}

func TestStore_Instantiate_StartFunction(t *testing.T) {
	s := newTestStore()
	module := &Module{
		TypeSection:     []*FunctionType{{Params: []ValueType{ValueTypeI32}}},
		FunctionSection: []uint32{0},
		CodeSection:     []*Code{{Body: []byte{OpcodeEnd}}},
		StartSection:    uint32Ptr(0),
	}
	_, err := s.Instantiate(module, "user")
	require.Error(t, err, "start function must have an empty signature")
}

func TestStore_Instantiate_GlobalInitFromImport(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddGlobal("env", "base", 7, ValueTypeI32, false))

	module := &Module{
		ImportSection: []*Import{{
			Module: "env", Name: "base",
			Desc: &ImportDesc{Kind: ExternKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI32}},
		}},
		GlobalSection: []*Global{{
			Type: &GlobalType{ValType: ValueTypeI32, Mutable: true},
			Init: &ConstantExpression{Opcode: OpcodeGlobalGet, Data: []byte{0x00}},
		}},
	}
	m, err := s.Instantiate(module, "user")
	require.NoError(t, err)
	require.Len(t, m.GlobalAddrs, 2)
	assert.Equal(t, uint64(7), s.Globals[m.GlobalAddrs[1]].Val)
}

func TestStore_Instantiate_ElementSegments(t *testing.T) {
	s := newTestStore()
	module := &Module{
		TypeSection:     []*FunctionType{{}},
		FunctionSection: []uint32{0},
		CodeSection:     []*Code{{Body: []byte{OpcodeEnd}}},
		TableSection:    []*TableType{{ElemType: RefTypeFuncref, Limits: &Limits{Min: 3}}},
		ElementSection: []*ElementSegment{{
			TableIndex: 0,
			OffsetExpr: &ConstantExpression{Opcode: OpcodeI32Const, Data: []byte{0x01}},
			Init:       []uint32{0},
		}},
	}
	m, err := s.Instantiate(module, "user")
	require.NoError(t, err)

	table := s.Tables[m.TableAddrs[0]]
	assert.Nil(t, table.Table[0])
	require.NotNil(t, table.Table[1])
	assert.Equal(t, m.FunctionAddrs[0], *table.Table[1])
	assert.Nil(t, table.Table[2])
}

func TestStore_Instantiate_DataSegments(t *testing.T) {
	t.Run("within bounds", func(t *testing.T) {
		s := newTestStore()
		module := &Module{
			MemorySection: []*MemoryType{{Min: 1}},
			DataSection: []*DataSegment{{
				OffsetExpression: &ConstantExpression{Opcode: OpcodeI32Const, Data: []byte{0x02}},
				Init:             []byte{0xaa, 0xbb},
			}},
		}
		m, err := s.Instantiate(module, "user")
		require.NoError(t, err)
		mem := s.Memories[m.MemoryAddrs[0]]
		assert.Equal(t, []byte{0x00, 0x00, 0xaa, 0xbb, 0x00}, mem.Buffer[:5])
	})

	t.Run("out of bounds", func(t *testing.T) {
		s := newTestStore()
		module := &Module{
			MemorySection: []*MemoryType{{Min: 0}},
			DataSection: []*DataSegment{{
				OffsetExpression: &ConstantExpression{Opcode: OpcodeI32Const, Data: []byte{0x00}},
				Init:             []byte{0xaa},
			}},
		}
		_, err := s.Instantiate(module, "user")
		require.Error(t, err)
		assert.Empty(t, s.Memories)
	})
}

func TestStore_CallFunction(t *testing.T) {
	s := newTestStore()
	module := &Module{
		TypeSection:     []*FunctionType{{Results: []ValueType{ValueTypeI32}}},
		FunctionSection: []uint32{0},
		CodeSection:     []*Code{{Body: []byte{OpcodeI32Const, 0x01, OpcodeEnd}}},
		ExportSection:   []*Export{{Name: "f", Kind: ExternKindFunc, Index: 0}},
	}
	_, err := s.Instantiate(module, "mod")
	require.NoError(t, err)

	_, returnTypes, err := s.CallFunction("mod", "f")
	require.NoError(t, err)
	assert.Equal(t, []ValueType{ValueTypeI32}, returnTypes)

	_, _, err = s.CallFunction("mod", "missing")
	require.Error(t, err)
	_, _, err = s.CallFunction("ghost", "f")
	require.Error(t, err)
	_, _, err = s.CallFunction("mod", "f", 1)
	require.Error(t, err, "argument arity must match")
}
