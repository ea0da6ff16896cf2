package wasm

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// HostFunctionCallContext is the first argument of all host functions.
type HostFunctionCallContext struct {
	// Memory is the memory of the calling module at the time the host
	// function call is made, or nil when the caller has none.
	Memory *MemoryInstance
}

var (
	hostCtxType = reflect.TypeOf(&HostFunctionCallContext{})
	errType     = reflect.TypeOf((*error)(nil)).Elem()
)

// getModuleInstance returns the named module instance, registering an empty
// one if it doesn't yet exist. Used to build host module namespaces.
func (s *Store) getModuleInstance(name string) *ModuleInstance {
	m, ok := s.moduleInstances[name]
	if !ok {
		m = newModuleInstance(name)
		s.moduleInstances[name] = m
	}
	return m
}

// AddHostFunction registers fn as an exported function of the (possibly
// synthetic) module moduleName. fn's first parameter must be
// *HostFunctionCallContext; the remaining parameters and the results must be
// fixed-width numeric types, from which the signature is derived. fn may
// declare a trailing error result, which the engine turns into a trap when
// non-nil.
func (s *Store) AddHostFunction(moduleName, funcName string, fn reflect.Value) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	sig, err := hostFunctionSignature(fn.Type())
	if err != nil {
		return fmt.Errorf("invalid host function %s.%s: %w", moduleName, funcName, err)
	}

	m := s.getModuleInstance(moduleName)
	if _, ok := m.functionExports[funcName]; ok {
		return fmt.Errorf("name %q already exists in module %q", funcName, moduleName)
	}

	f := &FunctionInstance{
		Name:           fmt.Sprintf("%s.%s", moduleName, funcName),
		ModuleInstance: m,
		Signature:      sig,
		HostFunction:   &fn,
	}
	if err := s.engine.Compile(f); err != nil {
		return fmt.Errorf("failed to compile %s: %w", f.Name, err)
	}

	addr := FunctionAddr(len(s.Functions))
	s.Functions = append(s.Functions, f)
	m.FunctionAddrs = append(m.FunctionAddrs, addr)
	m.functionExports[funcName] = addr
	return nil
}

// AddGlobal registers a global entity as an export of moduleName.
func (s *Store) AddGlobal(moduleName, name string, value uint64, valueType ValueType, mutable bool) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	m := s.getModuleInstance(moduleName)
	if _, ok := m.globalExports[name]; ok {
		return fmt.Errorf("name %q already exists in module %q", name, moduleName)
	}

	addr := GlobalAddr(len(s.Globals))
	s.Globals = append(s.Globals, &GlobalInstance{
		Type: &GlobalType{ValType: valueType, Mutable: mutable},
		Val:  value,
	})
	m.GlobalAddrs = append(m.GlobalAddrs, addr)
	m.globalExports[name] = addr
	return nil
}

// AddTableInstance registers a funcref table as an export of moduleName.
func (s *Store) AddTableInstance(moduleName, name string, min uint32, max *uint32) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	m := s.getModuleInstance(moduleName)
	if _, ok := m.tableExports[name]; ok {
		return fmt.Errorf("name %q already exists in module %q", name, moduleName)
	}

	addr := TableAddr(len(s.Tables))
	s.Tables = append(s.Tables, &TableInstance{
		Table:    make([]*FunctionAddr, min),
		Min:      min,
		Max:      max,
		ElemType: RefTypeFuncref,
	})
	m.TableAddrs = append(m.TableAddrs, addr)
	m.tableExports[name] = addr
	return nil
}

// AddMemoryInstance registers a memory as an export of moduleName.
func (s *Store) AddMemoryInstance(moduleName, name string, min uint32, max *uint32) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	m := s.getModuleInstance(moduleName)
	if _, ok := m.memoryExports[name]; ok {
		return fmt.Errorf("name %q already exists in module %q", name, moduleName)
	}

	addr := MemoryAddr(len(s.Memories))
	s.Memories = append(s.Memories, &MemoryInstance{
		Buffer: make([]byte, uint64(min)*PageSize),
		Min:    min,
		Max:    max,
	})
	m.MemoryAddrs = append(m.MemoryAddrs, addr)
	m.memoryExports[name] = addr
	return nil
}

func hostFunctionSignature(p reflect.Type) (*FunctionType, error) {
	if p.Kind() != reflect.Func {
		return nil, fmt.Errorf("not a function: %s", p.Kind())
	}
	if p.NumIn() == 0 || p.In(0) != hostCtxType {
		return nil, fmt.Errorf("first param must be *wasm.HostFunctionCallContext")
	}

	in := make([]ValueType, p.NumIn()-1)
	for i := range in {
		t, err := valueTypeOf(p.In(i + 1).Kind())
		if err != nil {
			return nil, err
		}
		in[i] = t
	}

	numOut := p.NumOut()
	if numOut > 0 && p.Out(numOut-1) == errType {
		numOut--
	}
	out := make([]ValueType, numOut)
	for i := range out {
		t, err := valueTypeOf(p.Out(i).Kind())
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return &FunctionType{Params: in, Results: out}, nil
}

func valueTypeOf(kind reflect.Kind) (ValueType, error) {
	switch kind {
	case reflect.Int32, reflect.Uint32:
		return ValueTypeI32, nil
	case reflect.Int64, reflect.Uint64:
		return ValueTypeI64, nil
	case reflect.Float32:
		return ValueTypeF32, nil
	case reflect.Float64:
		return ValueTypeF64, nil
	default:
		return 0x00, fmt.Errorf("invalid type: %s", kind)
	}
}

// Len returns the size in bytes available. Ex. If the underlying memory has 1 page: 65536
func (m *MemoryInstance) Len() uint32 {
	return uint32(len(m.Buffer))
}

// PageCount returns the current size in pages.
func (m *MemoryInstance) PageCount() uint32 {
	return uint32(uint64(len(m.Buffer)) / PageSize)
}

// Grow extends the memory by delta pages and returns the previous page count,
// or false when growth would exceed the declared maximum. Growth is a
// single-writer operation relative to any concurrent access to this memory.
func (m *MemoryInstance) Grow(delta uint32) (prevPages uint32, ok bool) {
	prevPages = m.PageCount()
	if m.Max != nil && uint64(prevPages)+uint64(delta) > uint64(*m.Max) {
		return 0, false
	}
	m.Buffer = append(m.Buffer, make([]byte, uint64(delta)*PageSize)...)
	return prevPages, true
}

// hasLen returns true if Len is sufficient for sizeInBytes at the given offset.
func (m *MemoryInstance) hasLen(offset uint32, sizeInBytes uint32) bool {
	return uint64(offset)+uint64(sizeInBytes) <= uint64(m.Len())
}

// ReadUint32Le reads a uint32 in little-endian encoding from the underlying
// buffer at the offset, or returns false if out of range.
func (m *MemoryInstance) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.hasLen(offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.Buffer[offset : offset+4]), true
}

// ReadUint64Le reads a uint64 in little-endian encoding from the underlying
// buffer at the offset, or returns false if out of range.
func (m *MemoryInstance) ReadUint64Le(offset uint32) (uint64, bool) {
	if !m.hasLen(offset, 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.Buffer[offset : offset+8]), true
}

// ReadFloat64Le reads a float64 from 64 IEEE 754 little-endian encoded bits in
// the underlying buffer at the offset, or returns false if out of range.
func (m *MemoryInstance) ReadFloat64Le(offset uint32) (float64, bool) {
	v, ok := m.ReadUint64Le(offset)
	if !ok {
		return 0, false
	}
	return math.Float64frombits(v), true
}

// Read reads byteCount bytes from the underlying buffer at the offset, or
// returns false if out of range.
func (m *MemoryInstance) Read(offset, byteCount uint32) ([]byte, bool) {
	if !m.hasLen(offset, byteCount) {
		return nil, false
	}
	return m.Buffer[offset : offset+byteCount], true
}

// WriteUint32Le writes the value in little-endian encoding to the underlying
// buffer at the offset, or returns false if out of range.
func (m *MemoryInstance) WriteUint32Le(offset, v uint32) bool {
	if !m.hasLen(offset, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(m.Buffer[offset:], v)
	return true
}

// WriteUint64Le writes the value in little-endian encoding to the underlying
// buffer at the offset, or returns false if out of range.
func (m *MemoryInstance) WriteUint64Le(offset uint32, v uint64) bool {
	if !m.hasLen(offset, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(m.Buffer[offset:], v)
	return true
}

// Write writes the slice to the underlying buffer at the offset, or returns
// false if out of range.
func (m *MemoryInstance) Write(offset uint32, v []byte) bool {
	if !m.hasLen(offset, uint32(len(v))) {
		return false
	}
	copy(m.Buffer[offset:], v)
	return true
}
