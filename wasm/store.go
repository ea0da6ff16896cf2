package wasm

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

type (
	// FunctionAddr is an opaque handle to a function instance owned by a Store.
	FunctionAddr uint32
	// TableAddr is an opaque handle to a table instance owned by a Store.
	TableAddr uint32
	// MemoryAddr is an opaque handle to a memory instance owned by a Store.
	MemoryAddr uint32
	// GlobalAddr is an opaque handle to a global instance owned by a Store.
	GlobalAddr uint32
)

type (
	// Store owns every entity and module instance of a session. Addresses are
	// indices into the entity slices; entities are never deleted individually,
	// teardown is dropping the whole Store.
	Store struct {
		engine Engine

		mux             sync.RWMutex
		moduleInstances map[string]*ModuleInstance

		Functions []*FunctionInstance
		Tables    []*TableInstance
		Memories  []*MemoryInstance
		Globals   []*GlobalInstance
	}

	// ModuleInstance is the runtime, linked form of one module: per-category
	// address lists (imported entities first, then locally defined ones, in
	// declaration order) plus the export name mappings. Its structure is
	// immutable once Instantiate returns; entity contents stay mutable.
	ModuleInstance struct {
		Name  string
		Types []*FunctionType

		FunctionAddrs []FunctionAddr
		TableAddrs    []TableAddr
		MemoryAddrs   []MemoryAddr
		GlobalAddrs   []GlobalAddr

		functionExports map[string]FunctionAddr
		tableExports    map[string]TableAddr
		memoryExports   map[string]MemoryAddr
		globalExports   map[string]GlobalAddr
	}

	// FunctionInstance holds either a compiled bytecode body or a host
	// callback, never both.
	FunctionInstance struct {
		Name           string
		ModuleInstance *ModuleInstance
		Signature      *FunctionType

		Body       []byte
		NumLocals  uint32
		LocalTypes []ValueType
		// Blocks maps the offset of each block/loop/if opcode in Body to its
		// pre-analyzed bracketing, filled by Engine.Compile.
		Blocks map[uint64]*FunctionBlock

		HostFunction *reflect.Value
	}

	// FunctionBlock is the compile-time shape of one structured control
	// construct inside a function body.
	FunctionBlock struct {
		StartAt, ElseAt, EndAt uint64
		BlockType              *FunctionType
		BlockTypeBytes         uint64
		IsLoop                 bool
		IsIf                   bool
	}

	TableInstance struct {
		Table    []*FunctionAddr
		Min      uint32
		Max      *uint32
		ElemType byte
	}

	MemoryInstance struct {
		Buffer []byte
		Min    uint32
		Max    *uint32
	}

	GlobalInstance struct {
		Type *GlobalType
		Val  uint64
	}
)

func newModuleInstance(name string) *ModuleInstance {
	return &ModuleInstance{
		Name:            name,
		functionExports: map[string]FunctionAddr{},
		tableExports:    map[string]TableAddr{},
		memoryExports:   map[string]MemoryAddr{},
		globalExports:   map[string]GlobalAddr{},
	}
}

// ExportedFunction looks up a function export by name.
func (m *ModuleInstance) ExportedFunction(name string) (FunctionAddr, bool) {
	addr, ok := m.functionExports[name]
	return addr, ok
}

// ExportedTable looks up a table export by name.
func (m *ModuleInstance) ExportedTable(name string) (TableAddr, bool) {
	addr, ok := m.tableExports[name]
	return addr, ok
}

// ExportedMemory looks up a memory export by name.
func (m *ModuleInstance) ExportedMemory(name string) (MemoryAddr, bool) {
	addr, ok := m.memoryExports[name]
	return addr, ok
}

// ExportedGlobal looks up a global export by name.
func (m *ModuleInstance) ExportedGlobal(name string) (GlobalAddr, bool) {
	addr, ok := m.globalExports[name]
	return addr, ok
}

func NewStore(engine Engine) *Store {
	return &Store{engine: engine, moduleInstances: map[string]*ModuleInstance{}}
}

// Module returns the module instance registered under name, if any.
func (s *Store) Module(name string) (*ModuleInstance, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	m, ok := s.moduleInstances[name]
	return m, ok
}

// Instantiate links module against the Store's registered instances and, on
// success, registers the resulting instance under name. On any failure the
// Store's registry is untouched: no partially-built instance is ever visible
// to other modules, and entity allocations made along the way are rolled back.
func (s *Store) Instantiate(module *Module, name string) (*ModuleInstance, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.moduleInstances[name]; ok {
		return nil, fmt.Errorf("module %q already instantiated", name)
	}

	instance := newModuleInstance(name)
	instance.Types = module.TypeSection

	// Resolve the imports before doing the actual instantiation (mutating store).
	if err := s.resolveImports(module, instance); err != nil {
		Logger().Error("import resolution failed",
			zap.String("module", name),
			zap.Error(err))
		return nil, err
	}

	// Note that some of the builders mutate the store, so in the case of
	// errors we must roll its state back.
	var rollbackFuncs []func()
	defer func() {
		for _, f := range rollbackFuncs {
			f()
		}
	}()
	rs, err := s.buildGlobalInstances(module, instance)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	rs, err = s.buildFunctionInstances(module, instance)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("functions: %w", err)
	}
	rs, err = s.buildTableInstances(module, instance)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	rs, err = s.buildMemoryInstances(module, instance)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("memories: %w", err)
	}
	rs, err = s.buildExportInstances(module, instance)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("exports: %w", err)
	}

	var startFunction *FunctionInstance
	if module.StartSection != nil {
		index := *module.StartSection
		if int(index) >= len(instance.FunctionAddrs) {
			return nil, fmt.Errorf("invalid start function index: %d", index)
		}
		startFunction = s.Functions[instance.FunctionAddrs[index]]
		if len(startFunction.Signature.Params) != 0 || len(startFunction.Signature.Results) != 0 {
			return nil, fmt.Errorf("start function must have an empty signature")
		}
	}

	// Now we are safe to finalize the state.
	rollbackFuncs = nil

	if startFunction != nil {
		if _, err := s.engine.Call(s, startFunction); err != nil {
			return nil, fmt.Errorf("start function failed: %w", err)
		}
	}

	s.moduleInstances[name] = instance
	return instance, nil
}

// Invoke calls the function at addr with args. The argument count must match
// the function's parameter count; results are returned in declaration order.
func (s *Store) Invoke(addr FunctionAddr, args ...uint64) ([]uint64, error) {
	if int(addr) >= len(s.Functions) {
		return nil, fmt.Errorf("invalid function address: %d", addr)
	}
	f := s.Functions[addr]
	if len(f.Signature.Params) != len(args) {
		return nil, fmt.Errorf("invalid number of arguments: have %d, want %d",
			len(args), len(f.Signature.Params))
	}
	return s.engine.Call(s, f, args...)
}

// CallFunction invokes an exported function of a registered module by name.
func (s *Store) CallFunction(moduleName, funcName string, args ...uint64) (returns []uint64, returnTypes []ValueType, err error) {
	m, ok := s.Module(moduleName)
	if !ok {
		return nil, nil, fmt.Errorf("module %q not instantiated", moduleName)
	}

	addr, ok := m.ExportedFunction(funcName)
	if !ok {
		return nil, nil, fmt.Errorf("exported function %q not found in %q", funcName, moduleName)
	}

	f := s.Functions[addr]
	if len(f.Signature.Params) != len(args) {
		return nil, nil, fmt.Errorf("invalid number of arguments: have %d, want %d",
			len(args), len(f.Signature.Params))
	}

	ret, err := s.engine.Call(s, f, args...)
	return ret, f.Signature.Results, err
}

func (s *Store) resolveImports(module *Module, target *ModuleInstance) error {
	for _, is := range module.ImportSection {
		if err := s.resolveImport(target, is); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) resolveImport(target *ModuleInstance, is *Import) error {
	em, ok := s.moduleInstances[is.Module]
	if !ok {
		return &UnknownImportError{ModuleName: is.Module, Name: is.Name, Kind: is.Desc.Kind}
	}

	switch is.Desc.Kind {
	case ExternKindFunc:
		if addr, ok := em.functionExports[is.Name]; ok {
			return s.applyFunctionImport(target, is, addr)
		}
	case ExternKindTable:
		if addr, ok := em.tableExports[is.Name]; ok {
			return s.applyTableImport(target, is, addr)
		}
	case ExternKindMemory:
		if addr, ok := em.memoryExports[is.Name]; ok {
			return s.applyMemoryImport(target, is, addr)
		}
	case ExternKindGlobal:
		if addr, ok := em.globalExports[is.Name]; ok {
			return s.applyGlobalImport(target, is, addr)
		}
	default:
		return &UnknownImportError{ModuleName: is.Module, Name: is.Name, Kind: is.Desc.Kind}
	}

	// The name was not exported under the requested category. Distinguish a
	// wrong-category export from a name that exists nowhere.
	for _, actual := range []ExternKind{ExternKindFunc, ExternKindTable, ExternKindMemory, ExternKindGlobal} {
		var found bool
		switch actual {
		case ExternKindFunc:
			_, found = em.functionExports[is.Name]
		case ExternKindTable:
			_, found = em.tableExports[is.Name]
		case ExternKindMemory:
			_, found = em.memoryExports[is.Name]
		case ExternKindGlobal:
			_, found = em.globalExports[is.Name]
		}
		if found {
			return &IncompatibleImportTypeError{
				ModuleName: is.Module, Name: is.Name,
				Kind: is.Desc.Kind, ActualKind: actual,
			}
		}
	}
	return &UnknownImportError{ModuleName: is.Module, Name: is.Name, Kind: is.Desc.Kind}
}

func (s *Store) applyFunctionImport(target *ModuleInstance, is *Import, addr FunctionAddr) error {
	if is.Desc.TypeIndexPtr == nil {
		return fmt.Errorf("import %q.%q: function type index missing", is.Module, is.Name)
	}
	typeIndex := *is.Desc.TypeIndexPtr
	if int(typeIndex) >= len(target.Types) {
		return fmt.Errorf("import %q.%q: unknown type index %d", is.Module, is.Name, typeIndex)
	}
	iSig := target.Types[typeIndex]
	f := s.Functions[addr]
	if !f.Signature.EqualsSignature(iSig.Params, iSig.Results) {
		return &IncompatibleImportTypeError{
			ModuleName: is.Module, Name: is.Name,
			Kind: ExternKindFunc, ActualKind: ExternKindFunc,
			Importer: iSig.String(), Target: f.Signature.String(),
		}
	}
	target.FunctionAddrs = append(target.FunctionAddrs, addr)
	return nil
}

func (s *Store) applyTableImport(target *ModuleInstance, is *Import, addr TableAddr) error {
	tt := is.Desc.TableTypePtr
	if tt == nil {
		return fmt.Errorf("import %q.%q: table type missing", is.Module, is.Name)
	}
	table := s.Tables[addr]
	targetLimits := &Limits{Min: table.Min, Max: table.Max}
	if table.ElemType != tt.ElemType || !LimitsMatch(targetLimits, tt.Limits) {
		return &IncompatibleImportTypeError{
			ModuleName: is.Module, Name: is.Name,
			Kind: ExternKindTable, ActualKind: ExternKindTable,
			Importer: fmt.Sprintf("elem=%#x %s", tt.ElemType, tt.Limits),
			Target:   fmt.Sprintf("elem=%#x %s", table.ElemType, targetLimits),
		}
	}
	target.TableAddrs = append(target.TableAddrs, addr)
	return nil
}

func (s *Store) applyMemoryImport(target *ModuleInstance, is *Import, addr MemoryAddr) error {
	mt := is.Desc.MemTypePtr
	if mt == nil {
		return fmt.Errorf("import %q.%q: memory type missing", is.Module, is.Name)
	}
	if len(target.MemoryAddrs) > 0 {
		// The current spec doesn't allow multiple memories.
		return fmt.Errorf("import %q.%q: multiple memories are not supported", is.Module, is.Name)
	}
	memory := s.Memories[addr]
	targetLimits := &Limits{Min: memory.Min, Max: memory.Max}
	if !LimitsMatch(targetLimits, mt) {
		return &IncompatibleImportTypeError{
			ModuleName: is.Module, Name: is.Name,
			Kind: ExternKindMemory, ActualKind: ExternKindMemory,
			Importer: mt.String(), Target: targetLimits.String(),
		}
	}
	target.MemoryAddrs = append(target.MemoryAddrs, addr)
	return nil
}

func (s *Store) applyGlobalImport(target *ModuleInstance, is *Import, addr GlobalAddr) error {
	gt := is.Desc.GlobalTypePtr
	if gt == nil {
		return fmt.Errorf("import %q.%q: global type missing", is.Module, is.Name)
	}
	g := s.Globals[addr]
	if gt.Mutable != g.Type.Mutable || gt.ValType != g.Type.ValType {
		return &IncompatibleImportTypeError{
			ModuleName: is.Module, Name: is.Name,
			Kind: ExternKindGlobal, ActualKind: ExternKindGlobal,
			Importer: gt.String(), Target: g.Type.String(),
		}
	}
	target.GlobalAddrs = append(target.GlobalAddrs, addr)
	return nil
}

func (s *Store) buildGlobalInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Globals)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Globals = s.Globals[:prevLen]
	})
	for _, gs := range module.GlobalSection {
		raw, t, err := s.executeConstExpression(target, gs.Init)
		if err != nil {
			return rollbackFuncs, fmt.Errorf("initializer: %w", err)
		}
		if gs.Type.ValType != t {
			return rollbackFuncs, fmt.Errorf("global initializer type mismatch: %s != %s",
				ValueTypeName(t), ValueTypeName(gs.Type.ValType))
		}
		var gv uint64
		switch v := raw.(type) {
		case int32:
			gv = uint64(uint32(v))
		case int64:
			gv = uint64(v)
		case float32:
			gv = uint64(math.Float32bits(v))
		case float64:
			gv = math.Float64bits(v)
		}
		addr := GlobalAddr(len(s.Globals))
		s.Globals = append(s.Globals, &GlobalInstance{Type: gs.Type, Val: gv})
		target.GlobalAddrs = append(target.GlobalAddrs, addr)
	}
	return rollbackFuncs, nil
}

func (s *Store) buildFunctionInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Functions)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Functions = s.Functions[:prevLen]
	})
	importCount := len(target.FunctionAddrs)
	for codeIndex, typeIndex := range module.FunctionSection {
		if int(typeIndex) >= len(module.TypeSection) {
			return rollbackFuncs, fmt.Errorf("function type index out of range")
		} else if codeIndex >= len(module.CodeSection) {
			return rollbackFuncs, fmt.Errorf("code index out of range")
		}

		code := module.CodeSection[codeIndex]
		f := &FunctionInstance{
			Name:           fmt.Sprintf("%s.$%d", target.Name, importCount+codeIndex),
			ModuleInstance: target,
			Signature:      module.TypeSection[typeIndex],
			Body:           code.Body,
			NumLocals:      code.NumLocals,
			LocalTypes:     code.LocalTypes,
		}

		if err := s.engine.Compile(f); err != nil {
			return rollbackFuncs, fmt.Errorf("compilation failed at index %d/%d: %w",
				codeIndex, len(module.FunctionSection)-1, err)
		}

		addr := FunctionAddr(len(s.Functions))
		s.Functions = append(s.Functions, f)
		target.FunctionAddrs = append(target.FunctionAddrs, addr)
	}
	return rollbackFuncs, nil
}

func (s *Store) buildTableInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Tables)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Tables = s.Tables[:prevLen]
	})
	for _, tableSeg := range module.TableSection {
		instance := &TableInstance{
			Table:    make([]*FunctionAddr, tableSeg.Limits.Min),
			Min:      tableSeg.Limits.Min,
			Max:      tableSeg.Limits.Max,
			ElemType: tableSeg.ElemType,
		}
		addr := TableAddr(len(s.Tables))
		s.Tables = append(s.Tables, instance)
		target.TableAddrs = append(target.TableAddrs, addr)
	}
	if len(target.TableAddrs) > 1 {
		return rollbackFuncs, fmt.Errorf("multiple tables are not supported")
	}

	for _, elem := range module.ElementSection {
		if int(elem.TableIndex) >= len(target.TableAddrs) {
			return rollbackFuncs, fmt.Errorf("table index out of range")
		}

		rawOffset, offsetType, err := s.executeConstExpression(target, elem.OffsetExpr)
		if err != nil {
			return rollbackFuncs, fmt.Errorf("element offset: %w", err)
		} else if offsetType != ValueTypeI32 {
			return rollbackFuncs, fmt.Errorf("element offset must be i32")
		}

		offset32, ok := rawOffset.(int32)
		if !ok {
			return rollbackFuncs, fmt.Errorf("element offset must be i32")
		} else if offset32 < 0 {
			return rollbackFuncs, fmt.Errorf("element offset must be non-negative: %d", offset32)
		}

		offset := int(offset32)
		instance := s.Tables[target.TableAddrs[elem.TableIndex]]
		if offset+len(elem.Init) > len(instance.Table) {
			return rollbackFuncs, fmt.Errorf("out of bounds table access: %d > %d",
				offset+len(elem.Init), len(instance.Table))
		}
		for i, elm := range elem.Init {
			if int(elm) >= len(target.FunctionAddrs) {
				return rollbackFuncs, fmt.Errorf("unknown function %d in element segment", elm)
			}
			pos := i + offset
			// Set up the rollback before mutating the table instance.
			original := instance.Table[pos]
			rollbackFuncs = append(rollbackFuncs, func() {
				instance.Table[pos] = original
			})
			funcAddr := target.FunctionAddrs[elm]
			instance.Table[pos] = &funcAddr
		}
	}
	return rollbackFuncs, nil
}

func (s *Store) buildMemoryInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Memories)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Memories = s.Memories[:prevLen]
	})
	for _, memSec := range module.MemorySection {
		if len(target.MemoryAddrs) > 0 {
			// The memory is already imported, and the current spec doesn't
			// allow multiple memories.
			return rollbackFuncs, fmt.Errorf("multiple memories are not supported")
		}
		instance := &MemoryInstance{
			Buffer: make([]byte, uint64(memSec.Min)*PageSize),
			Min:    memSec.Min,
			Max:    memSec.Max,
		}
		addr := MemoryAddr(len(s.Memories))
		s.Memories = append(s.Memories, instance)
		target.MemoryAddrs = append(target.MemoryAddrs, addr)
	}

	for _, d := range module.DataSection {
		if len(target.MemoryAddrs) == 0 {
			return rollbackFuncs, fmt.Errorf("unknown memory")
		} else if d.MemoryIndex != 0 {
			return rollbackFuncs, fmt.Errorf("memory index must be zero")
		}

		rawOffset, offsetType, err := s.executeConstExpression(target, d.OffsetExpression)
		if err != nil {
			return rollbackFuncs, fmt.Errorf("data offset: %w", err)
		} else if offsetType != ValueTypeI32 {
			return rollbackFuncs, fmt.Errorf("data offset must be i32")
		}

		offset, ok := rawOffset.(int32)
		if !ok {
			return rollbackFuncs, fmt.Errorf("data offset must be i32")
		} else if offset < 0 {
			return rollbackFuncs, fmt.Errorf("data offset must be non-negative: %d", offset)
		}

		instance := s.Memories[target.MemoryAddrs[0]]
		size := uint64(offset) + uint64(len(d.Init))
		if size > uint64(len(instance.Buffer)) {
			return rollbackFuncs, fmt.Errorf("out of bounds memory access")
		}
		// Set up the rollback before mutating the actual memory.
		original := make([]byte, len(d.Init))
		copy(original, instance.Buffer[offset:])
		rollbackFuncs = append(rollbackFuncs, func() {
			copy(instance.Buffer[offset:], original)
		})
		copy(instance.Buffer[offset:], d.Init)
	}
	return rollbackFuncs, nil
}

func (s *Store) buildExportInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	for _, exp := range module.ExportSection {
		index := int(exp.Index)
		switch exp.Kind {
		case ExternKindFunc:
			if _, ok := target.functionExports[exp.Name]; ok {
				return nil, fmt.Errorf("duplicate function export %q", exp.Name)
			}
			if index >= len(target.FunctionAddrs) {
				return nil, fmt.Errorf("unknown function for export %q", exp.Name)
			}
			target.functionExports[exp.Name] = target.FunctionAddrs[index]
		case ExternKindTable:
			if _, ok := target.tableExports[exp.Name]; ok {
				return nil, fmt.Errorf("duplicate table export %q", exp.Name)
			}
			if index >= len(target.TableAddrs) {
				return nil, fmt.Errorf("unknown table for export %q", exp.Name)
			}
			target.tableExports[exp.Name] = target.TableAddrs[index]
		case ExternKindMemory:
			if _, ok := target.memoryExports[exp.Name]; ok {
				return nil, fmt.Errorf("duplicate memory export %q", exp.Name)
			}
			if index >= len(target.MemoryAddrs) {
				return nil, fmt.Errorf("unknown memory for export %q", exp.Name)
			}
			target.memoryExports[exp.Name] = target.MemoryAddrs[index]
		case ExternKindGlobal:
			if _, ok := target.globalExports[exp.Name]; ok {
				return nil, fmt.Errorf("duplicate global export %q", exp.Name)
			}
			if index >= len(target.GlobalAddrs) {
				return nil, fmt.Errorf("unknown global for export %q", exp.Name)
			}
			target.globalExports[exp.Name] = target.GlobalAddrs[index]
		default:
			return nil, fmt.Errorf("invalid export kind %#x for %q", exp.Kind, exp.Name)
		}
	}
	return
}
