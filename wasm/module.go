package wasm

// Module is the abstract syntax tree of one decoded module, in the shape the
// external loader produces and the external validator certifies. The Store
// consumes it read-only: instantiation never mutates a Module, so the same
// tree may be instantiated under several names.
type (
	Module struct {
		TypeSection     []*FunctionType
		ImportSection   []*Import
		FunctionSection []uint32
		TableSection    []*TableType
		MemorySection   []*MemoryType
		GlobalSection   []*Global
		ExportSection   []*Export
		StartSection    *uint32
		ElementSection  []*ElementSegment
		CodeSection     []*Code
		DataSection     []*DataSegment
	}

	// Import is one entry of the import section, in declaration order.
	Import struct {
		Module string
		Name   string
		Desc   *ImportDesc
	}

	// ImportDesc carries the kind tag plus exactly one of the typed payloads.
	ImportDesc struct {
		Kind ExternKind

		TypeIndexPtr  *uint32
		TableTypePtr  *TableType
		MemTypePtr    *MemoryType
		GlobalTypePtr *GlobalType
	}

	// Export is one entry of the export section. Index is relative to the
	// module's own index space for Kind, i.e. imports come first.
	Export struct {
		Name  string
		Kind  ExternKind
		Index uint32
	}

	Global struct {
		Type *GlobalType
		Init *ConstantExpression
	}

	// Code is one function body: declared locals plus the raw opcode stream,
	// terminated by OpcodeEnd, with immediates encoded as in the binary format.
	Code struct {
		NumLocals  uint32
		LocalTypes []ValueType
		Body       []byte
	}

	ElementSegment struct {
		TableIndex uint32
		OffsetExpr *ConstantExpression
		Init       []uint32
	}

	DataSegment struct {
		MemoryIndex      uint32
		OffsetExpression *ConstantExpression
		Init             []byte
	}

	// ConstantExpression is a single const or global.get instruction with its
	// immediate, used for global, element and data initializers.
	ConstantExpression struct {
		Opcode Opcode
		Data   []byte
	}
)
