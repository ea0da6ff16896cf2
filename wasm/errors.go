package wasm

import "fmt"

// UnknownImportError means an import could not be resolved at all: either the
// named module is not registered in the Store, or the named export does not
// exist in it under any category.
type UnknownImportError struct {
	ModuleName string
	Name       string
	Kind       ExternKind
}

func (e *UnknownImportError) Error() string {
	return fmt.Sprintf("unknown import: %s %q.%q", ExternKindName(e.Kind), e.ModuleName, e.Name)
}

// IncompatibleImportTypeError means the named export exists but cannot satisfy
// the import: it is either registered under a different category, or its
// structural type (signature, limits, element type, mutability) mismatches.
// Importer and Target render both sides of the failed comparison.
type IncompatibleImportTypeError struct {
	ModuleName string
	Name       string
	Kind       ExternKind // the category the importer requested
	ActualKind ExternKind // the category the export was found under
	Importer   string
	Target     string
}

func (e *IncompatibleImportTypeError) Error() string {
	if e.Kind != e.ActualKind {
		return fmt.Sprintf("incompatible import type: %q.%q is a %s, not a %s",
			e.ModuleName, e.Name, ExternKindName(e.ActualKind), ExternKindName(e.Kind))
	}
	return fmt.Sprintf("incompatible import type: %s %q.%q requires %s but the target is %s",
		ExternKindName(e.Kind), e.ModuleName, e.Name, e.Importer, e.Target)
}

// InvariantViolationError reports an internal inconsistency during execution,
// e.g. an opcode the engine never compiled or an operand-stack underflow.
// Validated input cannot cause it; it indicates a precondition of the engine
// was not met, and is reported distinctly from a bytecode-caused Trap.
type InvariantViolationError struct {
	Message string
}

func (e *InvariantViolationError) Error() string {
	return "engine invariant violated: " + e.Message
}
