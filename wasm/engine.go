package wasm

// PageSize is the unit of memory allocation and growth, in bytes.
const PageSize uint64 = 65536

// Engine is the interface implemented by interpreters.
type Engine interface {
	// Compile prepares a function instance for execution, e.g. by
	// pre-analyzing its control structures. Called once per instance during
	// instantiation, before the instance becomes callable.
	Compile(f *FunctionInstance) error
	// Call invokes a function instance f against s with the given args, and
	// returns the function's results, a *Trap, or an
	// *InvariantViolationError. The args must already match f's parameter
	// arity.
	Call(s *Store, f *FunctionInstance, args ...uint64) (returns []uint64, err error)
}
