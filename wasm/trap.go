package wasm

// TrapCode identifies the runtime violation that halted execution.
type TrapCode byte

const (
	TrapCodeUnreachable TrapCode = iota
	TrapCodeOutOfBoundsMemoryAccess
	TrapCodeOutOfBoundsTableAccess
	TrapCodeIntegerDivideByZero
	TrapCodeIntegerOverflow
	TrapCodeInvalidConversionToInteger
	TrapCodeIndirectCallTypeMismatch
	TrapCodeUninitializedElement
	TrapCodeCallStackExhausted
	TrapCodeHostError
)

func (c TrapCode) String() string {
	switch c {
	case TrapCodeUnreachable:
		return "unreachable executed"
	case TrapCodeOutOfBoundsMemoryAccess:
		return "out of bounds memory access"
	case TrapCodeOutOfBoundsTableAccess:
		return "out of bounds table access"
	case TrapCodeIntegerDivideByZero:
		return "integer divide by zero"
	case TrapCodeIntegerOverflow:
		return "integer overflow"
	case TrapCodeInvalidConversionToInteger:
		return "invalid conversion to integer"
	case TrapCodeIndirectCallTypeMismatch:
		return "indirect call type mismatch"
	case TrapCodeUninitializedElement:
		return "uninitialized table element"
	case TrapCodeCallStackExhausted:
		return "call stack exhausted"
	case TrapCodeHostError:
		return "host function error"
	}
	return "unknown trap"
}

// Trap is a runtime-detected violation that aborts the whole call chain back
// to the invoking host boundary. The Store and all module instances remain
// valid after a trap; only the faulting invocation's frames are discarded.
type Trap struct {
	Code TrapCode
	// Cause is set for TrapCodeHostError and carries the host's error.
	Cause error
}

func (t *Trap) Error() string {
	if t.Cause != nil {
		return t.Code.String() + ": " + t.Cause.Error()
	}
	return t.Code.String()
}

func (t *Trap) Unwrap() error { return t.Cause }

// NewTrap returns a Trap with the given code. Engine instruction handlers
// panic with the returned value; the engine's call boundary recovers it.
func NewTrap(code TrapCode) *Trap {
	return &Trap{Code: code}
}

// NewHostErrorTrap wraps an error raised by a host function into a Trap.
func NewHostErrorTrap(cause error) *Trap {
	return &Trap{Code: TrapCodeHostError, Cause: cause}
}
