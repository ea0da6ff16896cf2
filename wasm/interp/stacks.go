package interp

import "github.com/wasmago/wago/wasm"

const initialOperandStackHeight = 1024

// operandStack holds raw 64-bit values. sp is the number of live entries.
type operandStack struct {
	stack []uint64
	sp    int
}

func newOperandStack() *operandStack {
	return &operandStack{stack: make([]uint64, initialOperandStackHeight)}
}

func (s *operandStack) push(v uint64) {
	if s.sp == len(s.stack) {
		s.stack = append(s.stack, make([]uint64, len(s.stack))...)
	}
	s.stack[s.sp] = v
	s.sp++
}

func (s *operandStack) pop() uint64 {
	if s.sp == 0 {
		panic(&wasm.InvariantViolationError{Message: "operand stack underflow"})
	}
	s.sp--
	return s.stack[s.sp]
}

func (s *operandStack) peek() uint64 {
	if s.sp == 0 {
		panic(&wasm.InvariantViolationError{Message: "operand stack underflow"})
	}
	return s.stack[s.sp-1]
}

func (s *operandStack) truncate(sp int) {
	if sp > s.sp {
		panic(&wasm.InvariantViolationError{Message: "operand stack truncation above sp"})
	}
	s.sp = sp
}

// label marks an enclosing structured block as a branch target.
type label struct {
	// arity is the number of operands a branch to this label carries over.
	arity int
	// continuationPC is where execution resumes after a branch: past the
	// block's end for block/if, at the loop opcode for loop.
	continuationPC uint64
	// operandSP is the operand stack height at block entry.
	operandSP int
}

type labelStack struct {
	stack []*label
}

func newLabelStack() *labelStack {
	return &labelStack{stack: make([]*label, 0, 16)}
}

func (s *labelStack) push(l *label) {
	s.stack = append(s.stack, l)
}

func (s *labelStack) pop() *label {
	n := len(s.stack)
	if n == 0 {
		panic(&wasm.InvariantViolationError{Message: "label stack underflow"})
	}
	l := s.stack[n-1]
	s.stack = s.stack[:n-1]
	return l
}

// frame is one module-function activation.
type frame struct {
	f      *wasm.FunctionInstance
	pc     uint64
	locals []uint64
	labels *labelStack
	// baseSP is the operand stack height at entry, after the arguments were
	// consumed into locals.
	baseSP int
}

type frameStack struct {
	stack []*frame
}

func newFrameStack() *frameStack {
	return &frameStack{stack: make([]*frame, 0, 16)}
}

func (s *frameStack) push(f *frame) {
	s.stack = append(s.stack, f)
}

func (s *frameStack) pop() *frame {
	n := len(s.stack)
	if n == 0 {
		panic(&wasm.InvariantViolationError{Message: "frame stack underflow"})
	}
	f := s.stack[n-1]
	s.stack = s.stack[:n-1]
	return f
}

// peek returns the current top frame, or nil when the stack is empty.
func (s *frameStack) peek() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *frameStack) depth() int {
	return len(s.stack)
}
