// Package interp implements wasm.Engine as a stack-machine interpreter. It
// decodes instruction immediates at execution time and keeps all control flow
// on explicit stacks, so deeply nested module calls never grow the Go stack.
package interp

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wasmago/wago/wasm"
	"github.com/wasmago/wago/wasm/leb128"
)

const defaultCallStackHeight = 2000

// Engine executes compiled function instances. It holds configuration only;
// all execution state lives in a per-call machine, so a single Engine may be
// shared by concurrent callers.
type Engine struct {
	callStackHeight int
	logger          *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCallStackHeight overrides the maximum depth of nested function calls.
// Exceeding it raises a call stack exhausted trap.
func WithCallStackHeight(n int) Option {
	return func(e *Engine) { e.callStackHeight = n }
}

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		callStackHeight: defaultCallStackHeight,
		logger:          zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Call implements wasm.Engine. A trap unwinds the machine via panic and is
// recovered here, so the store and any other function instance remain usable
// afterwards.
func (e *Engine) Call(s *wasm.Store, f *wasm.FunctionInstance, args ...uint64) (returns []uint64, err error) {
	if len(args) != len(f.Signature.Params) {
		return nil, fmt.Errorf("expected %d params, got %d", len(f.Signature.Params), len(args))
	}

	defer func() {
		if v := recover(); v != nil {
			switch raised := v.(type) {
			case *wasm.Trap:
				err = raised
			case *wasm.InvariantViolationError:
				err = raised
			default:
				err = &wasm.InvariantViolationError{Message: fmt.Sprintf("unexpected panic: %v", v)}
			}
			e.logger.Debug("function call aborted",
				zap.String("function", f.Name), zap.Error(err))
			returns = nil
		}
	}()

	m := &machine{
		store:    s,
		engine:   e,
		operands: newOperandStack(),
		frames:   newFrameStack(),
	}
	for _, arg := range args {
		m.operands.push(arg)
	}
	m.callFunction(f)
	m.run()

	n := len(f.Signature.Results)
	returns = make([]uint64, n)
	for i := n - 1; i >= 0; i-- {
		returns[i] = m.operands.pop()
	}
	return returns, nil
}

// machine is the state of one Call. Nothing in it is shared across calls.
type machine struct {
	store       *wasm.Store
	engine      *Engine
	operands    *operandStack
	frames      *frameStack
	activeFrame *frame
}

func (m *machine) run() {
	for m.activeFrame != nil {
		fr := m.activeFrame
		if fr.pc >= uint64(len(fr.f.Body)) {
			m.popFrame()
			continue
		}
		op := fr.f.Body[fr.pc]
		h := instructions[op]
		if h == nil {
			panic(&wasm.InvariantViolationError{
				Message: fmt.Sprintf("no handler for opcode %#x at pc=%d in %s", op, fr.pc, fr.f.Name),
			})
		}
		h(m)
	}
}

// callFunction transfers control into f. Module functions get a new frame;
// host functions run to completion on the spot.
func (m *machine) callFunction(f *wasm.FunctionInstance) {
	if f.HostFunction != nil {
		m.callHostFunction(f)
		return
	}
	if m.frames.depth() >= m.engine.callStackHeight {
		panic(wasm.NewTrap(wasm.TrapCodeCallStackExhausted))
	}

	nparams := len(f.Signature.Params)
	locals := make([]uint64, nparams+len(f.LocalTypes))
	for i := nparams - 1; i >= 0; i-- {
		locals[i] = m.operands.pop()
	}

	fr := &frame{
		f:      f,
		locals: locals,
		labels: newLabelStack(),
		baseSP: m.operands.sp,
	}
	// The body is an implicit block: branching to it or running off its end
	// returns from the function.
	fr.labels.push(&label{
		arity:          len(f.Signature.Results),
		continuationPC: uint64(len(f.Body)),
		operandSP:      fr.baseSP,
	})
	m.frames.push(fr)
	m.activeFrame = fr
}

// popFrame returns from the active frame, leaving exactly the function's
// results above the caller's operands.
func (m *machine) popFrame() {
	fr := m.frames.pop()
	arity := len(fr.f.Signature.Results)
	results := make([]uint64, arity)
	for i := arity - 1; i >= 0; i-- {
		results[i] = m.operands.pop()
	}
	m.operands.truncate(fr.baseSP)
	for _, v := range results {
		m.operands.push(v)
	}
	m.activeFrame = m.frames.peek()
}

// Immediate fetchers decode at the active frame's pc and advance it past the
// decoded bytes. The compile step guarantees well-formed immediates, so a
// decode failure here is an engine bug.

func (m *machine) fetchUint32() uint32 {
	fr := m.activeFrame
	v, n, err := leb128.DecodeUint32(fr.f.Body[fr.pc:])
	if err != nil {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("fetch u32 at pc=%d: %v", fr.pc, err)})
	}
	fr.pc += n
	return v
}

func (m *machine) fetchInt32() int32 {
	fr := m.activeFrame
	v, n, err := leb128.DecodeInt32(fr.f.Body[fr.pc:])
	if err != nil {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("fetch i32 at pc=%d: %v", fr.pc, err)})
	}
	fr.pc += n
	return v
}

func (m *machine) fetchInt64() int64 {
	fr := m.activeFrame
	v, n, err := leb128.DecodeInt64(fr.f.Body[fr.pc:])
	if err != nil {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("fetch i64 at pc=%d: %v", fr.pc, err)})
	}
	fr.pc += n
	return v
}

func (m *machine) fetchFloat32() float32 {
	fr := m.activeFrame
	if fr.pc+4 > uint64(len(fr.f.Body)) {
		panic(&wasm.InvariantViolationError{Message: "fetch f32: body truncated"})
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(fr.f.Body[fr.pc:]))
	fr.pc += 4
	return v
}

func (m *machine) fetchFloat64() float64 {
	fr := m.activeFrame
	if fr.pc+8 > uint64(len(fr.f.Body)) {
		panic(&wasm.InvariantViolationError{Message: "fetch f64: body truncated"})
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(fr.f.Body[fr.pc:]))
	fr.pc += 8
	return v
}

// memory returns the active frame's module memory.
func (m *machine) memory() *wasm.MemoryInstance {
	mod := m.activeFrame.f.ModuleInstance
	if len(mod.MemoryAddrs) == 0 {
		panic(&wasm.InvariantViolationError{Message: "module has no memory"})
	}
	return m.store.Memories[mod.MemoryAddrs[0]]
}
