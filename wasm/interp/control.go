package interp

import (
	"fmt"

	"github.com/wasmago/wago/wasm"
)

func unreachable(m *machine) {
	panic(wasm.NewTrap(wasm.TrapCodeUnreachable))
}

func nop(m *machine) {
	m.activeFrame.pc++
}

// blockAt looks up the pre-analyzed bracketing for the control opcode at pc.
func blockAt(fr *frame) *wasm.FunctionBlock {
	b, ok := fr.f.Blocks[fr.pc]
	if !ok {
		panic(&wasm.InvariantViolationError{
			Message: fmt.Sprintf("no block analysis at pc=%d in %s", fr.pc, fr.f.Name),
		})
	}
	return b
}

func block(m *machine) {
	fr := m.activeFrame
	b := blockAt(fr)
	fr.labels.push(&label{
		arity:          len(b.BlockType.Results),
		continuationPC: b.EndAt + 1,
		operandSP:      m.operands.sp,
	})
	fr.pc += 1 + b.BlockTypeBytes
}

// loop's label continues at the loop opcode itself, so a branch re-enters the
// block and pushes a fresh label. Loop branches carry no operands.
func loop(m *machine) {
	fr := m.activeFrame
	b := blockAt(fr)
	fr.labels.push(&label{
		arity:          0,
		continuationPC: b.StartAt,
		operandSP:      m.operands.sp,
	})
	fr.pc += 1 + b.BlockTypeBytes
}

func ifOp(m *machine) {
	fr := m.activeFrame
	b := blockAt(fr)
	cond := m.operands.pop()
	fr.labels.push(&label{
		arity:          len(b.BlockType.Results),
		continuationPC: b.EndAt + 1,
		operandSP:      m.operands.sp,
	})
	if cond != 0 {
		fr.pc = b.StartAt + 1 + b.BlockTypeBytes
	} else {
		fr.pc = b.ElseAt + 1
	}
}

// elseOp is only reached by falling out of a then arm, so it completes the if.
func elseOp(m *machine) {
	fr := m.activeFrame
	l := fr.labels.pop()
	fr.pc = l.continuationPC
}

func end(m *machine) {
	fr := m.activeFrame
	fr.labels.pop()
	fr.pc++
}

// brAt branches to the label depth levels up, carrying the label's arity of
// operands across the unwound stack region.
func (m *machine) brAt(depth uint32) {
	fr := m.activeFrame
	var l *label
	for i := uint32(0); i <= depth; i++ {
		l = fr.labels.pop()
	}
	carried := make([]uint64, l.arity)
	for i := l.arity - 1; i >= 0; i-- {
		carried[i] = m.operands.pop()
	}
	m.operands.truncate(l.operandSP)
	for _, v := range carried {
		m.operands.push(v)
	}
	fr.pc = l.continuationPC
}

func br(m *machine) {
	m.activeFrame.pc++
	m.brAt(m.fetchUint32())
}

func brIf(m *machine) {
	m.activeFrame.pc++
	depth := m.fetchUint32()
	if m.operands.pop() != 0 {
		m.brAt(depth)
	}
}

func brTable(m *machine) {
	m.activeFrame.pc++
	count := m.fetchUint32()
	targets := make([]uint32, count)
	for i := range targets {
		targets[i] = m.fetchUint32()
	}
	defaultTarget := m.fetchUint32()

	idx := uint32(m.operands.pop())
	if idx < count {
		m.brAt(targets[idx])
	} else {
		m.brAt(defaultTarget)
	}
}

// returnOp moves pc past the body's end; the dispatch loop pops the frame and
// relocates the results.
func returnOp(m *machine) {
	fr := m.activeFrame
	fr.pc = uint64(len(fr.f.Body))
}

func drop(m *machine) {
	m.operands.pop()
	m.activeFrame.pc++
}

func selectOp(m *machine) {
	cond := m.operands.pop()
	v2 := m.operands.pop()
	v1 := m.operands.pop()
	if cond != 0 {
		m.operands.push(v1)
	} else {
		m.operands.push(v2)
	}
	m.activeFrame.pc++
}
