package interp

import (
	"fmt"

	"github.com/wasmago/wago/wasm"
)

func localGet(m *machine) {
	fr := m.activeFrame
	fr.pc++
	idx := m.fetchUint32()
	if idx >= uint32(len(fr.locals)) {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("local %d out of range in %s", idx, fr.f.Name)})
	}
	m.operands.push(fr.locals[idx])
}

func localSet(m *machine) {
	fr := m.activeFrame
	fr.pc++
	idx := m.fetchUint32()
	if idx >= uint32(len(fr.locals)) {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("local %d out of range in %s", idx, fr.f.Name)})
	}
	fr.locals[idx] = m.operands.pop()
}

func localTee(m *machine) {
	fr := m.activeFrame
	fr.pc++
	idx := m.fetchUint32()
	if idx >= uint32(len(fr.locals)) {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("local %d out of range in %s", idx, fr.f.Name)})
	}
	fr.locals[idx] = m.operands.peek()
}

func (m *machine) globalInstance(idx uint32) *wasm.GlobalInstance {
	mod := m.activeFrame.f.ModuleInstance
	if idx >= uint32(len(mod.GlobalAddrs)) {
		panic(&wasm.InvariantViolationError{Message: fmt.Sprintf("global %d out of range in %s", idx, mod.Name)})
	}
	return m.store.Globals[mod.GlobalAddrs[idx]]
}

func globalGet(m *machine) {
	m.activeFrame.pc++
	g := m.globalInstance(m.fetchUint32())
	m.operands.push(g.Val)
}

func globalSet(m *machine) {
	m.activeFrame.pc++
	g := m.globalInstance(m.fetchUint32())
	g.Val = m.operands.pop()
}
