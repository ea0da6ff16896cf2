package interp

import (
	"encoding/binary"
	"math"

	"github.com/wasmago/wago/wasm"
)

// effectiveAddr pops the base address, fetches the alignment and offset
// immediates, and returns the bounds-checked start of a size-byte access.
// The alignment hint is ignored; accesses are byte-addressed either way.
func (m *machine) effectiveAddr(size uint64) uint64 {
	m.fetchUint32() // alignment
	offset := uint64(m.fetchUint32())
	base := uint64(uint32(m.operands.pop()))

	mem := m.memory()
	ea := base + offset
	if ea+size > uint64(len(mem.Buffer)) {
		panic(wasm.NewTrap(wasm.TrapCodeOutOfBoundsMemoryAccess))
	}
	return ea
}

func (m *machine) load32(ea uint64) uint32 {
	return binary.LittleEndian.Uint32(m.memory().Buffer[ea:])
}

func (m *machine) load64(ea uint64) uint64 {
	return binary.LittleEndian.Uint64(m.memory().Buffer[ea:])
}

func i32Load(m *machine) {
	m.activeFrame.pc++
	m.operands.push(uint64(m.load32(m.effectiveAddr(4))))
}

func i64Load(m *machine) {
	m.activeFrame.pc++
	m.operands.push(m.load64(m.effectiveAddr(8)))
}

func f32Load(m *machine) {
	m.activeFrame.pc++
	m.operands.push(uint64(m.load32(m.effectiveAddr(4))))
}

func f64Load(m *machine) {
	m.activeFrame.pc++
	m.operands.push(m.load64(m.effectiveAddr(8)))
}

func i32Load8S(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(1)
	v := int8(m.memory().Buffer[ea])
	m.operands.push(uint64(uint32(int32(v))))
}

func i32Load8U(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(1)
	m.operands.push(uint64(m.memory().Buffer[ea]))
}

func i32Load16S(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(2)
	v := int16(binary.LittleEndian.Uint16(m.memory().Buffer[ea:]))
	m.operands.push(uint64(uint32(int32(v))))
}

func i32Load16U(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(2)
	m.operands.push(uint64(binary.LittleEndian.Uint16(m.memory().Buffer[ea:])))
}

func i64Load8S(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(1)
	m.operands.push(uint64(int64(int8(m.memory().Buffer[ea]))))
}

func i64Load8U(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(1)
	m.operands.push(uint64(m.memory().Buffer[ea]))
}

func i64Load16S(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(2)
	v := int16(binary.LittleEndian.Uint16(m.memory().Buffer[ea:]))
	m.operands.push(uint64(int64(v)))
}

func i64Load16U(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(2)
	m.operands.push(uint64(binary.LittleEndian.Uint16(m.memory().Buffer[ea:])))
}

func i64Load32S(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(4)
	m.operands.push(uint64(int64(int32(m.load32(ea)))))
}

func i64Load32U(m *machine) {
	m.activeFrame.pc++
	ea := m.effectiveAddr(4)
	m.operands.push(uint64(m.load32(ea)))
}

// Stores pop the value before the address, so the operand order is restored
// here rather than on the stack.

func i32Store(m *machine) {
	m.activeFrame.pc++
	v := uint32(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 4, func(buf []byte) { binary.LittleEndian.PutUint32(buf, v) })
}

func i64Store(m *machine) {
	m.activeFrame.pc++
	v := m.operands.pop()
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 8, func(buf []byte) { binary.LittleEndian.PutUint64(buf, v) })
}

func f32Store(m *machine) {
	m.activeFrame.pc++
	v := uint32(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 4, func(buf []byte) { binary.LittleEndian.PutUint32(buf, v) })
}

func f64Store(m *machine) {
	m.activeFrame.pc++
	v := m.operands.pop()
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 8, func(buf []byte) { binary.LittleEndian.PutUint64(buf, v) })
}

func i32Store8(m *machine) {
	m.activeFrame.pc++
	v := byte(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 1, func(buf []byte) { buf[0] = v })
}

func i32Store16(m *machine) {
	m.activeFrame.pc++
	v := uint16(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 2, func(buf []byte) { binary.LittleEndian.PutUint16(buf, v) })
}

func i64Store8(m *machine) {
	m.activeFrame.pc++
	v := byte(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 1, func(buf []byte) { buf[0] = v })
}

func i64Store16(m *machine) {
	m.activeFrame.pc++
	v := uint16(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 2, func(buf []byte) { binary.LittleEndian.PutUint16(buf, v) })
}

func i64Store32(m *machine) {
	m.activeFrame.pc++
	v := uint32(m.operands.pop())
	m.fetchUint32()
	offset := uint64(m.fetchUint32())
	m.storeBytes(offset, 4, func(buf []byte) { binary.LittleEndian.PutUint32(buf, v) })
}

func (m *machine) storeBytes(offset, size uint64, write func([]byte)) {
	base := uint64(uint32(m.operands.pop()))
	mem := m.memory()
	ea := base + offset
	if ea+size > uint64(len(mem.Buffer)) {
		panic(wasm.NewTrap(wasm.TrapCodeOutOfBoundsMemoryAccess))
	}
	write(mem.Buffer[ea : ea+size])
}

func memorySize(m *machine) {
	fr := m.activeFrame
	fr.pc += 2 // opcode plus the reserved memory index
	m.operands.push(uint64(m.memory().PageCount()))
}

func memoryGrow(m *machine) {
	fr := m.activeFrame
	fr.pc += 2
	delta := uint32(m.operands.pop())
	prev, ok := m.memory().Grow(delta)
	if !ok {
		m.operands.push(uint64(uint32(0xffffffff)))
		return
	}
	m.operands.push(uint64(prev))
}

func i32Const(m *machine) {
	m.activeFrame.pc++
	v := m.fetchInt32()
	m.operands.push(uint64(uint32(v)))
}

func i64Const(m *machine) {
	m.activeFrame.pc++
	v := m.fetchInt64()
	m.operands.push(uint64(v))
}

func f32Const(m *machine) {
	m.activeFrame.pc++
	v := m.fetchFloat32()
	m.operands.push(uint64(math.Float32bits(v)))
}

func f64Const(m *machine) {
	m.activeFrame.pc++
	v := m.fetchFloat64()
	m.operands.push(math.Float64bits(v))
}
