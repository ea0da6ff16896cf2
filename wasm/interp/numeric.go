package interp

import (
	"math"
	"math/bits"

	"github.com/wasmago/wago/wasm"
)

func (m *machine) pushBool(b bool) {
	if b {
		m.operands.push(1)
	} else {
		m.operands.push(0)
	}
}

func (m *machine) popI32() int32   { return int32(uint32(m.operands.pop())) }
func (m *machine) popU32() uint32  { return uint32(m.operands.pop()) }
func (m *machine) popI64() int64   { return int64(m.operands.pop()) }
func (m *machine) popU64() uint64  { return m.operands.pop() }
func (m *machine) popF32() float32 { return math.Float32frombits(uint32(m.operands.pop())) }
func (m *machine) popF64() float64 { return math.Float64frombits(m.operands.pop()) }

func (m *machine) pushU32(v uint32)  { m.operands.push(uint64(v)) }
func (m *machine) pushI32(v int32)   { m.operands.push(uint64(uint32(v))) }
func (m *machine) pushU64(v uint64)  { m.operands.push(v) }
func (m *machine) pushI64(v int64)   { m.operands.push(uint64(v)) }
func (m *machine) pushF32(v float32) { m.operands.push(uint64(math.Float32bits(v))) }
func (m *machine) pushF64(v float64) { m.operands.push(math.Float64bits(v)) }

// Comparisons.

func i32Eqz(m *machine) { m.activeFrame.pc++; m.pushBool(m.popU32() == 0) }
func i64Eqz(m *machine) { m.activeFrame.pc++; m.pushBool(m.popU64() == 0) }

func i32Eq(m *machine)  { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushBool(v1 == v2) }
func i32Ne(m *machine)  { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushBool(v1 != v2) }
func i32LtS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI32(), m.popI32(); m.pushBool(v1 < v2) }
func i32LtU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushBool(v1 < v2) }
func i32GtS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI32(), m.popI32(); m.pushBool(v1 > v2) }
func i32GtU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushBool(v1 > v2) }
func i32LeS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI32(), m.popI32(); m.pushBool(v1 <= v2) }
func i32LeU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushBool(v1 <= v2) }
func i32GeS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI32(), m.popI32(); m.pushBool(v1 >= v2) }
func i32GeU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushBool(v1 >= v2) }

func i64Eq(m *machine)  { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushBool(v1 == v2) }
func i64Ne(m *machine)  { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushBool(v1 != v2) }
func i64LtS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI64(), m.popI64(); m.pushBool(v1 < v2) }
func i64LtU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushBool(v1 < v2) }
func i64GtS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI64(), m.popI64(); m.pushBool(v1 > v2) }
func i64GtU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushBool(v1 > v2) }
func i64LeS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI64(), m.popI64(); m.pushBool(v1 <= v2) }
func i64LeU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushBool(v1 <= v2) }
func i64GeS(m *machine) { m.activeFrame.pc++; v2, v1 := m.popI64(), m.popI64(); m.pushBool(v1 >= v2) }
func i64GeU(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushBool(v1 >= v2) }

func f32Eq(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushBool(v1 == v2) }
func f32Ne(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushBool(v1 != v2) }
func f32Lt(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushBool(v1 < v2) }
func f32Gt(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushBool(v1 > v2) }
func f32Le(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushBool(v1 <= v2) }
func f32Ge(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushBool(v1 >= v2) }

func f64Eq(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushBool(v1 == v2) }
func f64Ne(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushBool(v1 != v2) }
func f64Lt(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushBool(v1 < v2) }
func f64Gt(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushBool(v1 > v2) }
func f64Le(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushBool(v1 <= v2) }
func f64Ge(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushBool(v1 >= v2) }

// Integer arithmetic.

func i32Clz(m *machine)    { m.activeFrame.pc++; m.pushU32(uint32(bits.LeadingZeros32(m.popU32()))) }
func i32Ctz(m *machine)    { m.activeFrame.pc++; m.pushU32(uint32(bits.TrailingZeros32(m.popU32()))) }
func i32Popcnt(m *machine) { m.activeFrame.pc++; m.pushU32(uint32(bits.OnesCount32(m.popU32()))) }

func i32Add(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushU32(v1 + v2) }
func i32Sub(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushU32(v1 - v2) }
func i32Mul(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushU32(v1 * v2) }

func i32DivS(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popI32(), m.popI32()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	if v1 == math.MinInt32 && v2 == -1 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerOverflow))
	}
	m.pushI32(v1 / v2)
}

func i32DivU(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popU32()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	m.pushU32(v1 / v2)
}

func i32RemS(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popI32(), m.popI32()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	m.pushI32(v1 % v2)
}

func i32RemU(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popU32()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	m.pushU32(v1 % v2)
}

func i32And(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushU32(v1 & v2) }
func i32Or(m *machine)  { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushU32(v1 | v2) }
func i32Xor(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU32(), m.popU32(); m.pushU32(v1 ^ v2) }

func i32Shl(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popU32()
	m.pushU32(v1 << (v2 % 32))
}

func i32ShrS(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popI32()
	m.pushI32(v1 >> (v2 % 32))
}

func i32ShrU(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popU32()
	m.pushU32(v1 >> (v2 % 32))
}

func i32Rotl(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popU32()
	m.pushU32(bits.RotateLeft32(v1, int(v2)))
}

func i32Rotr(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU32(), m.popU32()
	m.pushU32(bits.RotateLeft32(v1, -int(v2)))
}

func i64Clz(m *machine)    { m.activeFrame.pc++; m.pushU64(uint64(bits.LeadingZeros64(m.popU64()))) }
func i64Ctz(m *machine)    { m.activeFrame.pc++; m.pushU64(uint64(bits.TrailingZeros64(m.popU64()))) }
func i64Popcnt(m *machine) { m.activeFrame.pc++; m.pushU64(uint64(bits.OnesCount64(m.popU64()))) }

func i64Add(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushU64(v1 + v2) }
func i64Sub(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushU64(v1 - v2) }
func i64Mul(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushU64(v1 * v2) }

func i64DivS(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popI64(), m.popI64()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	if v1 == math.MinInt64 && v2 == -1 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerOverflow))
	}
	m.pushI64(v1 / v2)
}

func i64DivU(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popU64()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	m.pushU64(v1 / v2)
}

func i64RemS(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popI64(), m.popI64()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	m.pushI64(v1 % v2)
}

func i64RemU(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popU64()
	if v2 == 0 {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerDivideByZero))
	}
	m.pushU64(v1 % v2)
}

func i64And(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushU64(v1 & v2) }
func i64Or(m *machine)  { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushU64(v1 | v2) }
func i64Xor(m *machine) { m.activeFrame.pc++; v2, v1 := m.popU64(), m.popU64(); m.pushU64(v1 ^ v2) }

func i64Shl(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popU64()
	m.pushU64(v1 << (v2 % 64))
}

func i64ShrS(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popI64()
	m.pushI64(v1 >> (v2 % 64))
}

func i64ShrU(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popU64()
	m.pushU64(v1 >> (v2 % 64))
}

func i64Rotl(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popU64()
	m.pushU64(bits.RotateLeft64(v1, int(v2)))
}

func i64Rotr(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popU64(), m.popU64()
	m.pushU64(bits.RotateLeft64(v1, -int(v2)))
}

// Float arithmetic.

func f32Abs(m *machine)  { m.activeFrame.pc++; m.pushF32(float32(math.Abs(float64(m.popF32())))) }
func f32Neg(m *machine)  { m.activeFrame.pc++; m.pushF32(-m.popF32()) }
func f32Ceil(m *machine) { m.activeFrame.pc++; m.pushF32(float32(math.Ceil(float64(m.popF32())))) }
func f32Floor(m *machine) {
	m.activeFrame.pc++
	m.pushF32(float32(math.Floor(float64(m.popF32()))))
}
func f32Trunc(m *machine) {
	m.activeFrame.pc++
	m.pushF32(float32(math.Trunc(float64(m.popF32()))))
}
func f32Nearest(m *machine) {
	m.activeFrame.pc++
	m.pushF32(float32(math.RoundToEven(float64(m.popF32()))))
}
func f32Sqrt(m *machine) { m.activeFrame.pc++; m.pushF32(float32(math.Sqrt(float64(m.popF32())))) }

func f32Add(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushF32(v1 + v2) }
func f32Sub(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushF32(v1 - v2) }
func f32Mul(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushF32(v1 * v2) }
func f32Div(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF32(), m.popF32(); m.pushF32(v1 / v2) }

func f32Min(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popF32(), m.popF32()
	m.pushF32(float32(math.Min(float64(v1), float64(v2))))
}

func f32Max(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popF32(), m.popF32()
	m.pushF32(float32(math.Max(float64(v1), float64(v2))))
}

func f32Copysign(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popF32(), m.popF32()
	m.pushF32(float32(math.Copysign(float64(v1), float64(v2))))
}

func f64Abs(m *machine)   { m.activeFrame.pc++; m.pushF64(math.Abs(m.popF64())) }
func f64Neg(m *machine)   { m.activeFrame.pc++; m.pushF64(-m.popF64()) }
func f64Ceil(m *machine)  { m.activeFrame.pc++; m.pushF64(math.Ceil(m.popF64())) }
func f64Floor(m *machine) { m.activeFrame.pc++; m.pushF64(math.Floor(m.popF64())) }
func f64Trunc(m *machine) { m.activeFrame.pc++; m.pushF64(math.Trunc(m.popF64())) }
func f64Nearest(m *machine) {
	m.activeFrame.pc++
	m.pushF64(math.RoundToEven(m.popF64()))
}
func f64Sqrt(m *machine) { m.activeFrame.pc++; m.pushF64(math.Sqrt(m.popF64())) }

func f64Add(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushF64(v1 + v2) }
func f64Sub(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushF64(v1 - v2) }
func f64Mul(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushF64(v1 * v2) }
func f64Div(m *machine) { m.activeFrame.pc++; v2, v1 := m.popF64(), m.popF64(); m.pushF64(v1 / v2) }

func f64Min(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popF64(), m.popF64()
	m.pushF64(math.Min(v1, v2))
}

func f64Max(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popF64(), m.popF64()
	m.pushF64(math.Max(v1, v2))
}

func f64Copysign(m *machine) {
	m.activeFrame.pc++
	v2, v1 := m.popF64(), m.popF64()
	m.pushF64(math.Copysign(v1, v2))
}

// Conversions. Float-to-integer truncation traps on NaN and on values outside
// the target range, matching the non-saturating instructions.

func truncChecked(v float64, lo, hi float64) float64 {
	if math.IsNaN(v) {
		panic(wasm.NewTrap(wasm.TrapCodeInvalidConversionToInteger))
	}
	t := math.Trunc(v)
	if t < lo || t >= hi {
		panic(wasm.NewTrap(wasm.TrapCodeIntegerOverflow))
	}
	return t
}

func i32WrapI64(m *machine) { m.activeFrame.pc++; m.pushU32(uint32(m.popU64())) }

func i32TruncF32S(m *machine) {
	m.activeFrame.pc++
	m.pushI32(int32(truncChecked(float64(m.popF32()), -2147483648, 2147483648)))
}

func i32TruncF32U(m *machine) {
	m.activeFrame.pc++
	m.pushU32(uint32(truncChecked(float64(m.popF32()), 0, 4294967296)))
}

func i32TruncF64S(m *machine) {
	m.activeFrame.pc++
	m.pushI32(int32(truncChecked(m.popF64(), -2147483648, 2147483648)))
}

func i32TruncF64U(m *machine) {
	m.activeFrame.pc++
	m.pushU32(uint32(truncChecked(m.popF64(), 0, 4294967296)))
}

func i64ExtendI32S(m *machine) { m.activeFrame.pc++; m.pushI64(int64(m.popI32())) }
func i64ExtendI32U(m *machine) { m.activeFrame.pc++; m.pushU64(uint64(m.popU32())) }

func i64TruncF32S(m *machine) {
	m.activeFrame.pc++
	m.pushI64(int64(truncChecked(float64(m.popF32()), -9223372036854775808, 9223372036854775808)))
}

func i64TruncF32U(m *machine) {
	m.activeFrame.pc++
	m.pushU64(uint64(truncChecked(float64(m.popF32()), 0, 18446744073709551616)))
}

func i64TruncF64S(m *machine) {
	m.activeFrame.pc++
	m.pushI64(int64(truncChecked(m.popF64(), -9223372036854775808, 9223372036854775808)))
}

func i64TruncF64U(m *machine) {
	m.activeFrame.pc++
	m.pushU64(uint64(truncChecked(m.popF64(), 0, 18446744073709551616)))
}

func f32ConvertI32S(m *machine) { m.activeFrame.pc++; m.pushF32(float32(m.popI32())) }
func f32ConvertI32U(m *machine) { m.activeFrame.pc++; m.pushF32(float32(m.popU32())) }
func f32ConvertI64S(m *machine) { m.activeFrame.pc++; m.pushF32(float32(m.popI64())) }
func f32ConvertI64U(m *machine) { m.activeFrame.pc++; m.pushF32(float32(m.popU64())) }
func f32DemoteF64(m *machine)   { m.activeFrame.pc++; m.pushF32(float32(m.popF64())) }

func f64ConvertI32S(m *machine) { m.activeFrame.pc++; m.pushF64(float64(m.popI32())) }
func f64ConvertI32U(m *machine) { m.activeFrame.pc++; m.pushF64(float64(m.popU32())) }
func f64ConvertI64S(m *machine) { m.activeFrame.pc++; m.pushF64(float64(m.popI64())) }
func f64ConvertI64U(m *machine) { m.activeFrame.pc++; m.pushF64(float64(m.popU64())) }
func f64PromoteF32(m *machine)  { m.activeFrame.pc++; m.pushF64(float64(m.popF32())) }

// Reinterprets are no-ops on the raw stack representation.

func i32ReinterpretF32(m *machine) { m.activeFrame.pc++ }
func i64ReinterpretF64(m *machine) { m.activeFrame.pc++ }
func f32ReinterpretI32(m *machine) { m.activeFrame.pc++ }
func f64ReinterpretI64(m *machine) { m.activeFrame.pc++ }
