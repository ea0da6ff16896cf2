package wasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wasmago/wago/wasm/leb128"
)

// executeConstExpression evaluates a constant initializer against the
// partially-built target instance. Only the const instructions and global.get
// of an imported global are valid here; the validator certifies that.
func (s *Store) executeConstExpression(target *ModuleInstance, expr *ConstantExpression) (v interface{}, valueType ValueType, err error) {
	switch expr.Opcode {
	case OpcodeI32Const:
		v, _, err = leb128.DecodeInt32(expr.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("read i32: %w", err)
		}
		return v, ValueTypeI32, nil
	case OpcodeI64Const:
		v, _, err = leb128.DecodeInt64(expr.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("read i64: %w", err)
		}
		return v, ValueTypeI64, nil
	case OpcodeF32Const:
		if len(expr.Data) < 4 {
			return nil, 0, fmt.Errorf("read f32: %w", errConstExprTooShort)
		}
		v = math.Float32frombits(binary.LittleEndian.Uint32(expr.Data))
		return v, ValueTypeF32, nil
	case OpcodeF64Const:
		if len(expr.Data) < 8 {
			return nil, 0, fmt.Errorf("read f64: %w", errConstExprTooShort)
		}
		v = math.Float64frombits(binary.LittleEndian.Uint64(expr.Data))
		return v, ValueTypeF64, nil
	case OpcodeGlobalGet:
		id, _, err := leb128.DecodeUint32(expr.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("read global index: %w", err)
		}
		if uint32(len(target.GlobalAddrs)) <= id {
			return nil, 0, fmt.Errorf("global index out of range")
		}
		g := s.Globals[target.GlobalAddrs[id]]
		switch g.Type.ValType {
		case ValueTypeI32:
			return int32(g.Val), ValueTypeI32, nil
		case ValueTypeI64:
			return int64(g.Val), ValueTypeI64, nil
		case ValueTypeF32:
			return math.Float32frombits(uint32(g.Val)), ValueTypeF32, nil
		case ValueTypeF64:
			return math.Float64frombits(g.Val), ValueTypeF64, nil
		}
	}
	return nil, 0, fmt.Errorf("invalid const expression opcode: %#x", expr.Opcode)
}

var errConstExprTooShort = fmt.Errorf("const expression data too short")
