package interp

import (
	"fmt"

	"github.com/wasmago/wago/wasm"
	"github.com/wasmago/wago/wasm/leb128"
)

// Compile implements wasm.Engine. For module functions it scans the body once
// to bracket every block, loop and if with its else/end offsets, which is all
// the branch handlers need at run time. Host functions have nothing to
// prepare.
func (e *Engine) Compile(f *wasm.FunctionInstance) error {
	if f.HostFunction != nil {
		return nil
	}
	blocks, err := analyzeBlocks(f)
	if err != nil {
		return fmt.Errorf("compile %s: %w", f.Name, err)
	}
	f.Blocks = blocks
	return nil
}

func analyzeBlocks(f *wasm.FunctionInstance) (map[uint64]*wasm.FunctionBlock, error) {
	blocks := map[uint64]*wasm.FunctionBlock{}
	var open []*wasm.FunctionBlock
	body := f.Body

	for pc := uint64(0); pc < uint64(len(body)); pc++ {
		op := body[pc]
		switch op {
		case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf:
			bt, btBytes, err := decodeBlockType(f, body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("block type at pc=%d: %w", pc, err)
			}
			b := &wasm.FunctionBlock{
				StartAt:        pc,
				BlockType:      bt,
				BlockTypeBytes: btBytes,
				IsLoop:         op == wasm.OpcodeLoop,
				IsIf:           op == wasm.OpcodeIf,
			}
			blocks[pc] = b
			open = append(open, b)
			pc += btBytes
		case wasm.OpcodeElse:
			if len(open) == 0 || !open[len(open)-1].IsIf {
				return nil, fmt.Errorf("else outside if at pc=%d", pc)
			}
			open[len(open)-1].ElseAt = pc
		case wasm.OpcodeEnd:
			if len(open) == 0 {
				// Terminates the function body itself.
				continue
			}
			b := open[len(open)-1]
			open = open[:len(open)-1]
			b.EndAt = pc
			// An if without an else still needs a jump target for the false
			// case. Aiming just before end lands on the end opcode, which
			// unwinds the label as the then arm would.
			if b.IsIf && b.ElseAt == 0 {
				b.ElseAt = pc - 1
			}
		default:
			n, err := immediateWidth(op, body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("opcode %#x at pc=%d: %w", op, pc, err)
			}
			pc += n
		}
	}
	if len(open) != 0 {
		return nil, fmt.Errorf("%d unclosed blocks", len(open))
	}
	return blocks, nil
}

// decodeBlockType resolves a block-type immediate: a negative shorthand for
// empty or a single value type, or a non-negative index into the module's
// types.
func decodeBlockType(f *wasm.FunctionInstance, buf []byte) (*wasm.FunctionType, uint64, error) {
	raw, num, err := leb128.DecodeInt33AsInt64(buf)
	if err != nil {
		return nil, 0, err
	}
	switch raw {
	case -64: // empty
		return &wasm.FunctionType{}, num, nil
	case -1:
		return &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}, num, nil
	case -2:
		return &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI64}}, num, nil
	case -3:
		return &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeF32}}, num, nil
	case -4:
		return &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeF64}}, num, nil
	default:
		if raw < 0 || raw >= int64(len(f.ModuleInstance.Types)) {
			return nil, 0, fmt.Errorf("invalid block type: %d", raw)
		}
		return f.ModuleInstance.Types[raw], num, nil
	}
}

// immediateWidth returns the byte width of op's immediates, decoding from buf
// where the width is not fixed. op must not be a structured control opcode;
// those are handled by the scan loop directly.
func immediateWidth(op byte, buf []byte) (uint64, error) {
	switch op {
	case wasm.OpcodeUnreachable, wasm.OpcodeNop, wasm.OpcodeReturn,
		wasm.OpcodeDrop, wasm.OpcodeSelect:
		return 0, nil
	case wasm.OpcodeBr, wasm.OpcodeBrIf, wasm.OpcodeCall,
		wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee,
		wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet:
		_, n, err := leb128.DecodeUint32(buf)
		return n, err
	case wasm.OpcodeBrTable:
		count, n, err := leb128.DecodeUint32(buf)
		if err != nil {
			return 0, err
		}
		total := n
		for i := uint32(0); i <= count; i++ { // targets plus the default
			_, n, err := leb128.DecodeUint32(buf[total:])
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	case wasm.OpcodeCallIndirect:
		_, n, err := leb128.DecodeUint32(buf)
		if err != nil {
			return 0, err
		}
		return n + 1, nil // type index plus the reserved table byte
	case wasm.OpcodeI32Const:
		_, n, err := leb128.DecodeInt32(buf)
		return n, err
	case wasm.OpcodeI64Const:
		_, n, err := leb128.DecodeInt64(buf)
		return n, err
	case wasm.OpcodeF32Const:
		return 4, nil
	case wasm.OpcodeF64Const:
		return 8, nil
	case wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
		return 1, nil // reserved memory index byte
	}

	// Loads and stores carry alignment and offset immediates.
	if op >= wasm.OpcodeI32Load && op <= wasm.OpcodeI64Store32 {
		_, n1, err := leb128.DecodeUint32(buf)
		if err != nil {
			return 0, err
		}
		_, n2, err := leb128.DecodeUint32(buf[n1:])
		if err != nil {
			return 0, err
		}
		return n1 + n2, nil
	}

	// Numeric operations have no immediates.
	if op >= wasm.OpcodeI32Eqz && op <= wasm.OpcodeF64ReinterpretI64 {
		return 0, nil
	}
	return 0, fmt.Errorf("unsupported instruction")
}
