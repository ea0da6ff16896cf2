package interp

import (
	"fmt"
	"math"
	"reflect"

	"github.com/wasmago/wago/wasm"
)

func call(m *machine) {
	fr := m.activeFrame
	fr.pc++
	idx := m.fetchUint32()

	mod := fr.f.ModuleInstance
	if idx >= uint32(len(mod.FunctionAddrs)) {
		panic(&wasm.InvariantViolationError{
			Message: fmt.Sprintf("function index %d out of range in %s", idx, mod.Name),
		})
	}
	m.callFunction(m.store.Functions[mod.FunctionAddrs[idx]])
}

func callIndirect(m *machine) {
	fr := m.activeFrame
	fr.pc++
	typeIdx := m.fetchUint32()
	fr.pc++ // reserved table index

	mod := fr.f.ModuleInstance
	if typeIdx >= uint32(len(mod.Types)) {
		panic(&wasm.InvariantViolationError{
			Message: fmt.Sprintf("type index %d out of range in %s", typeIdx, mod.Name),
		})
	}
	expected := mod.Types[typeIdx]

	if len(mod.TableAddrs) == 0 {
		panic(&wasm.InvariantViolationError{Message: "module has no table"})
	}
	table := m.store.Tables[mod.TableAddrs[0]]

	elemIdx := uint32(m.operands.pop())
	if elemIdx >= uint32(len(table.Table)) {
		panic(wasm.NewTrap(wasm.TrapCodeOutOfBoundsTableAccess))
	}
	addr := table.Table[elemIdx]
	if addr == nil {
		panic(wasm.NewTrap(wasm.TrapCodeUninitializedElement))
	}

	target := m.store.Functions[*addr]
	if !target.Signature.EqualsSignature(expected.Params, expected.Results) {
		panic(wasm.NewTrap(wasm.TrapCodeIndirectCallTypeMismatch))
	}
	m.callFunction(target)
}

var hostErrType = reflect.TypeOf((*error)(nil)).Elem()

// callHostFunction marshals operands into Go values, invokes the callback and
// pushes its results back. A non-nil trailing error becomes a trap carrying it
// as the cause.
func (m *machine) callHostFunction(f *wasm.FunctionInstance) {
	fn := *f.HostFunction
	tp := fn.Type()

	in := make([]reflect.Value, tp.NumIn())
	for i := tp.NumIn() - 1; i >= 1; i-- {
		raw := m.operands.pop()
		val := reflect.New(tp.In(i)).Elem()
		switch tp.In(i).Kind() {
		case reflect.Float32:
			val.SetFloat(float64(math.Float32frombits(uint32(raw))))
		case reflect.Float64:
			val.SetFloat(math.Float64frombits(raw))
		case reflect.Uint32:
			val.SetUint(uint64(uint32(raw)))
		case reflect.Uint64:
			val.SetUint(raw)
		case reflect.Int32:
			val.SetInt(int64(int32(uint32(raw))))
		case reflect.Int64:
			val.SetInt(int64(raw))
		default:
			panic(&wasm.InvariantViolationError{
				Message: fmt.Sprintf("host function %s has invalid param kind %s", f.Name, tp.In(i).Kind()),
			})
		}
		in[i] = val
	}

	ctx := &wasm.HostFunctionCallContext{}
	if caller := m.activeFrame; caller != nil {
		if mod := caller.f.ModuleInstance; len(mod.MemoryAddrs) > 0 {
			ctx.Memory = m.store.Memories[mod.MemoryAddrs[0]]
		}
	}
	in[0] = reflect.ValueOf(ctx)

	rets := fn.Call(in)

	if n := len(rets); n > 0 && tp.Out(n-1) == hostErrType {
		if !rets[n-1].IsNil() {
			panic(wasm.NewHostErrorTrap(rets[n-1].Interface().(error)))
		}
		rets = rets[:n-1]
	}
	for _, r := range rets {
		switch r.Kind() {
		case reflect.Float32:
			m.operands.push(uint64(math.Float32bits(float32(r.Float()))))
		case reflect.Float64:
			m.operands.push(math.Float64bits(r.Float()))
		case reflect.Uint32, reflect.Uint64:
			m.operands.push(r.Uint())
		case reflect.Int32:
			m.operands.push(uint64(uint32(r.Int())))
		case reflect.Int64:
			m.operands.push(uint64(r.Int()))
		default:
			panic(&wasm.InvariantViolationError{
				Message: fmt.Sprintf("host function %s has invalid result kind %s", f.Name, r.Kind()),
			})
		}
	}
}
