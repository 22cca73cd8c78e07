package gojabackend

import (
	"fmt"
	"math"

	"github.com/dop251/goja"

	"gosandbox/value"
)

// toGoja converts a wire Value into a goja.Value, following the
// conversion table of spec §6. Arrays become goja's native mutable list;
// nested arrays follow the same rule. Function values never reach this
// path (the wire encoder refuses them, and DefineFunction/the synthesized
// callback install Go closures directly).
func toGoja(vm *goja.Runtime, v value.Value) (goja.Value, error) {
	switch v.Kind() {
	case value.Void:
		return goja.Undefined(), nil
	case value.Int32:
		i, _ := v.Int32()
		return vm.ToValue(i), nil
	case value.Float32:
		f, _ := v.Float32()
		return vm.ToValue(f), nil
	case value.Bool:
		b, _ := v.Bool()
		return vm.ToValue(b), nil
	case value.String:
		s, _ := v.Text()
		return vm.ToValue(s), nil
	case value.Array:
		elems, _ := v.Elems()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			gv, err := toGoja(vm, e)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return vm.ToValue(out), nil
	default:
		return nil, fmt.Errorf("gojabackend: cannot convert %v to a script value", v.Kind())
	}
}

// toArgsSlice converts an Array-kind Value into the goja call-tuple shape
// (a plain []goja.Value) used to invoke a guest function (§6: "argument
// lists should be emitted as the runtime's call-tuple flavor").
func toArgsSlice(vm *goja.Runtime, args value.Value) ([]goja.Value, error) {
	elems, ok := args.Elems()
	if !ok {
		return nil, fmt.Errorf("gojabackend: call arguments must be an array value, got %v", args.Kind())
	}
	out := make([]goja.Value, len(elems))
	for i, e := range elems {
		gv, err := toGoja(vm, e)
		if err != nil {
			return nil, err
		}
		out[i] = gv
	}
	return out, nil
}

// fromGoja converts a goja.Value back into a wire Value, following the
// inverse of the §6 conversion table. JS has one numeric type; values goja
// exports as integers map to Int32, truncated to 32 bits; values exported
// as floats map to Int32 when integral and within the int32 range, and to
// Float32 otherwise, matching how the rest of the corpus (ProbeChain's
// PROBE VM integration) treats truncating numeric conversions at a
// language boundary.
func fromGoja(vm *goja.Runtime, gv goja.Value) (value.Value, error) {
	if gv == nil || goja.IsUndefined(gv) || goja.IsNull(gv) {
		return value.NewVoid(), nil
	}

	exported := gv.Export()
	switch x := exported.(type) {
	case int64:
		return int64ToValue(x), nil
	case float64:
		return float64ToValue(x), nil
	case bool:
		return value.NewBool(x), nil
	case string:
		if len(x) >= value.MaxStringLen {
			return value.Value{}, fmt.Errorf("gojabackend: result string too long (%d bytes)", len(x))
		}
		return value.NewStringFromGo(x), nil
	case []interface{}:
		if len(x) >= value.MaxArrayLen {
			return value.Value{}, fmt.Errorf("gojabackend: result array too long (%d elements)", len(x))
		}
		elems := make([]value.Value, len(x))
		for i, e := range x {
			ev, err := fromGoja(vm, vm.ToValue(e))
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = ev
		}
		return value.NewArray(elems), nil
	default:
		return value.Value{}, fmt.Errorf("gojabackend: unsupported script value of Go type %T", exported)
	}
}

func int64ToValue(i int64) value.Value {
	return value.NewInt32(int32(i))
}

func float64ToValue(f float64) value.Value {
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return value.NewInt32(int32(f))
	}
	return value.NewFloat32(float32(f))
}
