// Package gojabackend is the reference guest-language backend: it
// implements backend.Backend on top of github.com/dop251/goja, an
// embeddable ECMAScript runtime. It is the concrete collaborator the
// sandbox core is designed to be driven through (§1 "replaceable
// collaborator"), not part of the core itself.
package gojabackend

import (
	"fmt"

	"github.com/dop251/goja"

	"gosandbox/backend"
	"gosandbox/value"
)

// Backend wraps a goja.Runtime and satisfies backend.Backend.
type Backend struct {
	vm       *goja.Runtime
	reporter backend.ErrorReporter
	defined  map[string]bool
}

// New constructs a backend with a fresh goja runtime. reporter receives
// human-readable compile/runtime diagnostics (§6 "language_error"); it may
// be nil, in which case diagnostics are discarded.
func New(reporter backend.ErrorReporter) *Backend {
	return &Backend{
		vm:       goja.New(),
		reporter: reporter,
		defined:  make(map[string]bool),
	}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "goja" }

func (b *Backend) report(format string, args ...any) {
	if b.reporter != nil {
		b.reporter.ReportError(format, args...)
	}
}

// CompileScript implements backend.Backend. A parse error and a top-level
// evaluation error are both surfaced as a false result with a diagnostic;
// callers that need to distinguish parse-time from run-time failures can
// inspect the returned Go error, but the wire protocol only ever sees the
// boolean (§4.1, §7).
func (b *Backend) CompileScript(script []byte) (bool, error) {
	program, err := goja.Compile("guest", string(script), true)
	if err != nil {
		b.report("compile error: %v", err)
		return false, err
	}
	if _, err := b.vm.RunProgram(program); err != nil {
		b.report("runtime error during top-level evaluation: %v", err)
		return false, err
	}
	return true, nil
}

// IsFunction implements backend.Backend.
func (b *Backend) IsFunction(name string) bool {
	v := b.vm.Get(name)
	if v == nil {
		return false
	}
	_, ok := goja.AssertFunction(v)
	return ok
}

// CallFunction implements backend.Backend.
func (b *Backend) CallFunction(name string, args value.Value) (value.Value, error) {
	v := b.vm.Get(name)
	if v == nil {
		b.report("call_function: %q is not defined", name)
		return value.NewVoid(), fmt.Errorf("gojabackend: %q is not defined", name)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		b.report("call_function: %q is not callable", name)
		return value.NewVoid(), fmt.Errorf("gojabackend: %q is not callable", name)
	}

	callArgs, err := toArgsSlice(b.vm, args)
	if err != nil {
		b.report("call_function: %v", err)
		return value.NewVoid(), err
	}

	result, err := fn(goja.Undefined(), callArgs...)
	if err != nil {
		b.report("runtime error in %q: %v", name, err)
		return value.NewVoid(), err
	}

	ret, err := fromGoja(b.vm, result)
	if err != nil {
		b.report("call_function: converting result of %q: %v", name, err)
		return value.NewVoid(), err
	}
	return ret, nil
}

// DefineConstant implements backend.Backend.
func (b *Backend) DefineConstant(name string, v value.Value) error {
	gv, err := toGoja(b.vm, v)
	if err != nil {
		return err
	}
	return b.vm.Set(name, gv)
}

// DefineFunction implements backend.Backend. Re-defining an existing name
// is an error; the prior binding is left untouched.
func (b *Backend) DefineFunction(name string, fn backend.HostFunc) error {
	if b.defined[name] {
		return fmt.Errorf("gojabackend: function %q already defined", name)
	}

	wrapped := func(call goja.FunctionCall) goja.Value {
		elems := make([]value.Value, len(call.Arguments))
		for i, a := range call.Arguments {
			v, err := fromGoja(b.vm, a)
			if err != nil {
				panic(b.vm.NewGoError(err))
			}
			elems[i] = v
		}
		ret, err := fn(value.NewArray(elems))
		if err != nil {
			panic(b.vm.NewGoError(err))
		}
		gv, err := toGoja(b.vm, ret)
		if err != nil {
			panic(b.vm.NewGoError(err))
		}
		return gv
	}

	if err := b.vm.Set(name, wrapped); err != nil {
		return err
	}
	b.defined[name] = true
	return nil
}

// Destroy implements backend.Backend.
func (b *Backend) Destroy() error {
	b.vm.ClearInterrupt()
	return nil
}
