// Package guestproc implements the child side of the sandboxed guest
// script protocol: a dispatch loop that reads opcodes off the parent pipe,
// drives a backend.Backend, and replies on the outbound pipe. It is
// grounded in the original cagekeeper implementation's child_loop and
// proxy_function_call (language_proxy.c).
package guestproc

import (
	"context"
	"fmt"
	"log/slog"

	"gosandbox/backend"
	"gosandbox/value"
	"gosandbox/wire"
)

// Loop runs the guest dispatch loop against a single backend.Backend,
// reading opcodes from in and writing replies to out.
type Loop struct {
	in      *wire.Reader
	out     *wire.Writer
	backend backend.Backend
	logger  *slog.Logger
}

// New constructs a Loop. logger may be nil.
func New(in *wire.Reader, out *wire.Writer, be backend.Backend, logger *slog.Logger) *Loop {
	return &Loop{in: in, out: out, backend: be, logger: logger}
}

func (l *Loop) logf(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

// Run reads and dispatches opcodes until ctx is done or the read side
// returns an error (the parent closed its write end, or the pipe broke).
// Per §5, a child mid-call never imposes its own timeout on a parent read:
// ctx bounds the reads of each command (its opcode and its payload) but
// not the wait for a callback reply, and callers normally pass
// context.Background().
func (l *Loop) Run(ctx context.Context) error {
	for {
		op, err := l.in.ReadByte(ctx)
		if err != nil {
			return fmt.Errorf("guestproc: read opcode: %w", err)
		}

		l.logf("dispatch", slog.Int("opcode", int(op)))

		switch op {
		case wire.OpDefineConstant:
			if err := l.handleDefineConstant(ctx); err != nil {
				return err
			}
		case wire.OpDefineFunction:
			if err := l.handleDefineFunction(ctx); err != nil {
				return err
			}
		case wire.OpCompileScript:
			if err := l.handleCompileScript(ctx); err != nil {
				return err
			}
		case wire.OpIsFunction:
			if err := l.handleIsFunction(ctx); err != nil {
				return err
			}
		case wire.OpCallFunction:
			if err := l.handleCallFunction(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("guestproc: invalid opcode %d", op)
		}
	}
}

func (l *Loop) handleDefineConstant(ctx context.Context) error {
	name, err := l.in.ReadString(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read constant name: %w", err)
	}
	v, err := l.in.ReadValue(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read constant value: %w", err)
	}
	l.logf("define constant", slog.String("name", name))
	return l.backend.DefineConstant(name, v)
}

func (l *Loop) handleDefineFunction(ctx context.Context) error {
	name, err := l.in.ReadString(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read function name: %w", err)
	}
	l.logf("define function", slog.String("name", name))
	return l.backend.DefineFunction(name, l.callbackFunc(name))
}

// callbackFunc synthesizes the proxy_function_call counterpart: invoking
// the guest-visible function sends RESP_CALLBACK+name+args on the
// outbound pipe and blocks, unbounded, for one value reply.
func (l *Loop) callbackFunc(name string) backend.HostFunc {
	return func(args value.Value) (value.Value, error) {
		if err := l.out.WriteByte(wire.OpRespCallback); err != nil {
			return value.Value{}, fmt.Errorf("guestproc: write RESP_CALLBACK: %w", err)
		}
		if err := l.out.WriteString(name); err != nil {
			return value.Value{}, fmt.Errorf("guestproc: write callback name: %w", err)
		}
		if err := l.out.WriteValue(args); err != nil {
			return value.Value{}, fmt.Errorf("guestproc: write callback args: %w", err)
		}
		ret, err := l.in.ReadValue(context.Background())
		if err != nil {
			return value.Value{}, fmt.Errorf("guestproc: read callback result: %w", err)
		}
		return ret, nil
	}
}

func (l *Loop) handleCompileScript(ctx context.Context) error {
	script, err := l.in.ReadString(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read script: %w", err)
	}
	l.logf("compile script")
	ok, compileErr := l.backend.CompileScript([]byte(script))
	if compileErr != nil {
		l.logf("compile error", slog.String("error", compileErr.Error()))
	}
	if err := l.out.WriteByte(wire.OpRespReturn); err != nil {
		return fmt.Errorf("guestproc: write RESP_RETURN: %w", err)
	}
	return l.writeBool(ok)
}

func (l *Loop) handleIsFunction(ctx context.Context) error {
	name, err := l.in.ReadString(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read function name: %w", err)
	}
	l.logf("is_function", slog.String("name", name))
	return l.writeBool(l.backend.IsFunction(name))
}

func (l *Loop) handleCallFunction(ctx context.Context) error {
	name, err := l.in.ReadString(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read function name: %w", err)
	}
	args, err := l.in.ReadValue(ctx)
	if err != nil {
		return fmt.Errorf("guestproc: read call args: %w", err)
	}
	l.logf("call_function", slog.String("name", name))
	ret, callErr := l.backend.CallFunction(name, args)
	if callErr != nil {
		l.logf("call error", slog.String("error", callErr.Error()))
		ret = value.NewVoid()
	}
	if err := l.out.WriteByte(wire.OpRespReturn); err != nil {
		return fmt.Errorf("guestproc: write RESP_RETURN: %w", err)
	}
	return l.out.WriteValue(ret)
}

func (l *Loop) writeBool(b bool) error {
	var bb byte
	if b {
		bb = 1
	}
	return l.out.WriteByte(bb)
}
