// Package hostproxy implements the host (parent) side of the sandboxed
// guest script protocol: it satisfies backend.Backend by forwarding every
// call across the wire to a child process running guestproc.Loop, pumping
// host callbacks in between, and enforcing the re-entrancy rule of §5.
// It is grounded in the original cagekeeper proxy functions
// (language_proxy.c: compile_script_proxy, is_function_proxy,
// call_function_proxy, define_constant_proxy, define_function_proxy,
// process_callbacks).
package hostproxy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gosandbox/backend"
	"gosandbox/rterrors"
	"gosandbox/value"
	"gosandbox/wire"
)

// Proxy drives a single child process over a pair of pipes. It satisfies
// backend.Backend so callers can treat a sandboxed guest exactly like an
// in-process backend.
type Proxy struct {
	out *wire.Writer
	in  *wire.Reader

	timeout time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	inCall    bool
	poisoned  error
	callbacks map[string]backend.HostFunc
}

// New constructs a Proxy writing to out and reading from in (the ends of
// the anonymous pipes connected to the sandboxed child). timeout sets one
// read deadline per top-level operation, shared by all of its reads
// (callback pump included); writes are not bounded. logger may be nil.
func New(out *wire.Writer, in *wire.Reader, timeout time.Duration, logger *slog.Logger) *Proxy {
	return &Proxy{
		out:       out,
		in:        in,
		timeout:   timeout,
		logger:    logger,
		callbacks: make(map[string]backend.HostFunc),
	}
}

// Name implements backend.Backend.
func (p *Proxy) Name() string { return "hostproxy" }

func (p *Proxy) ctx() (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), p.timeout)
}

// poison permanently fails the proxy after a protocol-level error (§9 Open
// Question (b): there is no way to resynchronize a corrupted wire). It
// returns a RuntimeError that wraps the immediate cause for logging, while
// every later call observes rterrors.ErrProxyPoisoned.
func (p *Proxy) poison(op string, err error) error {
	p.mu.Lock()
	if p.poisoned == nil {
		p.poisoned = rterrors.ErrProxyPoisoned
		if p.logger != nil {
			p.logger.Error("proxy poisoned", slog.String("op", op), slog.Any("error", err))
		}
	}
	p.mu.Unlock()
	return rterrors.WrapWithDetail(err, rterrors.KindIPC, op, "proxy poisoned by this error")
}

func (p *Proxy) checkPoisoned() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poisoned
}

// enterCall enforces the single-slot re-entrancy guard of §5: a host
// callback invoked from within process_callbacks must not start a new
// top-level guest operation. On violation it returns without touching the
// wire at all.
func (p *Proxy) enterCall() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.poisoned != nil {
		return p.poisoned
	}
	if p.inCall {
		return rterrors.ErrReentrant
	}
	p.inCall = true
	return nil
}

func (p *Proxy) exitCall() {
	p.mu.Lock()
	p.inCall = false
	p.mu.Unlock()
}

// processCallbacks pumps RESP_CALLBACK frames, invoking the matching
// registered host function and writing its result back, until a
// RESP_RETURN tag is consumed (the opcode only; the caller reads whatever
// payload follows it, since different operations follow RESP_RETURN with
// different shapes).
func (p *Proxy) processCallbacks(ctx context.Context) error {
	for {
		resp, err := p.in.ReadByte(ctx)
		if err != nil {
			return err
		}

		switch resp {
		case wire.OpRespCallback:
			name, err := p.in.ReadString(ctx)
			if err != nil {
				return err
			}
			args, err := p.in.ReadValue(ctx)
			if err != nil {
				return err
			}

			p.mu.Lock()
			fn, ok := p.callbacks[name]
			p.mu.Unlock()
			if !ok {
				return fmt.Errorf("%w: %q", rterrors.ErrUnknownCallback, name)
			}

			ret, callErr := fn(args)
			if callErr != nil {
				if p.logger != nil {
					p.logger.Warn("host callback returned an error", slog.String("name", name), slog.Any("error", callErr))
				}
				ret = value.NewVoid()
			}
			if err := p.out.WriteValue(ret); err != nil {
				return err
			}
		case wire.OpRespReturn:
			return nil
		default:
			return fmt.Errorf("hostproxy: unexpected response tag %d", resp)
		}
	}
}

// CompileScript implements backend.Backend.
func (p *Proxy) CompileScript(script []byte) (bool, error) {
	if err := p.enterCall(); err != nil {
		return false, err
	}
	defer p.exitCall()

	ctx, cancel := p.ctx()
	defer cancel()

	if err := p.out.WriteByte(wire.OpCompileScript); err != nil {
		return false, p.poison("compile_script", err)
	}
	if err := p.out.WriteString(string(script)); err != nil {
		return false, p.poison("compile_script", err)
	}
	if err := p.processCallbacks(ctx); err != nil {
		return false, p.poison("compile_script", err)
	}
	b, err := p.in.ReadByte(ctx)
	if err != nil {
		return false, p.poison("compile_script", err)
	}
	return b != 0, nil
}

// IsFunction implements backend.Backend. Mirroring the original proxy,
// this does not pump callbacks or participate in the re-entrancy guard:
// the guest never calls back out during a pure lookup.
func (p *Proxy) IsFunction(name string) bool {
	if p.checkPoisoned() != nil {
		return false
	}
	ctx, cancel := p.ctx()
	defer cancel()

	if err := p.out.WriteByte(wire.OpIsFunction); err != nil {
		p.poison("is_function", err)
		return false
	}
	if err := p.out.WriteString(name); err != nil {
		p.poison("is_function", err)
		return false
	}
	b, err := p.in.ReadByte(ctx)
	if err != nil {
		p.poison("is_function", err)
		return false
	}
	return b != 0
}

// CallFunction implements backend.Backend.
func (p *Proxy) CallFunction(name string, args value.Value) (value.Value, error) {
	if err := p.enterCall(); err != nil {
		return value.Value{}, err
	}
	defer p.exitCall()

	ctx, cancel := p.ctx()
	defer cancel()

	if err := p.out.WriteByte(wire.OpCallFunction); err != nil {
		return value.Value{}, p.poison("call_function", err)
	}
	if err := p.out.WriteString(name); err != nil {
		return value.Value{}, p.poison("call_function", err)
	}
	if err := p.out.WriteValue(args); err != nil {
		return value.Value{}, p.poison("call_function", err)
	}
	if err := p.processCallbacks(ctx); err != nil {
		return value.Value{}, p.poison("call_function", err)
	}
	ret, err := p.in.ReadValue(ctx)
	if err != nil {
		return value.Value{}, p.poison("call_function", err)
	}
	return ret, nil
}

// DefineConstant implements backend.Backend.
func (p *Proxy) DefineConstant(name string, v value.Value) error {
	if err := p.checkPoisoned(); err != nil {
		return err
	}
	if err := p.out.WriteByte(wire.OpDefineConstant); err != nil {
		return p.poison("define_constant", err)
	}
	if err := p.out.WriteString(name); err != nil {
		return p.poison("define_constant", err)
	}
	if err := p.out.WriteValue(v); err != nil {
		return p.poison("define_constant", err)
	}
	return nil
}

// DefineFunction implements backend.Backend. Unlike the original, a
// duplicate name is rejected before anything is written to the wire.
func (p *Proxy) DefineFunction(name string, fn backend.HostFunc) error {
	if err := p.checkPoisoned(); err != nil {
		return err
	}

	p.mu.Lock()
	if _, exists := p.callbacks[name]; exists {
		p.mu.Unlock()
		return fmt.Errorf("%w: %q", rterrors.ErrDuplicateCallback, name)
	}
	p.callbacks[name] = fn
	p.mu.Unlock()

	if err := p.out.WriteByte(wire.OpDefineFunction); err != nil {
		return p.poison("define_function", err)
	}
	if err := p.out.WriteString(name); err != nil {
		return p.poison("define_function", err)
	}
	return nil
}

// Destroy implements backend.Backend. It does not touch the child process
// itself (that lifecycle belongs to the supervisor package); it only
// retires the proxy so any further call returns an error.
func (p *Proxy) Destroy() error {
	p.mu.Lock()
	if p.poisoned == nil {
		p.poisoned = rterrors.ErrProxyPoisoned
	}
	p.mu.Unlock()
	return nil
}
