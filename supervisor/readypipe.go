package supervisor

import (
	"fmt"
	"os"
)

// ReadyPipe is a one-shot parent/child handshake pipe, adapted from the
// teacher's utils.SyncPipe: the guest signals it across the re-exec
// boundary once sandbox lockdown has actually completed, so the
// supervisor never starts writing wire opcodes to a child that hasn't
// finished entering seccomp yet. SignalError additionally carries a
// lockdown failure message back to the parent, something a bare pipe
// close can't express.
type ReadyPipe struct {
	parent *os.File
	child  *os.File
}

// NewReadyPipe creates a new handshake pipe.
func NewReadyPipe() (*ReadyPipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: ready pipe: %w", err)
	}
	return &ReadyPipe{parent: r, child: w}, nil
}

// NewReadyPipeChild wraps an inherited file descriptor as the child end
// of a ReadyPipe, for use by the re-exec'd guest-init process, which
// receives the child end as an inherited fd rather than constructing the
// pipe itself.
func NewReadyPipeChild(f *os.File) *ReadyPipe {
	return &ReadyPipe{child: f}
}

// ParentFile returns the parent (reading) end.
func (s *ReadyPipe) ParentFile() *os.File { return s.parent }

// ChildFile returns the child (writing) end.
func (s *ReadyPipe) ChildFile() *os.File { return s.child }

// CloseParent closes the parent end.
func (s *ReadyPipe) CloseParent() error {
	if s.parent != nil {
		return s.parent.Close()
	}
	return nil
}

// CloseChild closes the child end.
func (s *ReadyPipe) CloseChild() error {
	if s.child != nil {
		return s.child.Close()
	}
	return nil
}

// WaitReady blocks on the parent end for one signal byte. A zero byte
// means lockdown succeeded; a nonzero byte is followed by an error
// message read from the rest of the pipe.
func (s *ReadyPipe) WaitReady() error {
	buf := make([]byte, 1)
	if _, err := s.parent.Read(buf); err != nil {
		return fmt.Errorf("supervisor: waiting for guest ready signal: %w", err)
	}
	if buf[0] == 0 {
		return nil
	}
	msg := make([]byte, 4096)
	n, _ := s.parent.Read(msg)
	return fmt.Errorf("supervisor: guest lockdown failed: %s", string(msg[:n]))
}

// SignalReady tells the parent that lockdown succeeded.
func (s *ReadyPipe) SignalReady() error {
	_, err := s.child.Write([]byte{0})
	return err
}

// SignalError tells the parent that lockdown failed, with a message.
func (s *ReadyPipe) SignalError(cause error) error {
	if _, err := s.child.Write([]byte{1}); err != nil {
		return err
	}
	_, err := s.child.Write([]byte(cause.Error()))
	return err
}
