package wire

import (
	"context"
	"errors"
	"io"
)

// ErrTimeout is returned when a bounded read does not complete before its
// context deadline.
var ErrTimeout = errors.New("wire: read timed out")

// readFull reads exactly len(buf) bytes from r, honoring ctx cancellation.
// The child side always calls this with context.Background() (unbounded,
// per §5 — the child trusts its parent); the parent side derives a
// context.WithTimeout from its configured per-proxy timeout.
//
// Plain os.File pipes don't support read deadlines on every platform, so
// the bound is enforced by running the blocking read in a goroutine and
// racing it against ctx.Done() rather than relying on SetReadDeadline.
// The reader goroutine may outlive the timeout (the underlying read is
// not interrupted) but its result is discarded; this mirrors the source's
// documented stance that a timeout does not kill the child, only aborts
// the caller's wait (§4.3, §5).
func readFull(ctx context.Context, r io.Reader, buf []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if deadline, ok := ctx.Deadline(); !ok || deadline.IsZero() {
		// No deadline: skip the goroutine indirection.
		if len(buf) == 0 {
			return nil
		}
		_, err := io.ReadFull(r, buf)
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(r, buf)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrTimeout
	}
}

func writeFull(w io.Writer, buf []byte) error {
	_, err := w.Write(buf)
	return err
}
