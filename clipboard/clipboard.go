// Package clipboard copies text to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

var ErrTimeout = errors.New("clipboard timed out")

// Unsupported is true when no clipboard tool (xclip, xsel, wl-copy) exists.
func Unsupported() bool { return cb.Unsupported }

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// CopyWithin is Copy bounded by d. The helper tools block forever when
// they cannot reach a display server.
func CopyWithin(text string, d time.Duration) error {
	ch := make(chan error, 1)
	go func() { ch <- Copy(text) }()
	select {
	case err := <-ch:
		return err
	case <-time.After(d):
		return ErrTimeout
	}
}

// Verify round-trips a marker through the clipboard.
func Verify(d time.Duration) (string, error) {
	marker := fmt.Sprintf("talkback-doctor-%d", time.Now().UnixNano())
	type result struct {
		got   string
		err   error
		phase string
	}
	ch := make(chan result, 1)
	go func() {
		if err := Copy(marker); err != nil {
			ch <- result{err: err, phase: "write"}
			return
		}
		got, err := Read()
		ch <- result{got: got, err: err, phase: "read"}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("clipboard %s: %w", r.phase, r.err)
		}
		if r.got != marker {
			return "", fmt.Errorf("clipboard mismatch: wrote %q, got %q", marker, r.got)
		}
		return "clipboard write/read verified", nil
	case <-time.After(d):
		return "", ErrTimeout
	}
}
