// Package hotkey delivers press and release events for the global
// push-to-talk combination (Ctrl+Shift+Space).
package hotkey

const Combo = "ctrl+shift+space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// notify does a non-blocking send; a pending event is enough.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
