package hotkey

import (
	"context"
	"sync/atomic"
	"time"
)

// Hybrid turns raw press/release events into recording start/stop signals.
// A press always starts recording. Held past the threshold, release stops
// it (push-to-talk); released sooner, recording continues until the next
// press is released (toggle).
type Hybrid struct {
	start  chan struct{}
	stop   chan struct{}
	toggle atomic.Bool
}

const DefaultLongPress = 300 * time.Millisecond

func NewHybrid(ctx context.Context, hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		start: make(chan struct{}, 1),
		stop:  make(chan struct{}, 1),
	}
	go h.run(ctx, hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan struct{} { return h.start }
func (h *Hybrid) Stop() <-chan struct{}  { return h.stop }

// IsToggle reports whether the current recording was started with a tap.
func (h *Hybrid) IsToggle() bool { return h.toggle.Load() }

func (h *Hybrid) run(ctx context.Context, hk Hotkey, longPress time.Duration) {
	wait := func(ch <-chan struct{}) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ch:
			return true
		}
	}

	for {
		if !wait(hk.Keydown()) {
			return
		}
		h.toggle.Store(false)
		notify(h.start)

		timer := time.NewTimer(longPress)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if !wait(hk.Keyup()) {
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			h.toggle.Store(true)
			if !wait(hk.Keydown()) || !wait(hk.Keyup()) {
				return
			}
		}
		notify(h.stop)
	}
}
