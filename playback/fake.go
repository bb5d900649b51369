package playback

import (
	"context"
	"sync"

	"talkback/audio"
)

// FakeSink records every clip it is asked to play. With Hold set, Play
// blocks until Release is called or the context is cancelled.
type FakeSink struct {
	Hold bool
	Err  error

	mu      sync.Mutex
	clips   []audio.Clip
	release chan struct{}
	started chan struct{}
}

func NewFakeSink() *FakeSink {
	return &FakeSink{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (f *FakeSink) Play(ctx context.Context, clip audio.Clip) error {
	f.mu.Lock()
	f.clips = append(f.clips, clip)
	release := f.release
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}

	if f.Hold {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.Err
}

func (f *FakeSink) Close() {}

// Started signals once per Play call.
func (f *FakeSink) Started() <-chan struct{} { return f.started }

// Release lets every held Play return as if its clip ran to the end.
func (f *FakeSink) Release() {
	f.mu.Lock()
	close(f.release)
	f.release = make(chan struct{})
	f.mu.Unlock()
}

func (f *FakeSink) Clips() []audio.Clip {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audio.Clip(nil), f.clips...)
}
