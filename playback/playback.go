package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"talkback/audio"
)

// Sink plays one clip to completion. Play blocks until the clip has been
// played or ctx is cancelled, in which case it returns ctx.Err().
type Sink interface {
	Play(ctx context.Context, clip audio.Clip) error
	Close()
}

// Player keeps at most one clip audible. Starting a clip stops the one
// before it.
type Player struct {
	sink Sink

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayer(sink Sink) *Player {
	return &Player{sink: sink}
}

// Play decodes a WAV buffer and starts it in the background. onDone runs
// when the clip ends on its own or the sink fails; it does not run after
// Stop or when a newer clip took over.
func (p *Player) Play(wav []byte, onDone func(error)) error {
	clip, err := audio.ParseWAV(wav)
	if err != nil {
		return err
	}
	return p.PlayClip(clip, onDone)
}

func (p *Player) PlayClip(clip audio.Clip, onDone func(error)) error {
	if p.sink == nil {
		return errors.New("no playback device")
	}
	if len(clip.Samples) == 0 {
		return fmt.Errorf("%w: empty clip", audio.ErrNoAudio)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	go func() {
		err := p.sink.Play(ctx, clip)
		finished := ctx.Err() == nil
		cancel()
		close(done)
		if finished && onDone != nil {
			onDone(err)
		}
	}()
	return nil
}

// Stop silences the current clip and waits for the sink to let go of it.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
