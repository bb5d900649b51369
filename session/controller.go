package session

import (
	"context"
	"sync"
	"time"

	"talkback/audio"
	"talkback/backend"
	"talkback/log"
)

// Backend is the assistant server as the controller uses it.
type Backend interface {
	Status(ctx context.Context) (backend.Status, error)
	Converse(ctx context.Context, audio []byte, filename string) (backend.Exchange, error)
	Chat(ctx context.Context, message string) (string, error)
	Synthesize(ctx context.Context, req backend.SynthesisRequest) (string, error)
	Settings(ctx context.Context) (backend.SettingsInfo, error)
	SaveSettings(ctx context.Context, s backend.Settings) error
	Reset(ctx context.Context) error
}

type Recorder interface {
	Start() error
	Stop() audio.Recording
	Active() bool
}

type Player interface {
	Play(wav []byte, onDone func(error)) error
	Stop()
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm answers yes without asking. Used by scripted sessions.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// EventSink receives every state change and every user-facing alert.
// Calls arrive from whichever goroutine made the change.
type EventSink interface {
	StateChanged(State)
	Alert(msg string)
}

type nopSink struct{}

func (nopSink) StateChanged(State) {}
func (nopSink) Alert(string)       {}

type Config struct {
	Backend  Backend
	Recorder Recorder
	Player   Player
	Confirm  Confirmer
	Sink     EventSink

	// Format is the upload encoding, "wav" or "flac".
	Format     string
	SampleRate uint32
	// Recordings shorter than MinDuration are dropped without a request.
	MinDuration time.Duration

	Now func() time.Time
}

// turn identifies one request/response exchange. epoch changes on every
// reset; seq grows with every exchange started.
type turn struct {
	seq   uint64
	epoch uint64
}

type Controller struct {
	cfg Config

	mu      sync.Mutex
	state   State
	seq     uint64
	epoch   uint64
	playGen uint64
	turns   int

	// serializes StartCapture/StopCapture so a press and release racing
	// each other see a consistent recorder
	captureMu sync.Mutex
}

func New(cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}
	if cfg.Confirm == nil {
		cfg.Confirm = AlwaysConfirm
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.MinDuration == 0 {
		cfg.MinDuration = 100 * time.Millisecond
	}
	return &Controller{cfg: cfg, state: NewState(cfg.Now())}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Transcript = append([]Entry(nil), c.state.Transcript...)
	return s
}

// Turns counts completed exchanges since start.
func (c *Controller) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turns
}

// update applies fn under the lock and publishes the result.
func (c *Controller) update(fn func(State) State) State {
	c.mu.Lock()
	c.state = fn(c.state)
	s := c.state
	c.mu.Unlock()
	c.cfg.Sink.StateChanged(s)
	return s
}

// begin opens a new exchange and applies fn in the same critical section.
func (c *Controller) begin(fn func(State) State) turn {
	c.mu.Lock()
	c.seq++
	t := turn{seq: c.seq, epoch: c.epoch}
	c.state = fn(c.state)
	s := c.state
	c.mu.Unlock()
	c.cfg.Sink.StateChanged(s)
	return t
}

// finish closes an exchange. fn runs only if no reset happened since t
// began; the returned latest reports whether t is still the newest
// exchange, which decides whether its audio may play.
func (c *Controller) finish(t turn, fn func(State) State) (applied, latest bool) {
	c.mu.Lock()
	applied = t.epoch == c.epoch
	if applied {
		c.state = fn(c.state)
		c.turns++
	}
	c.state = endBusy(c.state)
	latest = applied && t.seq == c.seq
	s := c.state
	c.mu.Unlock()
	c.cfg.Sink.StateChanged(s)
	if !applied {
		log.Warnf("dropped response from turn %d: conversation was reset", t.seq)
	}
	return applied, latest
}

func (c *Controller) current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) alert(msg string) {
	c.cfg.Sink.Alert(msg)
}

// playWAV hands audio to the player and tracks it as the one clip that
// may clear Speaking when it ends. A reply passes its turn: the clip is
// skipped unless that turn is still the newest of the current epoch,
// checked under the same lock a reset takes.
func (c *Controller) playWAV(wav []byte, t *turn) error {
	if c.cfg.Player == nil {
		return nil
	}
	c.mu.Lock()
	if t != nil && (t.epoch != c.epoch || t.seq != c.seq) {
		c.mu.Unlock()
		return nil
	}
	c.playGen++
	gen := c.playGen
	c.state = withSpeaking(c.state, true)
	s := c.state
	c.mu.Unlock()
	c.cfg.Sink.StateChanged(s)

	done := func() {
		c.update(func(s State) State {
			if c.playGen != gen {
				return s
			}
			return withSpeaking(s, false)
		})
	}
	err := c.cfg.Player.Play(wav, func(err error) {
		if err != nil {
			log.Warnf("playback: %v", err)
		}
		done()
	})
	if err != nil {
		done()
		return err
	}
	return nil
}

func (c *Controller) playBase64(b64 string, t *turn) error {
	wav, err := audio.DecodeBase64(b64)
	if err != nil {
		return err
	}
	return c.playWAV(wav, t)
}

// StopSpeaking silences whatever is playing.
func (c *Controller) StopSpeaking() {
	c.mu.Lock()
	c.playGen++
	c.mu.Unlock()
	if c.cfg.Player != nil {
		c.cfg.Player.Stop()
	}
	c.update(func(s State) State { return withSpeaking(s, false) })
}

// ToggleMode flips between hold-to-talk and typed input.
func (c *Controller) ToggleMode() {
	c.update(toggleMode)
}
