package session

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"talkback/backend"
	"talkback/log"
)

const DefaultPollInterval = 30 * time.Second

// CheckStatus polls /api/status and updates the status label.
func (c *Controller) CheckStatus(ctx context.Context) (string, error) {
	st, err := c.cfg.Backend.Status(ctx)
	if err != nil {
		log.Warnf("status check failed: %v", err)
		st = backend.Status{}
	}
	s := c.update(func(s State) State { return withStatus(s, st, err) })
	return s.StatusLabel, err
}

// PollStatus checks status every interval until ctx ends. The first
// check is one interval out; Bootstrap covers startup.
func (c *Controller) PollStatus(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = DefaultPollInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckStatus(ctx)
		}
	}
}

// Bootstrap runs the startup status check and settings fetch side by
// side. Neither failure is fatal: the controller keeps its defaults.
func (c *Controller) Bootstrap(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.CheckStatus(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.fetchSettings(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warnf("bootstrap: %v", err)
	}
}

// ResetSession asks for confirmation, clears the server-side memory and
// replaces the transcript with the greeting. Responses still in flight
// from before the reset are discarded when they land.
func (c *Controller) ResetSession(ctx context.Context) error {
	ok, err := c.cfg.Confirm.Confirm(ctx, ResetPrompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}
	if err := c.cfg.Backend.Reset(ctx); err != nil {
		log.Errorf("reset: %v", err)
		c.alert(AlertReset)
		return err
	}

	c.mu.Lock()
	c.epoch++
	c.playGen++
	c.state = withSpeaking(resetTranscript(c.state, c.cfg.Now()), false)
	s := c.state
	c.mu.Unlock()

	if c.cfg.Player != nil {
		c.cfg.Player.Stop()
	}
	c.cfg.Sink.StateChanged(s)
	log.Info("conversation reset")
	return nil
}
