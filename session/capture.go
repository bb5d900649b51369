package session

import (
	"context"
	"errors"
	"fmt"

	"talkback/audio"
	"talkback/encoder"
	"talkback/log"
)

// StartCapture opens the microphone and starts buffering. It is a no-op
// while a recording is already running.
func (c *Controller) StartCapture(ctx context.Context) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()

	if c.cfg.Recorder == nil {
		c.alert(AlertMicrophone)
		return fmt.Errorf("%w: no microphone configured", audio.ErrPermissionDenied)
	}
	if c.cfg.Recorder.Active() {
		return nil
	}
	if err := c.cfg.Recorder.Start(); err != nil {
		log.Errorf("start capture: %v", err)
		c.alert(AlertMicrophone)
		c.update(func(s State) State { return withPhase(s, Idle) })
		return err
	}
	c.update(func(s State) State { return withPhase(s, Recording) })
	return nil
}

// StopCapture finalizes the recording and submits it. It is a no-op when
// nothing is being recorded. Recordings with no audio, or shorter than
// the configured minimum, are dropped without a request.
func (c *Controller) StopCapture(ctx context.Context) error {
	c.captureMu.Lock()
	if c.cfg.Recorder == nil || !c.cfg.Recorder.Active() {
		c.captureMu.Unlock()
		return nil
	}
	rec := c.cfg.Recorder.Stop()
	c.update(func(s State) State { return withPhase(s, Submitting) })
	c.captureMu.Unlock()

	defer c.update(func(s State) State {
		if s.Phase == Submitting {
			return withPhase(s, Idle)
		}
		return s
	})

	if len(rec.Chunks) == 0 || rec.Duration(c.cfg.SampleRate) < c.cfg.MinDuration {
		log.Infof("discarding recording: %d chunks, %v", len(rec.Chunks), rec.Duration(c.cfg.SampleRate))
		return nil
	}

	pcm := rec.PCM()
	up, err := encoder.Encode(c.cfg.Format, pcm)
	if err != nil {
		log.Errorf("encode recording: %v", err)
		c.update(func(s State) State { return appendEntries(s, noticeEntry(VoiceErrorNotice, c.cfg.Now())) })
		return fmt.Errorf("encoding recording: %w", err)
	}
	log.Recording(rec.Duration(c.cfg.SampleRate).Seconds(), float64(len(pcm))/1024, float64(len(up.Data))/1024, c.cfg.Format, up.Took)

	return c.SubmitAudio(ctx, up.Data)
}

// SubmitAudio posts one encoded utterance. Success appends the
// transcription and the reply and plays the spoken reply. Failure appends
// a single apology and changes nothing else.
func (c *Controller) SubmitAudio(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return audio.ErrNoAudio
	}
	t := c.begin(func(s State) State { return beginBusy(s, BusyVoice) })

	ex, err := c.cfg.Backend.Converse(ctx, payload, encoder.Filename(c.cfg.Format))
	now := c.cfg.Now()

	if err != nil {
		log.Errorf("conversation: %v", err)
		c.finish(t, func(s State) State { return appendEntries(s, noticeEntry(VoiceErrorNotice, now)) })
		return fmt.Errorf("conversation: %w", err)
	}

	applied, latest := c.finish(t, func(s State) State {
		return appendEntries(s, userEntry(ex.UserText, now), assistantEntry(ex.AssistantResponse, now))
	})
	if !applied {
		return nil
	}
	log.Exchange(User.String(), ex.UserText)
	log.Exchange(Assistant.String(), ex.AssistantResponse)

	if ex.Audio == "" || !latest {
		return nil
	}
	if err := c.playBase64(ex.Audio, &t); err != nil && !errors.Is(err, audio.ErrNoAudio) {
		log.Warnf("play reply: %v", err)
	}
	return nil
}

// PageHidden is sent when the terminal loses the session (suspend,
// shutdown). An active recording is stopped and submitted.
func (c *Controller) PageHidden(ctx context.Context) error {
	return c.StopCapture(ctx)
}
