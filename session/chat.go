package session

import (
	"context"
	"fmt"
	"strings"

	"talkback/audio"
	"talkback/backend"
	"talkback/log"
)

// SubmitText sends a typed message. The user entry appears before the
// request goes out; the reply is appended, then synthesized with the
// current voice and played. Blank messages are rejected without a request.
func (c *Controller) SubmitText(ctx context.Context, message string) error {
	text := strings.TrimSpace(message)
	if text == "" {
		return ErrEmptyMessage
	}

	now := c.cfg.Now()
	t := c.begin(func(s State) State {
		return beginBusy(appendEntries(s, userEntry(text, now)), BusyText)
	})
	log.Exchange(User.String(), text)

	reply, err := c.cfg.Backend.Chat(ctx, text)
	now = c.cfg.Now()
	if err != nil {
		log.Errorf("chat: %v", err)
		c.finish(t, func(s State) State { return appendEntries(s, noticeEntry(TextErrorNotice, now)) })
		return fmt.Errorf("chat: %w", err)
	}

	applied, _ := c.finish(t, func(s State) State { return appendEntries(s, assistantEntry(reply, now)) })
	if !applied {
		return nil
	}
	log.Exchange(Assistant.String(), reply)

	settings := c.current().Settings
	wav, err := c.Synthesize(ctx, reply, settings.Voice, settings.Speed)
	if err != nil {
		// the reply is already on screen; missing speech is not worth an alert
		log.Warnf("speak reply: %v", err)
		return nil
	}
	if err := c.playWAV(wav, &t); err != nil {
		log.Warnf("play reply: %v", err)
	}
	return nil
}

// Synthesize returns WAV bytes for text spoken with voice at speed.
func (c *Controller) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	b64, err := c.cfg.Backend.Synthesize(ctx, backend.SynthesisRequest{Text: text, Voice: voice, Speed: speed})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	wav, err := audio.DecodeBase64(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	return wav, nil
}
