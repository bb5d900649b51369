package session

import (
	"context"
	"errors"
	"fmt"

	"talkback/backend"
	"talkback/log"
)

// LoadSettings fetches the active settings and the offered choices.
func (c *Controller) LoadSettings(ctx context.Context) (backend.SettingsInfo, error) {
	return c.fetchSettings(ctx, AlertLoadSettings)
}

// OpenTTS fetches the voices for the text-to-speech panel.
func (c *Controller) OpenTTS(ctx context.Context) (backend.SettingsInfo, error) {
	return c.fetchSettings(ctx, AlertOpenTTS)
}

func (c *Controller) fetchSettings(ctx context.Context, failure string) (backend.SettingsInfo, error) {
	info, err := c.cfg.Backend.Settings(ctx)
	if err != nil {
		log.Errorf("load settings: %v", err)
		if failure != "" {
			c.alert(failure)
		}
		return backend.SettingsInfo{}, fmt.Errorf("loading settings: %w", err)
	}
	c.update(func(s State) State { return withOptions(s, info) })
	return info, nil
}

// SaveSettings persists s on the backend and adopts it locally only once
// the backend accepted it. Invalid input and non-2xx answers yield
// ErrSaveRejected; transport failures keep backend.ErrNetwork.
func (c *Controller) SaveSettings(ctx context.Context, s backend.Settings) error {
	if err := s.Validate(); err != nil {
		c.alert(AlertSaveSettings)
		return fmt.Errorf("%w: %v", ErrSaveRejected, err)
	}
	if err := c.cfg.Backend.SaveSettings(ctx, s); err != nil {
		log.Errorf("save settings: %v", err)
		c.alert(AlertSaveSettings)
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %w", ErrSaveRejected, err)
		}
		return fmt.Errorf("saving settings: %w", err)
	}
	c.update(func(st State) State { return withSettings(st, s) })
	log.Infof("settings saved: model=%s voice=%s speed=%g", s.Model, s.Voice, s.Speed)
	c.alert(AlertSettingsSaved)
	return nil
}

// TestVoice speaks a fixed sentence with an unsaved voice and speed.
func (c *Controller) TestVoice(ctx context.Context, voice string, speed float64) error {
	wav, err := c.Synthesize(ctx, TestVoiceSentence, voice, speed)
	if err == nil {
		err = c.playWAV(wav, nil)
	}
	if err != nil {
		log.Errorf("test voice: %v", err)
		c.alert(AlertTestVoice)
		return err
	}
	return nil
}
