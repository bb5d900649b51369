package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"talkback/log"
)

// Speak reads text aloud from the TTS panel. Speaking stays set until the
// clip ends or StopSpeaking is called.
func (c *Controller) Speak(ctx context.Context, text, voice string, speed float64) error {
	if strings.TrimSpace(text) == "" {
		c.alert(AlertSpeakEmpty)
		return ErrEmptyMessage
	}
	wav, err := c.Synthesize(ctx, text, voice, speed)
	if err == nil {
		err = c.playWAV(wav, nil)
	}
	if err != nil {
		log.Errorf("speak: %v", err)
		c.alert(AlertSpeak)
		return err
	}
	return nil
}

// Download synthesizes text and writes it to dir as
// tts_audio_<unix millis>.wav, returning the file path.
func (c *Controller) Download(ctx context.Context, text, voice string, speed float64, dir string) (string, error) {
	if strings.TrimSpace(text) == "" {
		c.alert(AlertDownloadEmpty)
		return "", ErrEmptyMessage
	}
	path, err := c.download(ctx, text, voice, speed, dir)
	if err != nil {
		log.Errorf("download: %v", err)
		c.alert(AlertDownload)
		return "", err
	}
	log.Infof("saved speech to %s", path)
	c.alert("Saved " + path)
	return path, nil
}

func (c *Controller) download(ctx context.Context, text, voice string, speed float64, dir string) (string, error) {
	wav, err := c.Synthesize(ctx, text, voice, speed)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	path := filepath.Join(dir, DownloadName(c.cfg.Now().UnixMilli()))
	if err := os.WriteFile(path, wav, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func DownloadName(unixMilli int64) string {
	return fmt.Sprintf("tts_audio_%d.wav", unixMilli)
}
