package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://localhost:5000" || cfg.Server.PollInterval.ToDuration() != 30*time.Second {
		t.Errorf("defaults = %+v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := Load(missing, true); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if _, err := Load(missing, false); err == nil {
		t.Error("required missing file should fail")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  url: http://assistant.lan:5000
  timeout: 90
  poll_interval: 10s
audio:
  format: flac
  device: USB
  beep: false
tts:
  download_dir: ""
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://assistant.lan:5000" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
	if cfg.Server.Timeout.ToDuration() != 90*time.Second {
		t.Errorf("timeout = %v", cfg.Server.Timeout.ToDuration())
	}
	if cfg.Server.PollInterval.ToDuration() != 10*time.Second {
		t.Errorf("poll = %v", cfg.Server.PollInterval.ToDuration())
	}
	if cfg.Audio.Format != "flac" || cfg.Audio.Device != "USB" || cfg.Audio.Beep {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.TTS.DownloadDir != "." {
		t.Errorf("empty download dir not defaulted: %q", cfg.TTS.DownloadDir)
	}
	if cfg.Audio.MinDuration.ToDuration() != 100*time.Millisecond {
		t.Errorf("min duration = %v", cfg.Audio.MinDuration.ToDuration())
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "server:\n  timeout: soon\n")
	if _, err := Load(path, false); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TALKBACK_SERVER":       "https://voice.example.com",
		"TALKBACK_TIMEOUT":      "2m",
		"TALKBACK_FORMAT":       "FLAC",
		"TALKBACK_DOWNLOAD_DIR": "/tmp/speech",
		"TALKBACK_HOTKEY":       "false",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "https://voice.example.com" || cfg.Server.Timeout.ToDuration() != 2*time.Minute {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Audio.Format != "flac" || cfg.TTS.DownloadDir != "/tmp/speech" || cfg.Hotkey.Enabled {
		t.Errorf("cfg = %+v", cfg)
	}

	env["TALKBACK_HOTKEY"] = "maybe"
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for bad bool")
	}
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no scheme":  func(c *Config) { c.Server.URL = "localhost:5000" },
		"ftp":        func(c *Config) { c.Server.URL = "ftp://host" },
		"bad format": func(c *Config) { c.Audio.Format = "mp3" },
	} {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotenv(); err != nil {
		t.Errorf("missing .env: %v", err)
	}

	os.WriteFile(".env", []byte("TALKBACK_TEST_DOTENV=loaded\n"), 0644)
	t.Setenv("TALKBACK_TEST_DOTENV", "")
	os.Unsetenv("TALKBACK_TEST_DOTENV")
	if err := LoadDotenv(); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("TALKBACK_TEST_DOTENV"); got != "loaded" {
		t.Errorf("TALKBACK_TEST_DOTENV = %q", got)
	}
}
