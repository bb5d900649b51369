package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Duration time.Duration

func (d Duration) ToDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*d = 0
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	dur, err := parseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// parseDuration accepts Go durations ("5s", "2m") or whole seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if dur, err := time.ParseDuration(s); err == nil {
		return dur, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(i) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration: %q", s)
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Audio  AudioConfig  `yaml:"audio"`
	Hotkey HotkeyConfig `yaml:"hotkey"`
	TTS    TTSConfig    `yaml:"tts"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	URL          string   `yaml:"url"`
	Timeout      Duration `yaml:"timeout"`
	PollInterval Duration `yaml:"poll_interval"`
}

type AudioConfig struct {
	Format      string   `yaml:"format"` // wav, flac
	Device      string   `yaml:"device"` // empty = system default
	MinDuration Duration `yaml:"min_duration"`
	Beep        bool     `yaml:"beep"`
}

type HotkeyConfig struct {
	Enabled bool `yaml:"enabled"`
}

type TTSConfig struct {
	DownloadDir string `yaml:"download_dir"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:          "http://localhost:5000",
			Timeout:      Duration(60 * time.Second),
			PollInterval: Duration(30 * time.Second),
		},
		Audio: AudioConfig{
			Format:      "wav",
			MinDuration: Duration(100 * time.Millisecond),
			Beep:        true,
		},
		Hotkey: HotkeyConfig{
			Enabled: true,
		},
		TTS: TTSConfig{
			DownloadDir: ".",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath is config.yaml under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "talkback", "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.fill()
	return cfg, nil
}

// fill puts defaults back where the file left a value empty or invalid.
func (c *Config) fill() {
	d := Default()
	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	if c.Server.Timeout.ToDuration() < 0 {
		c.Server.Timeout = d.Server.Timeout
	}
	if c.Server.PollInterval.ToDuration() <= 0 {
		c.Server.PollInterval = d.Server.PollInterval
	}
	if c.Audio.Format == "" {
		c.Audio.Format = d.Audio.Format
	}
	if c.Audio.MinDuration.ToDuration() <= 0 {
		c.Audio.MinDuration = d.Audio.MinDuration
	}
	if c.TTS.DownloadDir == "" {
		c.TTS.DownloadDir = d.TTS.DownloadDir
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// LoadDotenv loads .env from the working directory when present.
func LoadDotenv() error {
	err := godotenv.Load()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides file values with TALKBACK_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("TALKBACK_SERVER"); v != "" {
		c.Server.URL = v
	}
	if v := getenv("TALKBACK_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("TALKBACK_TIMEOUT: %w", err)
		}
		c.Server.Timeout = Duration(d)
	}
	if v := getenv("TALKBACK_FORMAT"); v != "" {
		c.Audio.Format = strings.ToLower(v)
	}
	if v := getenv("TALKBACK_DEVICE"); v != "" {
		c.Audio.Device = v
	}
	if v := getenv("TALKBACK_DOWNLOAD_DIR"); v != "" {
		c.TTS.DownloadDir = v
	}
	if v := getenv("TALKBACK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("TALKBACK_HOTKEY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TALKBACK_HOTKEY: %w", err)
		}
		c.Hotkey.Enabled = b
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q must be http(s)://host[:port]", c.Server.URL)
	}
	switch c.Audio.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("audio format %q: want wav or flac", c.Audio.Format)
	}
	if c.Server.Timeout.ToDuration() < 0 {
		return fmt.Errorf("negative server timeout")
	}
	return nil
}
