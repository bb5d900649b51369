package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("TALKBACK_LOG_PATH", "/tmp/talkback-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/talkback-env-log" {
		t.Errorf("got %q, want /tmp/talkback-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("TALKBACK_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "talkback") {
		t.Errorf("default dir %q does not mention talkback", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "conversation_log.txt"} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestExchange(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Exchange("assistant", "hello\nworld")

	data, err := os.ReadFile(filepath.Join(tmp, "conversation_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "\tassistant\thello world\n") {
		t.Errorf("unexpected conversation line: %q", line)
	}
}

func TestRequestAndLevel(t *testing.T) {
	tmp := setupLogDir(t)
	t.Cleanup(func() { SetLevel("info") })
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Request("POST", "/api/chat", "abc", 500, RequestMetrics{TTFBMs: 12}, errors.New("boom"))
	if err := SetLevel("error"); err != nil {
		t.Fatal(err)
	}
	Info("filtered out")

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "/api/chat") || !strings.Contains(out, "request_id=abc") {
		t.Errorf("request line missing: %q", out)
	}
	if strings.Contains(out, "filtered out") {
		t.Error("info message written at error level")
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggingBeforeInit(t *testing.T) {
	Close()
	Info("dropped")
	Exchange("user", "dropped")
	Request("GET", "/api/status", "", 0, RequestMetrics{}, nil)
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}

func TestPlatformDir(t *testing.T) {
	home := func() (string, error) { return "/home/u", nil }
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	tests := []struct {
		goos string
		env  map[string]string
		want string
	}{
		{"linux", nil, filepath.Join("/home/u", ".config", "talkback", "logs")},
		{"linux", map[string]string{"XDG_CONFIG_HOME": "/xdg"}, filepath.Join("/xdg", "talkback", "logs")},
		{"darwin", nil, filepath.Join("/home/u", "Library", "Logs", "talkback")},
		{"windows", nil, filepath.Join("/home/u", "AppData", "Local", "talkback", "logs")},
		{"windows", map[string]string{"LOCALAPPDATA": "/lad"}, filepath.Join("/lad", "talkback", "logs")},
	}
	for _, tt := range tests {
		got, err := platformDir(tt.goos, env(tt.env), home)
		if err != nil {
			t.Fatalf("%s: %v", tt.goos, err)
		}
		if got != tt.want {
			t.Errorf("%s %v: got %q, want %q", tt.goos, tt.env, got, tt.want)
		}
	}
}

func TestPlatformDirNoHome(t *testing.T) {
	noHome := func() (string, error) { return "", errors.New("no home") }
	none := func(string) string { return "" }
	if _, err := platformDir("darwin", none, noHome); err == nil {
		t.Error("expected error without a home directory")
	}
	got, err := platformDir("linux", func(string) string { return "/xdg" }, noHome)
	if err != nil || got != filepath.Join("/xdg", "talkback", "logs") {
		t.Errorf("got %q, %v", got, err)
	}
}
