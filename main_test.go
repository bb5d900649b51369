package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"talkback/audio"
	"talkback/backend"
	"talkback/config"
	"talkback/hotkey"
	"talkback/playback"
	"talkback/session"
)

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  url: http://file:5000\naudio:\n  format: wav\n  device: filemic\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		"TALKBACK_SERVER": "http://env:5000",
		"TALKBACK_FORMAT": "flac",
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f, err := parseFlags(fs, []string{"-config", path, "-server", "http://flag:5000", "-no-beep"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(fs, f, func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.URL != "http://flag:5000" {
		t.Errorf("url = %q, want flag value", cfg.Server.URL)
	}
	if cfg.Audio.Format != "flac" {
		t.Errorf("format = %q, want env value", cfg.Audio.Format)
	}
	if cfg.Audio.Device != "filemic" {
		t.Errorf("device = %q, want file value", cfg.Audio.Device)
	}
	if cfg.Audio.Beep {
		t.Error("-no-beep ignored")
	}
	if !cfg.Hotkey.Enabled {
		t.Error("hotkey disabled without -no-hotkey")
	}
}

func TestLoadConfigRejectsBadFormat(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f, err := parseFlags(fs, []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "-format", "ogg"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(fs, f, func(string) string { return "" }); err == nil {
		t.Fatal("missing explicit config file accepted")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	f, _ = parseFlags(fs, []string{"-format", "ogg"})
	if _, err := loadConfig(fs, f, func(string) string { return "" }); err == nil || !strings.Contains(err.Error(), "ogg") {
		t.Errorf("err = %v, want format error", err)
	}
}

func speechPCM(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		v := int16(4000)
		if i%2 == 1 {
			v = -4000
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

type scriptBackend struct {
	mu    sync.Mutex
	paths []string
}

func (b *scriptBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.paths = append(b.paths, r.URL.Path)
	b.mu.Unlock()

	switch r.URL.Path {
	case "/api/status":
		io.WriteString(w, `{"stt":true,"tts":true,"llm":true}`)
	case "/api/conversation":
		if _, _, err := r.FormFile("audio"); err != nil {
			http.Error(w, "no audio", http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"user_text":"what time is it","assistant_response":"half past nine","audio":""}`)
	case "/api/chat":
		io.WriteString(w, `{"response":"pong"}`)
	case "/api/synthesize":
		io.WriteString(w, `{"audio":""}`)
	case "/api/reset":
		io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func (b *scriptBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.paths {
		if p == path {
			n++
		}
	}
	return n
}

func newScriptApp(t *testing.T, pcm []byte, out io.Writer) (*app, *scriptBackend) {
	t.Helper()
	be := &scriptBackend{}
	srv := httptest.NewServer(http.HandlerFunc(be.handle))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Server.URL = srv.URL
	cfg.Audio.Beep = false
	a := newApp(cfg, appOptions{
		audioCtx: audio.NewFakeContextPCM(pcm),
		sink:     playback.NewFakeSink(),
		events:   &printSink{w: out},
		confirm:  session.AlwaysConfirm,
	})
	t.Cleanup(a.close)
	return a, be
}

func TestRunScript(t *testing.T) {
	var buf bytes.Buffer
	out := &syncWriter{w: &buf}
	a, be := newScriptApp(t, speechPCM(16000), out)

	script := strings.Join([]string{
		"KEYDOWN",
		"KEYUP",
		"WAIT",
		"SAY ping",
		"STATUS",
		"RESET",
		"BOGUS",
		"QUIT",
	}, "\n")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runScript(ctx, a, hotkey.NewFake(), nil, strings.NewReader(script), out); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	for _, want := range []string{
		"user: what time is it",
		"assistant: half past nine",
		"user: ping",
		"assistant: pong",
		"status: Online",
		"-- reset --",
		"unknown command: BOGUS",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if n := be.count("/api/conversation"); n != 1 {
		t.Errorf("conversation requests = %d, want 1", n)
	}
	if n := be.count("/api/reset"); n != 1 {
		t.Errorf("reset requests = %d, want 1", n)
	}
}

func TestRunScriptShortPressDropped(t *testing.T) {
	var buf bytes.Buffer
	out := &syncWriter{w: &buf}
	// 50ms of audio is below the minimum recording length
	a, be := newScriptApp(t, speechPCM(800), out)

	if err := runScript(context.Background(), a, hotkey.NewFake(), nil, strings.NewReader("KEYDOWN\nKEYUP\nWAIT\n"), out); err != nil {
		t.Fatal(err)
	}
	if n := be.count("/api/conversation"); n != 0 {
		t.Errorf("conversation requests = %d, want 0", n)
	}
	if strings.Contains(buf.String(), "user:") {
		t.Errorf("unexpected user entry:\n%s", buf.String())
	}
}

type recordedDeps struct {
	mu      sync.Mutex
	actions []session.Action
	records []bool
	copied  []string
}

func (r *recordedDeps) deps() tuiDeps {
	return tuiDeps{
		dispatch: func(a session.Action) error {
			r.mu.Lock()
			r.actions = append(r.actions, a)
			r.mu.Unlock()
			return nil
		},
		record: func(start bool) error {
			r.mu.Lock()
			r.records = append(r.records, start)
			r.mu.Unlock()
			return nil
		},
		copyText: func(s string) error {
			r.mu.Lock()
			r.copied = append(r.copied, s)
			r.mu.Unlock()
			return nil
		},
		server:      "http://localhost:5000",
		downloadDir: "/tmp/tts",
	}
}

func press(t *testing.T, m tuiModel, key string) (tuiModel, tea.Msg) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "ctrl+r":
		msg = tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+x":
		msg = tea.KeyMsg{Type: tea.KeyCtrlX}
	case "ctrl+y":
		msg = tea.KeyMsg{Type: tea.KeyCtrlY}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+p":
		msg = tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+d":
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	var out tea.Msg
	if cmd != nil {
		out = cmd()
	}
	return next.(tuiModel), out
}

func TestTUIKeysDispatch(t *testing.T) {
	rec := &recordedDeps{}
	st := session.NewState(time.Now())
	m := newTUIModel(rec.deps(), st)

	m, _ = press(t, m, "ctrl+r")
	m, _ = press(t, m, "ctrl+x")
	if len(rec.records) != 1 || !rec.records[0] {
		t.Errorf("records = %v, want [true]", rec.records)
	}
	if len(rec.actions) != 1 || rec.actions[0].Kind != session.ActionReset {
		t.Errorf("actions = %v, want reset", rec.actions)
	}

	st.Phase = session.Recording
	next, _ := m.Update(stateMsg{st})
	press(t, next.(tuiModel), "ctrl+r")
	if len(rec.records) != 2 || rec.records[1] {
		t.Errorf("records = %v, want [true false]", rec.records)
	}
}

func TestTUICopyLastReply(t *testing.T) {
	rec := &recordedDeps{}
	m := newTUIModel(rec.deps(), session.NewState(time.Now()))

	_, msg := press(t, m, "ctrl+y")
	if a, ok := msg.(alertMsg); !ok || a.Text != "Nothing to copy yet" {
		t.Errorf("msg = %#v", msg)
	}

	st := session.NewState(time.Now())
	st.Transcript = append(st.Transcript,
		session.Entry{Speaker: session.User, Text: "hi"},
		session.Entry{Speaker: session.Assistant, Text: "hello there"},
	)
	m2, _ := m.Update(stateMsg{st})
	press(t, m2.(tuiModel), "ctrl+y")
	if len(rec.copied) != 1 || rec.copied[0] != "hello there" {
		t.Errorf("copied = %v", rec.copied)
	}
}

func TestTUISettingsPanel(t *testing.T) {
	rec := &recordedDeps{}
	st := session.NewState(time.Now())
	st.Options = backend.SettingsInfo{
		AvailableModels: map[string]string{"llama3.2:3b": "Llama", "qwen2:7b": "Qwen"},
		AvailableVoices: map[string][]string{"en": {"v2/en_speaker_6", "v2/en_speaker_9"}},
	}
	m := newTUIModel(rec.deps(), st)

	m, _ = press(t, m, "ctrl+s")
	if m.panel != panelSettings {
		t.Fatalf("panel = %v", m.panel)
	}
	m, _ = press(t, m, "right") // model
	m, _ = press(t, m, "down")
	m, _ = press(t, m, "down")
	m, _ = press(t, m, "right") // speed
	if m.settings.model != "qwen2:7b" {
		t.Errorf("model = %q", m.settings.model)
	}
	if m.settings.speed != 1.3 {
		t.Errorf("speed = %v", m.settings.speed)
	}

	// a state refresh must not clobber an edited form
	m2, _ := m.Update(stateMsg{st})
	m = m2.(tuiModel)
	if m.settings.model != "qwen2:7b" {
		t.Errorf("form reset by state update: %+v", m.settings)
	}

	press(t, m, "enter")
	last := rec.actions[len(rec.actions)-1]
	if last.Kind != session.ActionSaveSettings {
		t.Fatalf("last action = %v", last.Kind)
	}
	want := backend.Settings{Model: "qwen2:7b", Voice: "v2/en_speaker_6", Speed: 1.3}
	if last.Settings != want {
		t.Errorf("saved %+v, want %+v", last.Settings, want)
	}
}

func TestTUIConfirm(t *testing.T) {
	m := newTUIModel((&recordedDeps{}).deps(), session.NewState(time.Now()))
	reply := make(chan bool, 1)
	m2, _ := m.Update(confirmMsg{Prompt: session.ResetPrompt, Reply: reply})
	m = m2.(tuiModel)

	m, _ = press(t, m, "x") // ignored while asking
	if m.confirm == nil {
		t.Fatal("prompt dismissed by unrelated key")
	}
	m, _ = press(t, m, "n")
	if m.confirm != nil {
		t.Fatal("prompt still shown")
	}
	if <-reply {
		t.Error("n answered yes")
	}
}

func TestStartupEventsReachTUI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			io.WriteString(w, `{"stt":true,"tts":true,"llm":true}`)
		case "/api/settings":
			io.WriteString(w, `{"current_model":"qwen2:7b","current_voice":"v2/en_speaker_3","current_speed":0.9}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Server.URL = srv.URL
	sink := &programSink{}
	confirm := &programConfirmer{}
	a := newApp(cfg, appOptions{
		audioCtx:  audio.NewFakeContextPCM(nil),
		noCapture: true,
		noSink:    true,
		events:    sink,
		confirm:   confirm,
	})
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := attachTUI(ctx, a, (&recordedDeps{}).deps(), sink, confirm,
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())

	final := make(chan tea.Model, 1)
	go func() {
		m, _ := p.Run()
		final <- m
	}()
	// Bootstrap returns once the program has taken both updates.
	a.ctrl.Bootstrap(ctx)
	p.Quit()

	m := (<-final).(tuiModel)
	if m.state.StatusLabel != session.StatusOnline {
		t.Errorf("status = %q", m.state.StatusLabel)
	}
	if m.state.Settings.Model != "qwen2:7b" || m.settings.voice != "v2/en_speaker_3" {
		t.Errorf("settings = %+v, form = %+v", m.state.Settings, m.settings)
	}
}
