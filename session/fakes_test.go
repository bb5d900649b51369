package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"talkback/audio"
	"talkback/backend"
	"talkback/encoder"
)

type upload struct {
	filename string
	data     []byte
}

type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	status    backend.Status
	statusErr error

	exchange    backend.Exchange
	converseErr error
	uploads     []upload

	chat func(ctx context.Context, msg string) (string, error)

	synthAudio string
	synthErr   error
	synthReqs  []backend.SynthesisRequest
	synthGate  chan struct{} // when set, Synthesize waits for it

	info        backend.SettingsInfo
	settingsErr error
	saved       []backend.Settings
	saveErr     error

	resetErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:      map[string]int{},
		status:     backend.Status{STT: true, TTS: true, LLM: true},
		synthAudio: testAudioB64(800),
		chat: func(_ context.Context, msg string) (string, error) {
			return "re: " + msg, nil
		},
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) Status(context.Context) (backend.Status, error) {
	f.hit("status")
	return f.status, f.statusErr
}

func (f *fakeBackend) Converse(_ context.Context, data []byte, filename string) (backend.Exchange, error) {
	f.hit("converse")
	f.mu.Lock()
	f.uploads = append(f.uploads, upload{filename: filename, data: data})
	f.mu.Unlock()
	return f.exchange, f.converseErr
}

func (f *fakeBackend) Chat(ctx context.Context, msg string) (string, error) {
	f.hit("chat")
	return f.chat(ctx, msg)
}

func (f *fakeBackend) Synthesize(_ context.Context, req backend.SynthesisRequest) (string, error) {
	f.hit("synthesize")
	f.mu.Lock()
	f.synthReqs = append(f.synthReqs, req)
	gate := f.synthGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.synthAudio, f.synthErr
}

func (f *fakeBackend) Settings(context.Context) (backend.SettingsInfo, error) {
	f.hit("settings")
	return f.info, f.settingsErr
}

func (f *fakeBackend) SaveSettings(_ context.Context, s backend.Settings) error {
	f.hit("save")
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	f.saved = append(f.saved, s)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Reset(context.Context) error {
	f.hit("reset")
	return f.resetErr
}

type fakePlayer struct {
	mu     sync.Mutex
	played [][]byte
	done   []func(error)
	stops  int
	err    error
}

func (p *fakePlayer) Play(wav []byte, onDone func(error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, wav)
	p.done = append(p.done, onDone)
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
}

func (p *fakePlayer) plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

// finish reports clip i as played to the end.
func (p *fakePlayer) finish(i int) {
	p.mu.Lock()
	fn := p.done[i]
	p.mu.Unlock()
	fn(nil)
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []string
	states int
}

func (s *recordingSink) StateChanged(State) {
	s.mu.Lock()
	s.states++
	s.mu.Unlock()
}

func (s *recordingSink) Alert(msg string) {
	s.mu.Lock()
	s.alerts = append(s.alerts, msg)
	s.mu.Unlock()
}

func (s *recordingSink) Alerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type harness struct {
	c      *Controller
	be     *fakeBackend
	player *fakePlayer
	sink   *recordingSink
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	h := &harness{be: newFakeBackend(), player: &fakePlayer{}, sink: &recordingSink{}}
	cfg := Config{
		Backend: h.be,
		Player:  h.player,
		Sink:    h.sink,
		Format:  "wav",
		Now:     func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	h.c = New(cfg)
	return h
}

func withRecorder(pcm []byte, startErr error) func(*Config) {
	return func(cfg *Config) {
		ctx := audio.NewFakeContextPCM(pcm)
		ctx.StartErr = startErr
		dev, _ := ctx.NewCapture(nil, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: 1})
		cfg.Recorder = audio.NewRecorder(dev, nil)
	}
}

func testPCM(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range pcm {
		pcm[i] = byte(i * 7)
	}
	return pcm
}

func testAudioB64(samples int) string {
	pcm := testPCM(samples)
	return audio.EncodeBase64(append(encoder.WavHeader(uint32(len(pcm)), encoder.SampleRate, 1), pcm...))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func texts(s State) []string {
	out := make([]string, len(s.Transcript))
	for i, e := range s.Transcript {
		out[i] = e.Text
	}
	return out
}
