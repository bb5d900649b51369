package main

import (
	"context"
	"sync"
	"time"

	"talkback/audio"
	"talkback/backend"
	"talkback/config"
	"talkback/encoder"
	"talkback/hotkey"
	"talkback/log"
	"talkback/playback"
	"talkback/session"
)

// app owns the devices and the controller for one run.
type app struct {
	cfg    config.Config
	client *backend.Client
	ctrl   *session.Controller

	actx     audio.Context
	capture  audio.CaptureDevice
	recorder *audio.Recorder
	sink     playback.Sink
	player   *playback.Player

	// notify delivers UI-only messages (levels, silence); nil when headless
	notify func(any)

	levelMu sync.Mutex
	peak    float64
}

type appOptions struct {
	audioCtx  audio.Context // nil opens the platform context
	noCapture bool          // open the context but no capture device
	sink      playback.Sink // nil opens the platform output
	noSink    bool
	events    session.EventSink
	confirm   session.Confirmer
}

func newApp(cfg config.Config, opts appOptions) *app {
	a := &app{cfg: cfg}
	a.client = backend.NewClient(cfg.Server.URL,
		backend.WithTimeout(cfg.Server.Timeout.ToDuration()),
		backend.WithObserver(logRequest),
	)

	a.actx = opts.audioCtx
	if a.actx == nil {
		actx, err := audio.NewContext()
		if err != nil {
			log.Warnf("audio unavailable: %v", err)
		}
		a.actx = actx
	}
	if a.actx != nil && !opts.noCapture {
		a.openCapture(cfg.Audio.Device)
	}

	a.sink = opts.sink
	if a.sink == nil && !opts.noSink {
		sink, err := playback.NewSink()
		if err != nil {
			log.Warnf("playback unavailable: %v", err)
		}
		a.sink = sink
	}

	// typed nils must not reach the controller
	var rec session.Recorder
	if a.recorder != nil {
		rec = a.recorder
	}
	var player session.Player
	if a.sink != nil {
		a.player = playback.NewPlayer(a.sink)
		player = a.player
	}

	a.ctrl = session.New(session.Config{
		Backend:     a.client,
		Recorder:    rec,
		Player:      player,
		Confirm:     opts.confirm,
		Sink:        opts.events,
		Format:      cfg.Audio.Format,
		SampleRate:  encoder.SampleRate,
		MinDuration: cfg.Audio.MinDuration.ToDuration(),
	})
	return a
}

func (a *app) openCapture(device string) {
	dev, err := audio.FindDevice(a.actx, device)
	if err != nil {
		log.Warnf("device %q: %v, using system default", device, err)
		dev = nil
	}
	capture, err := a.actx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		log.Warnf("capture unavailable: %v", err)
		return
	}
	a.capture = capture
	a.recorder = audio.NewRecorder(capture, a.onLevel)
}

func (a *app) deviceName() string {
	if a.capture == nil {
		return "none"
	}
	return a.capture.DeviceName()
}

func (a *app) onLevel(level float64) {
	a.levelMu.Lock()
	a.peak = max(a.peak, level)
	a.levelMu.Unlock()
}

func (a *app) takePeak() float64 {
	a.levelMu.Lock()
	defer a.levelMu.Unlock()
	p := a.peak
	a.peak = 0
	return p
}

func (a *app) send(msg any) {
	if a.notify != nil {
		a.notify(msg)
	}
}

func (a *app) cue(clip audio.Clip) {
	if a.cfg.Audio.Beep {
		playback.Cue(a.sink, clip)
	}
}

// startRecording opens the mic and watches its level until the recording
// ends. isToggle reports whether the recording will end on its own
// (hold-to-talk) or needs another press; only toggled recordings are
// stopped automatically after prolonged silence.
func (a *app) startRecording(ctx context.Context, isToggle func() bool) error {
	if a.recorder != nil && a.recorder.Active() {
		return nil
	}
	if err := a.ctrl.Dispatch(ctx, session.Action{Kind: session.ActionStartCapture}); err != nil {
		a.cue(playback.ErrorCue)
		return err
	}
	a.takePeak()
	a.cue(playback.StartCue)
	go a.watchLevels(ctx, newSilenceMonitor(isToggle))
	return nil
}

// stopRecording blocks until the recording has been submitted and
// answered.
func (a *app) stopRecording(ctx context.Context) error {
	if a.recorder != nil && a.recorder.Active() {
		a.cue(playback.EndCue)
	}
	return a.ctrl.Dispatch(ctx, session.Action{Kind: session.ActionStopCapture})
}

func (a *app) watchLevels(ctx context.Context, mon *silenceMonitor) {
	ticker := time.NewTicker(levelTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if a.recorder == nil || !a.recorder.Active() {
			a.send(levelMsg{0})
			return
		}
		peak := a.takePeak()
		a.send(levelMsg{peak})
		switch ev := mon.Tick(peak); ev {
		case silenceWarn, silenceClear:
			a.send(silenceMsg{ev})
		case silenceRepeat:
			a.cue(playback.ErrorCue)
		case silenceAutoStop:
			log.Warn("no voice for too long, stopping recording")
			go a.stopRecording(ctx)
			return
		}
	}
}

// listenHotkey maps the global hotkey onto recordings until ctx ends.
func (a *app) listenHotkey(ctx context.Context, hk hotkey.Hotkey) {
	hy := hotkey.NewHybrid(ctx, hk, hotkey.DefaultLongPress)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hy.Start():
			if err := a.startRecording(ctx, hy.IsToggle); err != nil {
				log.Warnf("hotkey start: %v", err)
			}
		case <-hy.Stop():
			go a.stopRecording(ctx)
		}
	}
}

func (a *app) close() {
	if a.player != nil {
		a.player.Stop()
	}
	if a.capture != nil {
		a.capture.Close()
	}
	if a.sink != nil {
		a.sink.Close()
	}
	if a.actx != nil {
		a.actx.Close()
	}
}

func logRequest(r backend.RequestRecord) {
	var m log.RequestMetrics
	if r.Metrics != nil {
		m = log.RequestMetrics{
			DNSTimeMs:   ms(r.Metrics.DNS),
			TCPTimeMs:   ms(r.Metrics.TCP),
			TLSTimeMs:   ms(r.Metrics.TLS),
			TTFBMs:      ms(r.Metrics.TTFB),
			TotalTimeMs: ms(r.Metrics.Total),
			ConnReused:  r.Metrics.ConnReused,
		}
	}
	log.Request(r.Method, r.Path, r.ID, r.Status, m, r.Err)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
