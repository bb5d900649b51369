package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"talkback/audio"
	"talkback/clipboard"
	"talkback/config"
	"talkback/doctor"
	"talkback/hotkey"
	"talkback/log"
	"talkback/playback"
	"talkback/session"
)

var version = "dev"

type cliFlags struct {
	configPath string
	server     string
	format     string
	device     string
	timeout    time.Duration
	logPath    string
	logLevel   string
	noHotkey   bool
	noBeep     bool
	setup      bool
	doctor     bool
	test       bool
	version    bool
	profile    string
	crash      bool
}

func parseFlags(fs *flag.FlagSet, args []string) (cliFlags, error) {
	var f cliFlags
	fs.StringVar(&f.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")
	fs.StringVar(&f.server, "server", "", "assistant backend URL (e.g. http://localhost:5000)")
	fs.StringVar(&f.format, "format", "", "upload format: wav or flac")
	fs.StringVar(&f.device, "device", "", "use named microphone device")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout (e.g. 60s)")
	fs.StringVar(&f.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&f.logLevel, "log-level", "", "diagnostics log level: debug, info, warn, error")
	fs.BoolVar(&f.noHotkey, "no-hotkey", false, "disable the global "+hotkey.Combo+" hotkey")
	fs.BoolVar(&f.noBeep, "no-beep", false, "disable recording start/stop cues")
	fs.BoolVar(&f.setup, "setup", false, "select microphone device (otherwise uses system default)")
	fs.BoolVar(&f.doctor, "doctor", false, "run system diagnostics and exit")
	fs.BoolVar(&f.test, "test", false, "test mode (headless, stdin-driven): talkback -test <wav-file>")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.StringVar(&f.profile, "profile", "", "enable pprof profiling server (e.g. localhost:6060)")
	fs.BoolVar(&f.crash, "crash", false, "trigger synthetic panic for testing crash logging")
	err := fs.Parse(args)
	return f, err
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func loadConfig(fs *flag.FlagSet, f cliFlags, getenv func(string) string) (config.Config, error) {
	path, optional := f.configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "server":
			cfg.Server.URL = f.server
		case "format":
			cfg.Audio.Format = f.format
		case "device":
			cfg.Audio.Device = f.device
		case "timeout":
			cfg.Server.Timeout = config.Duration(f.timeout)
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "logpath":
			cfg.Log.Path = f.logPath
		case "no-hotkey":
			cfg.Hotkey.Enabled = !f.noHotkey
		case "no-beep":
			cfg.Audio.Beep = !f.noBeep
		}
	})
	return cfg, cfg.Validate()
}

func run() {
	os.Exit(runMain())
}

func runMain() int {
	if err := config.LoadDotenv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	args := os.Args[1:]
	sub := ""
	if len(args) > 0 && args[0] == "say" {
		sub, args = "say", args[1:]
	}

	fs := flag.NewFlagSet("talkback", flag.ExitOnError)
	var f cliFlags
	if sub == "" {
		f, _ = parseFlags(fs, args)
	}

	if f.version {
		fmt.Printf("talkback %s\n", version)
		return 0
	}

	cfg, err := loadConfig(fs, f, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logPath, err := log.ResolveDir(cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := log.InitCrash(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not set up crash log: %v\n", err)
	}

	if f.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", f.profile)
			if err := http.ListenAndServe(f.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}
	if f.crash {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case sub == "say":
		return runSay(ctx, cfg, args, os.Stdout, os.Stderr)
	case f.doctor:
		return runDoctor(ctx, cfg)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if f.test {
		if fs.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "Usage: talkback -test <wav-file>")
			return 1
		}
		return runTestMode(ctx, cfg, fs.Arg(0))
	}

	if f.setup && cfg.Audio.Device == "" {
		if name, err := pickDevice(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\nFalling back to default device\n", err)
		} else {
			cfg.Audio.Device = name
		}
	}

	if err := runInteractive(ctx, cfg); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func pickDevice() (string, error) {
	actx, err := audio.NewContext()
	if err != nil {
		return "", err
	}
	defer actx.Close()
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		return "", err
	}
	return dev.Name, nil
}

func runInteractive(ctx context.Context, cfg config.Config) error {
	sink := &programSink{}
	confirm := &programConfirmer{}
	a := newApp(cfg, appOptions{events: sink, confirm: confirm})
	defer a.close()

	log.SessionStart(cfg.Server.URL, cfg.Audio.Format, a.deviceName())
	defer func() { log.SessionEnd(a.ctrl.Turns()) }()

	var hk hotkey.Hotkey
	if cfg.Hotkey.Enabled {
		hk = hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("global hotkey unavailable: %v", err)
			hk = nil
		} else {
			defer hk.Unregister()
		}
	}

	deps := tuiDeps{
		dispatch: func(act session.Action) error { return a.ctrl.Dispatch(ctx, act) },
		record: func(start bool) error {
			if start {
				return a.startRecording(ctx, func() bool { return true })
			}
			return a.stopRecording(ctx)
		},
		copyText:    func(s string) error { return clipboard.CopyWithin(s, 2*time.Second) },
		server:      cfg.Server.URL,
		device:      a.deviceName(),
		format:      cfg.Audio.Format,
		downloadDir: cfg.TTS.DownloadDir,
		hotkey:      hk != nil,
	}
	p := attachTUI(ctx, a, deps, sink, confirm, tea.WithAltScreen())

	if hk != nil {
		go a.listenHotkey(ctx, hk)
	}
	go func() {
		if d := a.client.Warm(ctx); d > 0 {
			log.Infof("backend connection warmed in %v", d)
		}
	}()
	go func() {
		a.ctrl.Bootstrap(ctx)
		a.ctrl.PollStatus(ctx, cfg.Server.PollInterval.ToDuration())
	}()
	return runTUI(ctx, p)
}

func runTestMode(ctx context.Context, cfg config.Config, wavPath string) int {
	fake, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	out := &syncWriter{w: os.Stdout}
	cfg.Audio.Beep = false
	a := newApp(cfg, appOptions{
		audioCtx: fake,
		sink:     playback.NewFakeSink(),
		events:   &printSink{w: out},
		confirm:  session.AlwaysConfirm,
	})
	defer a.close()

	log.SessionStart(cfg.Server.URL, cfg.Audio.Format, a.deviceName())
	defer func() { log.SessionEnd(a.ctrl.Turns()) }()

	var audioDone func() <-chan struct{}
	if fc, ok := a.capture.(*audio.FakeCapture); ok {
		audioDone = fc.AudioDone
	}
	if err := runScript(ctx, a, hotkey.NewFake(), audioDone, os.Stdin, out); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runDoctor(ctx context.Context, cfg config.Config) int {
	a := newApp(cfg, appOptions{noCapture: true})
	defer a.close()

	checks := []doctor.Check{
		doctor.BackendStatus(a.client),
		doctor.BackendSettings(a.client),
	}
	if a.actx != nil {
		checks = append(checks, doctor.Microphone(a.actx, cfg.Audio.Device, 2*time.Second))
	} else {
		checks = append(checks, doctor.Check{Name: "Microphone", Run: func(context.Context) (string, error) {
			return "", audio.ErrPermissionDenied
		}})
	}
	checks = append(checks, doctor.Speaker(a.sink), doctor.Hotkey(), doctor.Clipboard())

	fmt.Println("Speak for two seconds while the microphone check runs...")
	return doctor.Run(ctx, os.Stdout, checks)
}
