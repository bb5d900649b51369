// Package doctor runs the -doctor diagnostics: backend reachability,
// microphone capture, speaker output and the optional desktop integrations.
package doctor

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"talkback/audio"
	"talkback/backend"
	"talkback/clipboard"
	"talkback/encoder"
	"talkback/hotkey"
	"talkback/playback"
)

// Check is one diagnostic. Run returns a one-line detail on success.
// Optional checks are reported but do not fail the run.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) (string, error)
}

type result struct {
	detail string
	err    error
}

// Run executes all checks concurrently, prints them in order and returns
// the process exit code (0 = every required check passed).
func Run(ctx context.Context, w io.Writer, checks []Check) int {
	results := make([]result, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			detail, err := c.Run(gctx)
			results[i] = result{detail: detail, err: err}
			return nil
		})
	}
	g.Wait()

	fmt.Fprintln(w, "talkback doctor")
	fmt.Fprintln(w, "===============")
	failed := false
	for i, c := range checks {
		r := results[i]
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		switch {
		case r.err == nil:
			fmt.Fprintf(w, "  PASS: %s\n", r.detail)
		case c.Optional:
			fmt.Fprintf(w, "  WARN: %v\n", r.err)
		default:
			fmt.Fprintf(w, "  FAIL: %v\n", r.err)
			failed = true
		}
	}

	fmt.Fprintln(w)
	if failed {
		fmt.Fprintln(w, "Some checks failed. See details above.")
		return 1
	}
	fmt.Fprintln(w, "All checks passed!")
	return 0
}

// StatusBackend is the part of the backend client the checks use.
type StatusBackend interface {
	Status(ctx context.Context) (backend.Status, error)
	Settings(ctx context.Context) (backend.SettingsInfo, error)
}

func BackendStatus(b StatusBackend) Check {
	return Check{Name: "Backend status", Run: func(ctx context.Context) (string, error) {
		st, err := b.Status(ctx)
		if err != nil {
			return "", err
		}
		if !st.Ready() {
			var down []string
			for name, ok := range map[string]bool{"stt": st.STT, "tts": st.TTS, "llm": st.LLM} {
				if !ok {
					down = append(down, name)
				}
			}
			slices.Sort(down)
			return "", fmt.Errorf("services still loading: %s", strings.Join(down, ", "))
		}
		return "stt, tts and llm ready", nil
	}}
}

func BackendSettings(b StatusBackend) Check {
	return Check{Name: "Backend settings", Run: func(ctx context.Context) (string, error) {
		info, err := b.Settings(ctx)
		if err != nil {
			return "", err
		}
		cur := info.Current()
		return fmt.Sprintf("model %s, voice %s, speed %gx (%d models, %d voices)",
			cur.Model, cur.Voice, cur.Speed, len(info.AvailableModels), len(info.Voices())), nil
	}}
}

// Microphone records for d and reports the peak level. Silence is not a
// failure; a device that cannot open is.
func Microphone(actx audio.Context, device string, d time.Duration) Check {
	return Check{Name: "Microphone", Run: func(ctx context.Context) (string, error) {
		dev, err := audio.FindDevice(actx, device)
		if err != nil {
			return "", err
		}
		capture, err := actx.NewCapture(dev, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels})
		if err != nil {
			return "", err
		}
		defer capture.Close()

		var peak float64
		rec := audio.NewRecorder(capture, func(level float64) { peak = max(peak, level) })
		if err := rec.Start(); err != nil {
			return "", err
		}
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
		r := rec.Stop()
		if len(r.Chunks) == 0 {
			return "", audio.ErrNoAudio
		}
		detail := fmt.Sprintf("%s: %.1fs captured, peak level %.3f",
			capture.DeviceName(), r.Duration(encoder.SampleRate).Seconds(), peak)
		if peak < 0.001 {
			detail += " (silent, is the mic muted?)"
		}
		return detail, nil
	}}
}

// Speaker plays the start cue through sink and waits for it to finish.
func Speaker(sink playback.Sink) Check {
	return Check{Name: "Speaker", Run: func(ctx context.Context) (string, error) {
		if sink == nil {
			return "", fmt.Errorf("no playback device")
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sink.Play(ctx, playback.StartCue); err != nil {
			return "", err
		}
		return fmt.Sprintf("played %v test tone", playback.StartCue.Duration()), nil
	}}
}

func Hotkey() Check {
	return Check{Name: "Global hotkey", Optional: true, Run: func(context.Context) (string, error) {
		return hotkey.Diagnose()
	}}
}

func Clipboard() Check {
	return Check{Name: "Clipboard", Optional: true, Run: func(context.Context) (string, error) {
		if clipboard.Unsupported() {
			return "", fmt.Errorf("no clipboard tool found (install xclip, xsel or wl-clipboard)")
		}
		return clipboard.Verify(3 * time.Second)
	}}
}
