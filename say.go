package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"talkback/config"
	"talkback/session"
)

// alertWriter prints controller alerts for the non-interactive commands.
type alertWriter struct {
	w io.Writer
}

func (alertWriter) StateChanged(session.State) {}
func (a alertWriter) Alert(msg string)         { fmt.Fprintln(a.w, msg) }

// runSay implements `talkback say`: synthesize text and play it, or write
// it to a directory with -o.
func runSay(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("say", flag.ContinueOnError)
	fs.SetOutput(stderr)
	voice := fs.String("voice", "", "voice id (default: backend's current voice)")
	speed := fs.Float64("speed", 0, "speech speed (default: backend's current speed)")
	outDir := fs.String("o", "", "write the WAV into this directory instead of playing it")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	text := strings.Join(fs.Args(), " ")
	if text == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(stderr, "reading stdin: %v\n", err)
			return 1
		}
		text = string(b)
	}

	a := newApp(cfg, appOptions{
		noCapture: true,
		noSink:    *outDir != "",
		events:    alertWriter{stderr},
	})
	defer a.close()

	if *voice == "" || *speed == 0 {
		if info, err := a.ctrl.LoadSettings(ctx); err == nil {
			cur := info.Current()
			if *voice == "" {
				*voice = cur.Voice
			}
			if *speed == 0 {
				*speed = cur.Speed
			}
		} else {
			def := session.DefaultSettings
			if *voice == "" {
				*voice = def.Voice
			}
			if *speed == 0 {
				*speed = def.Speed
			}
		}
	}

	if *outDir != "" {
		path, err := a.ctrl.Download(ctx, text, *voice, *speed, *outDir)
		if err != nil {
			return 1
		}
		fmt.Fprintln(stdout, path)
		return 0
	}

	if a.player == nil {
		fmt.Fprintln(stderr, "no audio output available, use -o to save instead")
		return 1
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(stderr, session.AlertSpeakEmpty)
		return 1
	}
	wav, err := a.ctrl.Synthesize(ctx, text, *voice, *speed)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", session.AlertSpeak, err)
		return 1
	}
	done := make(chan error, 1)
	if err := a.player.Play(wav, func(err error) { done <- err }); err != nil {
		fmt.Fprintf(stderr, "playback: %v\n", err)
		return 1
	}
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "playback: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		a.player.Stop()
	}
	return 0
}
