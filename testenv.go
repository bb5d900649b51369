package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"talkback/hotkey"
	"talkback/log"
	"talkback/session"
)

// printSink writes transcript entries and alerts as they appear.
type printSink struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
	status  string
}

func (s *printSink) StateChanged(st session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(st.Transcript) < s.printed {
		fmt.Fprintln(s.w, "-- reset --")
		s.printed = 0
	}
	for _, e := range st.Transcript[s.printed:] {
		tag := e.Speaker.String()
		if e.Notice {
			tag = "notice"
		}
		fmt.Fprintf(s.w, "%s: %s\n", tag, e.Text)
	}
	s.printed = len(st.Transcript)
	s.status = st.StatusLabel
}

func (s *printSink) Alert(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "alert: %s\n", msg)
}

// runScript drives a from a line-oriented script:
//
//	KEYDOWN / KEYUP   press and release the talk key
//	WAIT              block until the last release has been answered
//	WAIT_AUDIO_DONE   block until the fake microphone ran out of audio
//	SAY <text>        send a typed message and wait for the reply
//	RESET             reset the conversation (auto-confirmed)
//	STATUS            check backend status and print the label
//	SLEEP <ms>
//	QUIT
func runScript(ctx context.Context, a *app, hk *hotkey.FakeHotkey, audioDone func() <-chan struct{}, script io.Reader, out io.Writer) error {
	// One listener handles both edges so a press is always processed
	// before the release that follows it. Every event is acknowledged.
	var pending sync.WaitGroup
	acks := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				if err := a.startRecording(ctx, func() bool { return false }); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				}
			case <-hk.Keyup():
				go func() {
					defer pending.Done()
					if err := a.stopRecording(ctx); err != nil {
						fmt.Fprintf(out, "error: %v\n", err)
					}
				}()
			}
			acks <- struct{}{}
		}
	}()

	dispatch := func(act session.Action) {
		if err := a.ctrl.Dispatch(ctx, act); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	scanner := bufio.NewScanner(script)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "", "#":
		case "KEYDOWN":
			hk.SimKeydown()
			<-acks
		case "KEYUP":
			pending.Add(1)
			hk.SimKeyup()
			<-acks
		case "WAIT":
			pending.Wait()
		case "WAIT_AUDIO_DONE":
			if audioDone != nil {
				<-audioDone()
			}
		case "SAY":
			dispatch(session.Action{Kind: session.ActionSendText, Text: arg})
		case "RESET":
			dispatch(session.Action{Kind: session.ActionReset})
		case "STATUS":
			label, _ := a.ctrl.CheckStatus(ctx)
			fmt.Fprintf(out, "status: %s\n", label)
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			pending.Wait()
			return nil
		default:
			log.Warnf("test mode: unknown command %q", line)
			fmt.Fprintf(out, "unknown command: %s\n", line)
		}
	}
	pending.Wait()
	return scanner.Err()
}

// syncWriter serializes writes from the sink and the script goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
