package session

import (
	"context"
	"fmt"

	"talkback/backend"
)

type Kind int

const (
	ActionStartCapture Kind = iota + 1
	ActionStopCapture
	ActionSendText
	ActionReset
	ActionLoadSettings
	ActionSaveSettings
	ActionTestVoice
	ActionOpenTTS
	ActionSpeak
	ActionDownload
	ActionStopSpeaking
	ActionCheckStatus
	ActionToggleMode
	ActionPageHidden
)

var kindNames = map[Kind]string{
	ActionStartCapture: "start-capture",
	ActionStopCapture:  "stop-capture",
	ActionSendText:     "send-text",
	ActionReset:        "reset",
	ActionLoadSettings: "load-settings",
	ActionSaveSettings: "save-settings",
	ActionTestVoice:    "test-voice",
	ActionOpenTTS:      "open-tts",
	ActionSpeak:        "speak",
	ActionDownload:     "download",
	ActionStopSpeaking: "stop-speaking",
	ActionCheckStatus:  "check-status",
	ActionToggleMode:   "toggle-mode",
	ActionPageHidden:   "page-hidden",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is a user intent. Only the fields its Kind reads are set.
type Action struct {
	Kind     Kind
	Text     string
	Settings backend.Settings
	Voice    string
	Speed    float64
	Dir      string
}

type handler func(c *Controller, ctx context.Context, a Action) error

var handlers = map[Kind]handler{
	ActionStartCapture: func(c *Controller, ctx context.Context, _ Action) error { return c.StartCapture(ctx) },
	ActionStopCapture:  func(c *Controller, ctx context.Context, _ Action) error { return c.StopCapture(ctx) },
	ActionSendText:     func(c *Controller, ctx context.Context, a Action) error { return c.SubmitText(ctx, a.Text) },
	ActionReset:        func(c *Controller, ctx context.Context, _ Action) error { return c.ResetSession(ctx) },
	ActionLoadSettings: func(c *Controller, ctx context.Context, _ Action) error { return errOnly(c.LoadSettings(ctx)) },
	ActionSaveSettings: func(c *Controller, ctx context.Context, a Action) error { return c.SaveSettings(ctx, a.Settings) },
	ActionTestVoice:    func(c *Controller, ctx context.Context, a Action) error { return c.TestVoice(ctx, a.Voice, a.Speed) },
	ActionOpenTTS:      func(c *Controller, ctx context.Context, _ Action) error { return errOnly(c.OpenTTS(ctx)) },
	ActionSpeak:        func(c *Controller, ctx context.Context, a Action) error { return c.Speak(ctx, a.Text, a.Voice, a.Speed) },
	ActionDownload:     download,
	ActionStopSpeaking: stopSpeaking,
	ActionCheckStatus:  func(c *Controller, ctx context.Context, _ Action) error { return errOnly(c.CheckStatus(ctx)) },
	ActionToggleMode:   toggle,
	ActionPageHidden:   func(c *Controller, ctx context.Context, _ Action) error { return c.PageHidden(ctx) },
}

func errOnly[T any](_ T, err error) error { return err }

func download(c *Controller, ctx context.Context, a Action) error {
	_, err := c.Download(ctx, a.Text, a.Voice, a.Speed, a.Dir)
	return err
}

func stopSpeaking(c *Controller, _ context.Context, _ Action) error {
	c.StopSpeaking()
	return nil
}

func toggle(c *Controller, _ context.Context, _ Action) error {
	c.ToggleMode()
	return nil
}

// Dispatch routes an action to the controller operation it names.
func (c *Controller) Dispatch(ctx context.Context, a Action) error {
	h, ok := handlers[a.Kind]
	if !ok {
		return fmt.Errorf("unknown action %v", a.Kind)
	}
	return h(c, ctx, a)
}
