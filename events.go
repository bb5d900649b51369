package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"talkback/session"
)

// Messages delivered to the TUI from outside the bubbletea loop.
type stateMsg struct{ State session.State }
type alertMsg struct{ Text string }
type levelMsg struct{ Level float64 }
type silenceMsg struct{ Event silenceEvent }
type confirmMsg struct {
	Prompt string
	Reply  chan<- bool
}

// programSink forwards controller events into the program once it is
// attached. Events before that are dropped; the program starts from a
// snapshot.
type programSink struct {
	p *tea.Program
}

func (s *programSink) StateChanged(st session.State) {
	if s.p != nil {
		s.p.Send(stateMsg{st})
	}
}

func (s *programSink) Alert(text string) {
	if s.p != nil {
		s.p.Send(alertMsg{text})
	}
}

// programConfirmer shows the prompt in the TUI and waits for y/n.
type programConfirmer struct {
	p *tea.Program
}

func (c *programConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if c.p == nil {
		return false, nil
	}
	reply := make(chan bool, 1)
	c.p.Send(confirmMsg{Prompt: prompt, Reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
