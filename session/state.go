package session

import (
	"time"

	"talkback/backend"
)

type Phase int

const (
	Idle Phase = iota
	Recording
	Submitting
)

func (p Phase) String() string {
	switch p {
	case Recording:
		return "recording"
	case Submitting:
		return "submitting"
	default:
		return "idle"
	}
}

type Speaker int

const (
	User Speaker = iota
	Assistant
)

func (s Speaker) String() string {
	if s == User {
		return "user"
	}
	return "assistant"
}

type Mode int

const (
	VoiceMode Mode = iota
	TextMode
)

// Entry is one transcript line. Notice marks the apology shown in place of
// an answer when a request failed.
type Entry struct {
	Speaker Speaker
	Text    string
	Notice  bool
	At      time.Time
}

const (
	StatusOnline  = "Online"
	StatusLoading = "Services Loading..."
	StatusOffline = "Offline"
)

// DefaultSettings mirror the backend's startup configuration, used until
// the first successful settings fetch.
var DefaultSettings = backend.Settings{
	Model: "llama3.2:3b",
	Voice: "v2/en_speaker_6",
	Speed: 1.2,
}

// State is everything a view needs to draw the session. Values are
// replaced, never mutated in place: the transcript slice is shared
// between snapshots and only ever grown by copying.
type State struct {
	Phase      Phase
	Mode       Mode
	Transcript []Entry
	Settings   backend.Settings
	Options    backend.SettingsInfo

	Status      backend.Status
	StatusLabel string
	Online      bool

	// Busy is the label of the most recent request still in flight.
	Busy     string
	Pending  int
	Speaking bool
}

func NewState(now time.Time) State {
	return State{
		Transcript:  []Entry{{Speaker: Assistant, Text: Greeting, At: now}},
		Settings:    DefaultSettings,
		StatusLabel: StatusLoading,
	}
}

func appendEntries(s State, entries ...Entry) State {
	t := make([]Entry, len(s.Transcript), len(s.Transcript)+len(entries))
	copy(t, s.Transcript)
	s.Transcript = append(t, entries...)
	return s
}

func resetTranscript(s State, now time.Time) State {
	s.Transcript = []Entry{{Speaker: Assistant, Text: Greeting, At: now}}
	return s
}

func withPhase(s State, p Phase) State {
	s.Phase = p
	return s
}

func withSettings(s State, settings backend.Settings) State {
	s.Settings = settings
	return s
}

func withOptions(s State, info backend.SettingsInfo) State {
	s.Options = info
	s.Settings = info.Current()
	return s
}

func withStatus(s State, st backend.Status, err error) State {
	s.Status = st
	s.StatusLabel = StatusLabel(st, err)
	s.Online = err == nil && st.Ready()
	return s
}

func beginBusy(s State, label string) State {
	s.Busy = label
	s.Pending++
	return s
}

func endBusy(s State) State {
	if s.Pending > 0 {
		s.Pending--
	}
	if s.Pending == 0 {
		s.Busy = ""
	}
	return s
}

func withSpeaking(s State, speaking bool) State {
	s.Speaking = speaking
	return s
}

func toggleMode(s State) State {
	if s.Mode == VoiceMode {
		s.Mode = TextMode
	} else {
		s.Mode = VoiceMode
	}
	return s
}

// StatusLabel is "Online" only when every service reports ready.
func StatusLabel(st backend.Status, err error) string {
	switch {
	case err != nil:
		return StatusOffline
	case st.Ready():
		return StatusOnline
	default:
		return StatusLoading
	}
}

func userEntry(text string, at time.Time) Entry {
	return Entry{Speaker: User, Text: text, At: at}
}

func assistantEntry(text string, at time.Time) Entry {
	return Entry{Speaker: Assistant, Text: text, At: at}
}

func noticeEntry(text string, at time.Time) Entry {
	return Entry{Speaker: Assistant, Text: text, Notice: true, At: at}
}

// LastReply is the newest assistant answer, skipping the greeting and
// error notices. Empty when there is none.
func (s State) LastReply() string {
	for i := len(s.Transcript) - 1; i > 0; i-- {
		e := s.Transcript[i]
		if e.Speaker == Assistant && !e.Notice {
			return e.Text
		}
	}
	return ""
}
