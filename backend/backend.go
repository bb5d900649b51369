package backend

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNetwork wraps every transport-level failure: refused connections,
// timeouts, cancelled contexts and unreadable bodies.
var ErrNetwork = errors.New("backend unreachable")

// APIError is a non-2xx answer from the assistant server.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

type Status struct {
	STT       bool   `json:"stt"`
	TTS       bool   `json:"tts"`
	LLM       bool   `json:"llm"`
	Timestamp string `json:"timestamp"`
}

// Ready reports whether speech-to-text, speech synthesis and the language
// model are all loaded.
func (s Status) Ready() bool { return s.STT && s.TTS && s.LLM }

type Settings struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

func (s Settings) Validate() error {
	switch {
	case s.Model == "":
		return errors.New("model is required")
	case s.Voice == "":
		return errors.New("voice is required")
	case s.Speed <= 0:
		return fmt.Errorf("speed must be positive, got %g", s.Speed)
	}
	return nil
}

// SettingsInfo is the GET /api/settings payload: the active settings plus
// the choices the server offers.
type SettingsInfo struct {
	CurrentModel    string              `json:"current_model"`
	CurrentVoice    string              `json:"current_voice"`
	CurrentSpeed    float64             `json:"current_speed"`
	AvailableModels map[string]string   `json:"available_models"`
	AvailableVoices map[string][]string `json:"available_voices"`
}

func (i SettingsInfo) Current() Settings {
	return Settings{Model: i.CurrentModel, Voice: i.CurrentVoice, Speed: i.CurrentSpeed}
}

// ModelIDs returns the offered model ids in a stable order.
func (i SettingsInfo) ModelIDs() []string {
	ids := make([]string, 0, len(i.AvailableModels))
	for id := range i.AvailableModels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (i SettingsInfo) VoiceCategories() []string {
	cats := make([]string, 0, len(i.AvailableVoices))
	for c := range i.AvailableVoices {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Voices flattens the voice groups, category by category. Groups share
// ids; each id is kept once, at its first position.
func (i SettingsInfo) Voices() []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range i.VoiceCategories() {
		for _, v := range i.AvailableVoices[c] {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Exchange is one spoken turn as answered by /api/conversation. Audio is
// base64 and may be empty when synthesis failed server-side.
type Exchange struct {
	UserText          string `json:"user_text"`
	AssistantResponse string `json:"assistant_response"`
	Audio             string `json:"audio"`
}

type SynthesisRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}
