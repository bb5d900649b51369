package session

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

var voiceDescriptions = map[string]string{
	"v2/en_speaker_0": "Young female, clear",
	"v2/en_speaker_1": "Mature female, professional",
	"v2/en_speaker_2": "Soft female, gentle",
	"v2/en_speaker_3": "Deep male, authoritative",
	"v2/en_speaker_4": "Bright female, energetic",
	"v2/en_speaker_5": "Casual male, relaxed",
	"v2/en_speaker_6": "Warm female, friendly",
	"v2/en_speaker_7": "Professional male, clear",
	"v2/en_speaker_8": "Mature male, confident",
	"v2/en_speaker_9": "Smooth female, pleasant",
}

// VoiceLabel is the picker text for a voice: the id, followed by its
// description when one is known.
func VoiceLabel(voice string) string {
	if d := voiceDescriptions[voice]; d != "" {
		return voice + " - " + d
	}
	return voice
}

// FormatSpeed renders a playback speed the way the sliders show it.
func FormatSpeed(speed float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", speed), "0"), ".")
	return s + "x"
}

// Speed slider bounds.
const (
	MinSpeed  = 0.5
	MaxSpeed  = 2.0
	SpeedStep = 0.1
)

// StepSpeed moves speed by steps slider notches, clamped to the slider
// range and rounded to one decimal.
func StepSpeed(speed float64, steps int) float64 {
	v := speed + float64(steps)*SpeedStep
	v = min(max(v, MinSpeed), MaxSpeed)
	return math.Round(v*10) / 10
}

// Cycle returns the element after (or before, for negative steps) current
// in options, wrapping around. An unknown current starts from the first
// option.
func Cycle(options []string, current string, steps int) string {
	if len(options) == 0 {
		return current
	}
	i := slices.Index(options, current)
	if i < 0 {
		return options[0]
	}
	n := len(options)
	return options[((i+steps)%n+n)%n]
}
