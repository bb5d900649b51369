package playback

import (
	"context"
	"math"

	"talkback/audio"
)

const toneRate = 44100

// Cues played around a hold-to-talk press. The pulse tail needs ~200ms to
// fill the server buffer, so ticks are padded to that length.
var (
	StartCue = Tick(1200, 0.2, 0.5, 60)
	EndCue   = Tick(900, 0.2, 0.5, 40)
	ErrorCue = DoubleBeep(350, 0.08, 0.05, 0.6, 30)
)

// Tick renders a decaying sine as a mono clip.
func Tick(freq, duration, volume, decay float64) audio.Clip {
	n := int(toneRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / toneRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return audio.Clip{SampleRate: toneRate, Channels: 1, Samples: samples}
}

func DoubleBeep(freq, beepDur, gapDur, volume, decay float64) audio.Clip {
	beep := Tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(toneRate*gapDur))
	samples := make([]int16, 0, len(beep.Samples)*2+len(gap))
	samples = append(samples, beep.Samples...)
	samples = append(samples, gap...)
	samples = append(samples, beep.Samples...)
	return audio.Clip{SampleRate: toneRate, Channels: 1, Samples: samples}
}

// Cue plays a short clip without going through a Player, so it never
// interrupts speech.
func Cue(sink Sink, clip audio.Clip) {
	if sink == nil {
		return
	}
	go sink.Play(context.Background(), clip)
}
