package playback

import (
	"errors"
	"testing"
	"time"

	"talkback/audio"
	"talkback/encoder"
)

func testWAV(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	return append(encoder.WavHeader(uint32(len(pcm)), 16000, 1), pcm...)
}

func waitStarted(t *testing.T, f *FakeSink) {
	t.Helper()
	select {
	case <-f.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("sink never started")
	}
}

func TestPlayerCompletion(t *testing.T) {
	sink := NewFakeSink()
	p := NewPlayer(sink)

	done := make(chan error, 1)
	if err := p.Play(testWAV(1600), func(err error) { done <- err }); err != nil {
		t.Fatalf("Play: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("onDone err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onDone never called")
	}
	clips := sink.Clips()
	if len(clips) != 1 || len(clips[0].Samples) != 1600 || clips[0].SampleRate != 16000 {
		t.Errorf("clips = %d", len(clips))
	}
}

func TestPlayerNewClipStopsPrevious(t *testing.T) {
	sink := NewFakeSink()
	sink.Hold = true
	p := NewPlayer(sink)

	firstDone := make(chan error, 1)
	if err := p.Play(testWAV(100), func(err error) { firstDone <- err }); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitStarted(t, sink)
	if !p.Playing() {
		t.Fatal("Playing() = false while held")
	}

	if err := p.Play(testWAV(200), nil); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	waitStarted(t, sink)

	select {
	case <-firstDone:
		t.Error("superseded clip reported completion")
	default:
	}

	p.Stop()
	if p.Playing() {
		t.Error("Playing() = true after Stop")
	}
	if n := len(sink.Clips()); n != 2 {
		t.Errorf("clips = %d, want 2", n)
	}
}

func TestPlayerRejectsBadInput(t *testing.T) {
	p := NewPlayer(NewFakeSink())
	if err := p.Play([]byte("not a wav"), nil); !errors.Is(err, audio.ErrInvalidWAV) {
		t.Errorf("err = %v, want ErrInvalidWAV", err)
	}
	if err := p.Play(testWAV(0), nil); !errors.Is(err, audio.ErrNoAudio) {
		t.Errorf("err = %v, want ErrNoAudio", err)
	}
	if err := NewPlayer(nil).Play(testWAV(10), nil); err == nil {
		t.Error("expected error without sink")
	}
}

func TestTones(t *testing.T) {
	tick := Tick(1000, 0.1, 0.5, 50)
	if len(tick.Samples) != 4410 || tick.Duration() != 100*time.Millisecond {
		t.Errorf("tick = %d samples, %v", len(tick.Samples), tick.Duration())
	}
	double := DoubleBeep(350, 0.08, 0.05, 0.6, 30)
	if want := 2*int(toneRate*0.08) + int(toneRate*0.05); len(double.Samples) != want {
		t.Errorf("double beep = %d samples, want %d", len(double.Samples), want)
	}
}
