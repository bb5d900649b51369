package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func testPCM(n int, value int16) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}

func newTestCapture(t *testing.T, ctx *FakeContext) CaptureDevice {
	t.Helper()
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("NewCapture: %v", err)
	}
	return dev
}

func TestRecorderCollectsChunks(t *testing.T) {
	pcm := testPCM(3000, 1000)
	var levels int
	rec := NewRecorder(newTestCapture(t, NewFakeContextPCM(pcm)), func(float64) { levels++ })

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !rec.Active() {
		t.Fatal("recorder not active after Start")
	}
	got := rec.Stop()
	if rec.Active() {
		t.Fatal("recorder still active after Stop")
	}
	if got.Frames != 3000 {
		t.Errorf("Frames = %d, want 3000", got.Frames)
	}
	if len(got.PCM()) != len(pcm) {
		t.Errorf("PCM len = %d, want %d", len(got.PCM()), len(pcm))
	}
	if levels != len(got.Chunks) {
		t.Errorf("level callbacks = %d, chunks = %d", levels, len(got.Chunks))
	}
	if d := got.Duration(16000); d.Milliseconds() != 187 {
		t.Errorf("Duration = %v", d)
	}
}

func TestRecorderStartWhileActive(t *testing.T) {
	capture := newTestCapture(t, NewFakeContextPCM(testPCM(100, 1)))
	rec := NewRecorder(capture, nil)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if n := capture.(*FakeCapture).Starts(); n != 1 {
		t.Errorf("device started %d times, want 1", n)
	}
	rec.Stop()
}

func TestRecorderStopResetsBuffer(t *testing.T) {
	rec := NewRecorder(newTestCapture(t, NewFakeContextPCM(testPCM(100, 1))), nil)
	_ = rec.Start()
	if first := rec.Stop(); len(first.Chunks) == 0 {
		t.Fatal("expected chunks from first recording")
	}
	if second := rec.Stop(); len(second.Chunks) != 0 || second.Frames != 0 {
		t.Errorf("Stop while idle returned %d chunks", len(second.Chunks))
	}
}

func TestRecorderPermissionDenied(t *testing.T) {
	ctx := NewFakeContextPCM(nil)
	ctx.StartErr = errors.New("device busy")
	rec := NewRecorder(newTestCapture(t, ctx), nil)

	err := rec.Start()
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if rec.Active() {
		t.Error("recorder active after failed start")
	}

	if err := NewRecorder(nil, nil).Start(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("nil capture err = %v", err)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v", got)
	}
	if got := RMS(testPCM(10, 0)); got != 0 {
		t.Errorf("RMS(silence) = %v", got)
	}
	got := RMS(testPCM(10, 16384))
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS(half scale) = %v, want 0.5", got)
	}
}

func TestBase64(t *testing.T) {
	if _, err := DecodeBase64("  "); !errors.Is(err, ErrNoAudio) {
		t.Errorf("empty err = %v, want ErrNoAudio", err)
	}
	if _, err := DecodeBase64("not base64!!"); err == nil {
		t.Error("expected decode error")
	}
	data := []byte("RIFF....WAVE")
	got, err := DecodeBase64(EncodeBase64(data) + "\n")
	if err != nil {
		t.Fatalf("DecodeBase64: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestIsBluetooth(t *testing.T) {
	cases := map[string]bool{
		"AirPods Pro":                  true,
		"Built-in Audio Analog Stereo": false,
		"WH-1000XM4 (BT)":              true,
		"USB PnP Sound Device":         false,
	}
	for name, want := range cases {
		if got := IsBluetooth(name); got != want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContextPCM(nil)
	dev, err := FindDevice(ctx, "")
	if err != nil || dev != nil {
		t.Fatalf("empty name: dev=%v err=%v", dev, err)
	}
	dev, err = FindDevice(ctx, "FAKE")
	if err != nil || dev == nil || dev.ID != "fake" {
		t.Fatalf("FAKE: dev=%v err=%v", dev, err)
	}
	if _, err := FindDevice(ctx, "usb"); !errors.Is(err, ErrNoDevice) {
		t.Errorf("missing device err = %v", err)
	}
}
