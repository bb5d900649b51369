package encoder

import (
	"encoding/binary"
	"testing"
)

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestWavHeader(t *testing.T) {
	h := WavHeader(3200, SampleRate, Channels)
	if len(h) != 44 {
		t.Fatalf("header len = %d, want 44", len(h))
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[36:40]) != "data" {
		t.Fatalf("bad magic: %q", h)
	}
	if got := binary.LittleEndian.Uint32(h[4:]); got != 36+3200 {
		t.Errorf("riff size = %d", got)
	}
	if got := binary.LittleEndian.Uint32(h[24:]); got != SampleRate {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(h[28:]); got != SampleRate*2 {
		t.Errorf("byte rate = %d", got)
	}
}

func TestEncodeWav(t *testing.T) {
	samples := sine(BlockSize*2 + 100)
	pcm := pcmBytes(samples)

	up, err := Encode("wav", pcm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := up.Data
	if len(out) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(out), 44+len(pcm))
	}
	if got := binary.LittleEndian.Uint32(out[40:]); int(got) != len(pcm) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
	for i := range pcm {
		if out[44+i] != pcm[i] {
			t.Fatalf("payload differs at byte %d", i)
		}
	}
}

func TestEncodeFormats(t *testing.T) {
	pcm := pcmBytes(sine(1000))

	flacOut, err := Encode("flac", pcm)
	if err != nil {
		t.Fatalf("Encode flac: %v", err)
	}
	if string(flacOut.Data[:4]) != "fLaC" {
		t.Error("flac output missing magic")
	}

	if _, err := Encode("ogg", pcm); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestEncodeReportsFramesAndTime(t *testing.T) {
	samples := sine(BlockSize*3 + 17)
	pcm := pcmBytes(samples)

	for _, format := range []string{"wav", "flac"} {
		up, err := Encode(format, pcm)
		if err != nil {
			t.Fatalf("Encode %s: %v", format, err)
		}
		if up.Frames != uint64(len(samples)) {
			t.Errorf("%s: Frames = %d, want %d", format, up.Frames, len(samples))
		}
		if up.Took <= 0 {
			t.Errorf("%s: Took = %v, want > 0", format, up.Took)
		}
	}
}

func TestFlacSplitsOversizedBlock(t *testing.T) {
	samples := sine(BlockSize*2 + 5)
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.EncodeBlock(samples); err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if enc.Frames() != uint64(len(samples)) {
		t.Errorf("Frames = %d, want %d", enc.Frames(), len(samples))
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("flac"); got != "recording.flac" {
		t.Errorf("Filename(flac) = %q", got)
	}
	if got := Filename("wav"); got != "recording.wav" {
		t.Errorf("Filename(wav) = %q", got)
	}
	if got := Filename(""); got != "recording.wav" {
		t.Errorf("Filename(\"\") = %q", got)
	}
}
