package encoder

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns blocks of mono samples into one finished file. Bytes is
// valid after Close.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	Frames() uint64
}

// Upload is one encoded utterance ready to post.
type Upload struct {
	Data   []byte
	Frames uint64
	Took   time.Duration
}

// New returns an encoder for the upload format named in config.
func New(format string) (Encoder, error) {
	switch format {
	case "", "wav":
		return NewWav(), nil
	case "flac":
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown audio format %q", format)
	}
}

// Filename is the multipart filename the backend sees for an upload.
func Filename(format string) string {
	if format == "flac" {
		return "recording.flac"
	}
	return "recording.wav"
}

// Encode runs little-endian 16-bit PCM through a fresh encoder in
// BlockSize pieces and returns the finished file with its frame count and
// the time spent encoding.
func Encode(format string, pcm []byte) (Upload, error) {
	enc, err := New(format)
	if err != nil {
		return Upload{}, err
	}
	start := time.Now()
	samples := Samples(pcm)
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return Upload{}, err
		}
	}
	if err := enc.Close(); err != nil {
		return Upload{}, fmt.Errorf("closing %s encoder: %w", format, err)
	}
	return Upload{Data: enc.Bytes(), Frames: enc.Frames(), Took: time.Since(start)}, nil
}

// Samples reinterprets little-endian PCM bytes as int16 samples.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}
