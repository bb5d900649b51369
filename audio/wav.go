package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

var ErrInvalidWAV = errors.New("invalid wav data")

// Clip is decoded interleaved 16-bit audio ready for a playback device.
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// ParseWAV decodes a RIFF/WAVE buffer holding 16-bit PCM or 32-bit float
// samples. Unknown chunks (LIST, fact, ...) are skipped.
func ParseWAV(data []byte) (Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		format, channels, bits uint16
		sampleRate             uint32
		haveFmt                bool
		body                   []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		start := pos + 8
		end := start + size
		if end > len(data) {
			// streamed writers leave the data size unset or too large
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-start < 16 {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format = binary.LittleEndian.Uint16(data[start:])
			channels = binary.LittleEndian.Uint16(data[start+2:])
			sampleRate = binary.LittleEndian.Uint32(data[start+4:])
			bits = binary.LittleEndian.Uint16(data[start+14:])
			haveFmt = true
		case "data":
			body = data[start:end]
		}

		pos = end + size%2
	}

	if !haveFmt {
		return Clip{}, fmt.Errorf("%w: no fmt chunk", ErrInvalidWAV)
	}
	if body == nil {
		return Clip{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
	}
	if channels == 0 || sampleRate == 0 {
		return Clip{}, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidWAV, channels, sampleRate)
	}

	clip := Clip{SampleRate: int(sampleRate), Channels: int(channels)}
	switch {
	case format == wavFormatPCM && bits == 16:
		clip.Samples = make([]int16, len(body)/2)
		for i := range clip.Samples {
			clip.Samples[i] = int16(binary.LittleEndian.Uint16(body[i*2:]))
		}
	case format == wavFormatFloat && bits == 32:
		clip.Samples = make([]int16, len(body)/4)
		for i := range clip.Samples {
			f := math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
			clip.Samples[i] = floatToInt16(f)
		}
	default:
		return Clip{}, fmt.Errorf("%w: unsupported format %d/%d-bit", ErrInvalidWAV, format, bits)
	}
	return clip, nil
}

func floatToInt16(f float32) int16 {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int16(f * 32767)
}
