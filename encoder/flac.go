package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder writes a mono 16 kHz FLAC stream into memory. Frames are
// stored verbatim; the backend only needs a lossless container it can
// decode, not the smallest file.
type FlacEncoder struct {
	out    bytes.Buffer
	w      *flac.Encoder
	wide   []int32
	frames uint64
}

func streamInfo() *meta.StreamInfo {
	return &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
}

func NewFlac() (*FlacEncoder, error) {
	e := &FlacEncoder{wide: make([]int32, BlockSize)}
	w, err := flac.NewEncoder(&e.out, streamInfo())
	if err != nil {
		return nil, fmt.Errorf("flac stream header: %w", err)
	}
	e.w = w
	return e, nil
}

// EncodeBlock writes block as one frame. Blocks longer than BlockSize are
// split.
func (e *FlacEncoder) EncodeBlock(block []int16) error {
	for len(block) > 0 {
		n := min(len(block), BlockSize)
		if err := e.writeFrame(block[:n]); err != nil {
			return err
		}
		block = block[n:]
	}
	return nil
}

func (e *FlacEncoder) writeFrame(block []int16) error {
	wide := e.wide[:len(block)]
	for i, s := range block {
		wide[i] = int32(s)
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   wide,
			NSamples:  len(block),
		}},
	}
	if err := e.w.WriteFrame(f); err != nil {
		return fmt.Errorf("flac frame at sample %d: %w", e.frames, err)
	}
	e.frames += uint64(len(block))
	return nil
}

func (e *FlacEncoder) Close() error { return e.w.Close() }

func (e *FlacEncoder) Bytes() []byte { return e.out.Bytes() }

func (e *FlacEncoder) Frames() uint64 { return e.frames }
