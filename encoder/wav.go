package encoder

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// WavEncoder buffers samples and prepends a canonical 44-byte RIFF header
// on Close, once the data size is known.
type WavEncoder struct {
	data   bytes.Buffer
	out    []byte
	frames uint64
}

func NewWav() *WavEncoder {
	return &WavEncoder{}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	var b [2]byte
	for _, s := range block {
		binary.LittleEndian.PutUint16(b[:], uint16(s))
		e.data.Write(b[:])
	}
	e.frames += uint64(len(block)) / Channels
	return nil
}

func (e *WavEncoder) Close() error {
	size := uint32(e.data.Len())
	out := make([]byte, 0, wavHeaderSize+int(size))
	out = append(out, WavHeader(size, SampleRate, Channels)...)
	out = append(out, e.data.Bytes()...)
	e.out = out
	return nil
}

func (e *WavEncoder) Bytes() []byte { return e.out }

func (e *WavEncoder) Frames() uint64 { return e.frames }

// WavHeader builds the 44-byte header for dataSize bytes of 16-bit PCM.
func WavHeader(dataSize uint32, sampleRate, channels int) []byte {
	h := make([]byte, wavHeaderSize)
	blockAlign := channels * BitsPerSample / 8
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataSize)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], BitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataSize)
	return h
}
