package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// Recording is the finalized buffer of one capture session.
type Recording struct {
	Chunks [][]byte
	Frames uint64
}

// PCM joins the captured chunks into one little-endian int16 buffer.
func (r Recording) PCM() []byte {
	n := 0
	for _, c := range r.Chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range r.Chunks {
		out = append(out, c...)
	}
	return out
}

func (r Recording) Duration(sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(r.Frames) / float64(sampleRate) * float64(time.Second))
}

// Recorder owns the single live recording session on top of a capture device.
// Start while active is a no-op; Stop hands back the buffered chunks and
// forgets them.
type Recorder struct {
	capture CaptureDevice
	onLevel func(float64)

	mu     sync.Mutex
	active bool
	chunks [][]byte
	frames uint64
}

func NewRecorder(capture CaptureDevice, onLevel func(float64)) *Recorder {
	return &Recorder{capture: capture, onLevel: onLevel}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	if r.capture == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: no capture device", ErrPermissionDenied)
	}
	r.chunks = nil
	r.frames = 0
	r.active = true
	r.mu.Unlock()

	// The device may deliver data before Start returns, so the lock is
	// not held across it.
	r.capture.SetCallback(r.feed)
	if err := r.capture.Start(); err != nil {
		r.capture.ClearCallback()
		r.mu.Lock()
		r.active = false
		r.chunks = nil
		r.frames = 0
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return nil
}

func (r *Recorder) feed(data []byte, frameCount uint32) {
	if len(data) == 0 {
		return
	}
	pcm := make([]byte, len(data))
	copy(pcm, data)

	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.chunks = append(r.chunks, pcm)
	r.frames += uint64(frameCount)
	r.mu.Unlock()

	if r.onLevel != nil {
		r.onLevel(RMS(pcm))
	}
}

func (r *Recorder) Stop() Recording {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return Recording{}
	}
	r.active = false
	r.mu.Unlock()

	r.capture.Stop()
	r.capture.ClearCallback()

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := Recording{Chunks: r.chunks, Frames: r.frames}
	r.chunks = nil
	r.frames = 0
	return rec
}

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// RMS returns the normalized root-mean-square level of 16-bit PCM.
func RMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(pcm)/2))
}
