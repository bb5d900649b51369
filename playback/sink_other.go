//go:build !linux

package playback

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"talkback/audio"
)

type malgoSink struct {
	ctx *malgo.AllocatedContext
}

func NewSink() (Sink, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("miniaudio playback: %w", err)
	}
	return &malgoSink{ctx: ctx}, nil
}

func (s *malgoSink) Play(ctx context.Context, clip audio.Clip) error {
	pcm := make([]byte, len(clip.Samples)*2)
	for i, v := range clip.Samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(clip.Channels)
	config.SampleRate = uint32(clip.SampleRate)
	config.Alsa.NoMMap = 1

	bytesPerFrame := malgo.SampleSizeInBytes(malgo.FormatS16) * clip.Channels
	finished := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	pos := 0

	onData := func(out, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		mu.Lock()
		n := copy(out[:need], pcm[pos:])
		pos += n
		left := len(pcm) - pos
		mu.Unlock()
		clear(out[n:need])
		if left == 0 {
			once.Do(func() { close(finished) })
		}
	}

	device, err := malgo.InitDevice(s.ctx.Context, config, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("miniaudio playback: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("starting playback device: %w", err)
	}
	defer device.Stop()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *malgoSink) Close() {
	_ = s.ctx.Uninit()
	s.ctx.Free()
}
