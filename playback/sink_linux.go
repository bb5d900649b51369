//go:build linux

package playback

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"talkback/audio"
)

type pulseSink struct {
	client *pulse.Client
}

func NewSink() (Sink, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("talkback"))
	if err != nil {
		return nil, fmt.Errorf("pulse playback: %w", err)
	}
	return &pulseSink{client: c}, nil
}

func (s *pulseSink) Play(ctx context.Context, clip audio.Clip) error {
	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || pos >= len(clip.Samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, clip.Samples[pos:])
		pos += n
		return n, nil
	})

	layout := pulse.PlaybackMono
	volumes := proto.ChannelVolumes{uint32(proto.VolumeNorm)}
	if clip.Channels == 2 {
		layout = pulse.PlaybackStereo
		volumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
	}

	stream, err := s.client.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(clip.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = volumes
		}),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	stream.Stop()

	if err := ctx.Err(); err != nil {
		return err
	}
	return stream.Error()
}

func (s *pulseSink) Close() {
	s.client.Close()
}
