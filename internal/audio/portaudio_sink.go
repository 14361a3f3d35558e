//go:build !headless && portaudio
// +build !headless,portaudio

// Package audio provides alternate audio output paths for hosts that don't
// want to route through a graphics backend's built-in audio player.
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink streams APU samples out through PortAudio's default output
// device, fed from Bus.GetAudioSamples()/Bus.ClearAudioSamples() by the
// host's frame loop. It buffers samples in a channel so the audio callback,
// which runs on PortAudio's own thread, never blocks the emulation loop.
type PortAudioSink struct {
	stream  *portaudio.Stream
	channel chan float32
	volume  float32
}

// NewPortAudioSink creates a sink with the given ring-buffer capacity (in
// samples) and output volume scale.
func NewPortAudioSink(sampleRate int, volume float32) *PortAudioSink {
	return &PortAudioSink{
		channel: make(chan float32, sampleRate),
		volume:  volume,
	}
}

// Start initializes PortAudio and opens the default stereo output stream.
func (s *PortAudioSink) Start(sampleRate int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	callback := func(out []float32) {
		for i := range out {
			select {
			case sample := <-s.channel:
				out[i] = sample * s.volume
			default:
				out[i] = 0
			}
		}
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), 0, callback)
	if err != nil {
		return fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	return nil
}

// Push enqueues APU-produced samples for playback, dropping any that don't
// fit in the ring buffer rather than blocking the emulation loop.
func (s *PortAudioSink) Push(samples []float32) {
	for _, sample := range samples {
		select {
		case s.channel <- sample:
		default:
		}
	}
}

// Stop closes the stream and terminates PortAudio.
func (s *PortAudioSink) Stop() error {
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			return err
		}
	}
	portaudio.Terminate()
	return nil
}
