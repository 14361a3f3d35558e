//go:build headless || !portaudio
// +build headless !portaudio

package audio

import "fmt"

// PortAudioSink stub for builds without the "portaudio" tag (the default);
// avoids a hard cgo dependency on libportaudio for hosts that only use the
// graphics backends' built-in audio players.
type PortAudioSink struct{}

// NewPortAudioSink returns an inert sink; Start will always fail.
func NewPortAudioSink(sampleRate int, volume float32) *PortAudioSink {
	return &PortAudioSink{}
}

func (s *PortAudioSink) Start(sampleRate int) error {
	return fmt.Errorf("portaudio sink not available (build with -tags portaudio)")
}

func (s *PortAudioSink) Push(samples []float32) {}

func (s *PortAudioSink) Stop() error { return nil }
