package ports

import (
	"context"
	"io"

	"airvoice/internal/domain"
)

// SignalPublisher accepts inbound signals from collaborators. Publish never
// blocks and never fails.
type SignalPublisher interface {
	Publish(sig domain.Signal)
}

// FrameSink receives one layer snapshot per tick. Delivery failures are the
// sink's concern; the core never waits on it.
type FrameSink interface {
	Frame(snap domain.Snapshot)
}

// Speaker voices a phrase for the audio-only accessibility path. Invoked
// fire-and-forget from the core.
type Speaker interface {
	Speak(ctx context.Context, phrase string) error
}

// ActionExecutor performs recognized voice commands on the host system.
type ActionExecutor interface {
	OpenApp(ctx context.Context, command string) error
	Search(ctx context.Context, query string) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, code string) error
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptPartial TranscriptKind = "partial"
	TranscriptFinal   TranscriptKind = "final"
)

// TranscriptEvent is incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind
	Text          string
	IsSpeechFinal bool
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}
