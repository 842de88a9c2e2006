// Package voice runs the microphone collaborator: it captures PCM, meters
// levels, detects end of utterance by silence, streams audio to the
// transcription provider and turns the recognized text into commands. Its only
// interface to the overlay core is the signal bus.
package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"airvoice/internal/commands"
	"airvoice/internal/domain"
	"airvoice/internal/ports"
)

// Source is the signal source tag for voice events.
const Source = "voice"

// Config controls one capture/transcription session.
type Config struct {
	Audio            ports.AudioConfig
	Streaming        ports.StreamingConfig
	ChunkSize        int
	SilenceThreshold float64
	SilenceDuration  time.Duration
	LevelBoost       float64
	RestartDelay     time.Duration
}

// Manager drives repeated voice sessions until its context ends.
type Manager struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	proc     *commands.Processor
	exec     ports.ActionExecutor
	signals  ports.SignalPublisher
	log      *zap.Logger
	cfg      Config
}

// NewManager wires a voice manager.
func NewManager(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	proc *commands.Processor,
	exec ports.ActionExecutor,
	signals ports.SignalPublisher,
	log *zap.Logger,
	cfg Config,
) *Manager {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = 0.01
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = 3 * time.Second
	}
	if cfg.LevelBoost <= 0 {
		cfg.LevelBoost = 10
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		audio:    audio,
		provider: provider,
		proc:     proc,
		exec:     exec,
		signals:  signals,
		log:      log,
		cfg:      cfg,
	}
}

// Run loops voice sessions until ctx is cancelled. Session failures are logged
// and retried after a delay; the overlay keeps running without voice.
func (m *Manager) Run(ctx context.Context) {
	for {
		if err := m.session(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Warn("voice session failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.RestartDelay):
		}
	}
}

// session runs one listen->transcribe->execute round trip.
func (m *Manager) session(ctx context.Context) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := m.provider.StartStreaming(sessionCtx, m.cfg.Streaming)
	if err != nil {
		return err
	}
	capture, err := m.audio.Start(sessionCtx, m.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		return err
	}

	m.signals.Publish(domain.NewSignal(domain.SignalMicStarted, Source))

	collector := newTranscriptCollector()
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for event := range stream.Events() {
			collector.add(event)
		}
	}()

	pumpErr := m.pump(ctx, capture, stream)

	_ = capture.Stop()
	m.signals.Publish(domain.NewSignal(domain.SignalMicStopped, Source))

	_ = stream.CloseSend()
	streamErr := stream.Wait()
	<-eventsDone

	transcript := collector.text()
	if transcript == "" {
		if pumpErr != nil {
			return pumpErr
		}
		return streamErr
	}

	m.signals.Publish(domain.NewText(domain.SignalCommandRecognized, Source, transcript))
	m.dispatch(ctx, transcript)
	return nil
}

// pump reads PCM chunks, publishes volume levels and returns once the VAD
// decides the utterance ended (or the capture fails).
func (m *Manager) pump(ctx context.Context, capture ports.AudioSession, stream ports.StreamingSession) error {
	buf := make([]byte, m.cfg.ChunkSize)
	var (
		speaking     bool
		silenceSince time.Time
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := capture.Read(buf)
		if n > 0 {
			rms := meterRMS(buf[:n])
			m.signals.Publish(domain.NewMicVolume(Source, rms*m.cfg.LevelBoost))

			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				return sendErr
			}

			now := time.Now()
			if rms > m.cfg.SilenceThreshold {
				speaking = true
				silenceSince = time.Time{}
			} else if speaking {
				if silenceSince.IsZero() {
					silenceSince = now
				} else if now.Sub(silenceSince) > m.cfg.SilenceDuration {
					return nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// dispatch parses the transcript and publishes the resulting signal.
func (m *Manager) dispatch(ctx context.Context, transcript string) {
	intent := m.proc.Parse(transcript)
	if intent.Kind == commands.IntentKeypad {
		m.signals.Publish(domain.NewSignal(domain.SignalKeypadRequested, Source))
		return
	}
	feedback := m.proc.Execute(ctx, intent, m.exec)
	m.signals.Publish(domain.NewText(domain.SignalActionExecuted, Source, feedback))
}

// meterRMS computes the root-mean-square of little-endian s16 samples,
// normalized to [0,1].
func meterRMS(chunk []byte) float64 {
	samples := len(chunk) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(chunk); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(chunk[i:]))) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(samples))
}

// transcriptCollector joins final transcript segments, falling back to the
// last partial when no final ever arrived.
type transcriptCollector struct {
	finals      []string
	lastPartial string
}

func newTranscriptCollector() *transcriptCollector {
	return &transcriptCollector{}
}

func (c *transcriptCollector) add(event ports.TranscriptEvent) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	if event.Kind == ports.TranscriptFinal {
		c.finals = append(c.finals, text)
		return
	}
	c.lastPartial = text
}

func (c *transcriptCollector) text() string {
	if len(c.finals) > 0 {
		return strings.Join(c.finals, " ")
	}
	return c.lastPartial
}
