package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"airvoice/internal/actions"
	"airvoice/internal/audio"
	"airvoice/internal/commands"
	"airvoice/internal/config"
	"airvoice/internal/gesture"
	"airvoice/internal/keypad"
	"airvoice/internal/ports"
	"airvoice/internal/position"
	"airvoice/internal/providers/deepgram"
	"airvoice/internal/speech"
	"airvoice/internal/usecase"
	"airvoice/internal/voice"
)

// Services holds the wired application graph. The controller is always
// present; voice and gesture are nil when disabled by configuration.
type Services struct {
	Config     config.Config
	Controller *usecase.OverlayController
	Voice      *voice.Manager
	Gesture    *gesture.Feed
	Speaker    ports.Speaker
	Executor   ports.ActionExecutor
}

// Build loads configuration and assembles the overlay services around the
// given frame sink.
func Build(frames ports.FrameSink, log *zap.Logger) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return BuildWith(cfg, frames, log)
}

// BuildWith assembles services from an already resolved configuration.
func BuildWith(cfg config.Config, frames ports.FrameSink, log *zap.Logger) (*Services, error) {
	if log == nil {
		log = zap.NewNop()
	}

	layout, err := keypad.Load(cfg.Keypad.LayoutPath)
	if err != nil {
		return nil, fmt.Errorf("load keypad layout: %w", err)
	}

	speaker := speech.NewCommandSpeaker(cfg.Speech.Command, log.Named("speech"))

	controller := usecase.NewOverlayController(frames, speaker, log.Named("core"), usecase.Config{
		TickInterval:    cfg.Anim.TickInterval,
		FadeDuration:    cfg.Anim.FadeDuration,
		ActionHold:      cfg.Anim.ActionHold,
		KeyFlash:        cfg.Anim.KeyFlash,
		BreathingPeriod: cfg.Anim.BreathingPeriod,
		BreathingMin:    cfg.Anim.BreathingMin,
		BreathingMax:    cfg.Anim.BreathingMax,
		Screen: position.Screen{
			Width:         float64(cfg.Overlay.ScreenWidth),
			Height:        float64(cfg.Overlay.ScreenHeight),
			Margin:        float64(cfg.Overlay.Margin),
			IndicatorSize: float64(cfg.Overlay.IndicatorSize),
		},
		Placement:     cfg.Overlay.Placement,
		Fallback:      cfg.Overlay.Fallback,
		Accessibility: cfg.Overlay.Accessibility,
		KeypadLayout:  layout,
	})

	executor := actions.NewSystemExecutor("", "", log.Named("actions"))

	svc := &Services{
		Config:     cfg,
		Controller: controller,
		Speaker:    speaker,
		Executor:   executor,
	}

	if cfg.Voice.Enabled {
		capture := audio.NewCapture(cfg.Audio.RecorderCommand, log.Named("audio"))
		provider := deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		})
		svc.Voice = voice.NewManager(capture, provider, commands.New(), executor, controller, log.Named("voice"), voice.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize:        cfg.Voice.ChunkSize,
			SilenceThreshold: cfg.Voice.SilenceThreshold,
			SilenceDuration:  cfg.Voice.SilenceDuration,
			LevelBoost:       cfg.Voice.LevelBoost,
		})
	}

	if cfg.Gesture.Enabled {
		svc.Gesture = gesture.NewFeed(cfg.Gesture.TrackerURL, controller, log.Named("gesture"))
	}

	return svc, nil
}
