package config

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"airvoice/internal/domain"
)

// Config stores runtime configuration for the overlay.
type Config struct {
	Overlay  OverlayConfig
	Anim     AnimConfig
	Keypad   KeypadConfig
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Voice    VoiceConfig
	Gesture  GestureConfig
	Speech   SpeechConfig
}

type OverlayConfig struct {
	Placement     domain.PlacementMode
	Fallback      domain.PlacementMode
	Accessibility domain.AccessibilityMode
	ScreenWidth   int
	ScreenHeight  int
	Margin        int
	IndicatorSize int
	ToastWidth    int
	Colors        domain.ColorScheme
}

type AnimConfig struct {
	TickInterval    time.Duration
	FadeDuration    time.Duration
	ActionHold      time.Duration
	KeyFlash        time.Duration
	BreathingPeriod time.Duration
	BreathingMin    float64
	BreathingMax    float64
}

type KeypadConfig struct {
	LayoutPath string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type VoiceConfig struct {
	Enabled          bool
	ChunkSize        int
	SilenceThreshold float64
	SilenceDuration  time.Duration
	LevelBoost       float64
}

type GestureConfig struct {
	Enabled    bool
	TrackerURL string
}

type SpeechConfig struct {
	Command string
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	defaultLayout := filepath.Join(home, ".config", "airvoice", "keypad.yaml")
	layoutPath := strings.TrimSpace(os.Getenv("AIRVOICE_KEYPAD_LAYOUT"))
	if layoutPath == "" {
		layoutPath = defaultLayout
	}

	cfg := Config{
		Overlay: OverlayConfig{
			Placement:     placementMode(envOrDefault("AIRVOICE_PLACEMENT", "center")),
			Fallback:      placementMode(envOrDefault("AIRVOICE_FALLBACK_PLACEMENT", "bottom_right")),
			Accessibility: accessibilityMode(envOrDefault("AIRVOICE_ACCESSIBILITY", "normal")),
			ScreenWidth:   envOrDefaultInt("AIRVOICE_SCREEN_WIDTH", 1920),
			ScreenHeight:  envOrDefaultInt("AIRVOICE_SCREEN_HEIGHT", 1080),
			Margin:        envOrDefaultInt("AIRVOICE_MARGIN", 30),
			IndicatorSize: envOrDefaultInt("AIRVOICE_INDICATOR_SIZE", 80),
			ToastWidth:    envOrDefaultInt("AIRVOICE_TOAST_WIDTH", 300),
			Colors:        domain.DefaultColors(),
		},
		Anim: AnimConfig{
			TickInterval:    millis("AIRVOICE_TICK_MS", 16),
			FadeDuration:    millis("AIRVOICE_FADE_MS", 300),
			ActionHold:      millis("AIRVOICE_ACTION_HOLD_MS", 2000),
			KeyFlash:        millis("AIRVOICE_KEY_FLASH_MS", 150),
			BreathingPeriod: millis("AIRVOICE_BREATHING_MS", 3000),
			BreathingMin:    envOrDefaultFloat("AIRVOICE_BREATHING_MIN", 0.05),
			BreathingMax:    envOrDefaultFloat("AIRVOICE_BREATHING_MAX", 0.12),
		},
		Keypad: KeypadConfig{LayoutPath: layoutPath},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("AIRVOICE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("AIRVOICE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("AIRVOICE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("AIRVOICE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("AIRVOICE_CHANNELS", 1),
		},
		Voice: VoiceConfig{
			Enabled:          envOrDefaultBool("AIRVOICE_VOICE_ENABLED", true),
			ChunkSize:        envOrDefaultInt("AIRVOICE_AUDIO_CHUNK_SIZE", 4096),
			SilenceThreshold: envOrDefaultFloat("AIRVOICE_SILENCE_THRESHOLD", 0.01),
			SilenceDuration:  millis("AIRVOICE_SILENCE_MS", 3000),
			LevelBoost:       envOrDefaultFloat("AIRVOICE_LEVEL_BOOST", 10.0),
		},
		Gesture: GestureConfig{
			Enabled:    envOrDefaultBool("AIRVOICE_GESTURE_ENABLED", false),
			TrackerURL: envOrDefault("AIRVOICE_TRACKER_URL", "ws://127.0.0.1:8931/poses"),
		},
		Speech: SpeechConfig{
			Command: envOrDefault("AIRVOICE_SPEECH_COMMAND", defaultSpeechCommand()),
		},
	}

	if cfg.Overlay.ScreenWidth <= 0 {
		cfg.Overlay.ScreenWidth = 1920
	}
	if cfg.Overlay.ScreenHeight <= 0 {
		cfg.Overlay.ScreenHeight = 1080
	}
	if cfg.Anim.TickInterval <= 0 {
		cfg.Anim.TickInterval = 16 * time.Millisecond
	}
	if cfg.Anim.FadeDuration <= 0 {
		cfg.Anim.FadeDuration = 300 * time.Millisecond
	}
	if cfg.Anim.BreathingMax < cfg.Anim.BreathingMin {
		cfg.Anim.BreathingMax = cfg.Anim.BreathingMin
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Voice.ChunkSize < 256 {
		cfg.Voice.ChunkSize = 4096
	}

	return cfg, nil
}

func placementMode(value string) domain.PlacementMode {
	switch domain.PlacementMode(strings.ToLower(strings.TrimSpace(value))) {
	case domain.PlacementTopLeft:
		return domain.PlacementTopLeft
	case domain.PlacementTopRight:
		return domain.PlacementTopRight
	case domain.PlacementBottomLeft:
		return domain.PlacementBottomLeft
	case domain.PlacementBottomRight:
		return domain.PlacementBottomRight
	case domain.PlacementBottomCenter:
		return domain.PlacementBottomCenter
	case domain.PlacementFollowHand:
		return domain.PlacementFollowHand
	default:
		return domain.PlacementCenter
	}
}

func accessibilityMode(value string) domain.AccessibilityMode {
	switch domain.AccessibilityMode(strings.ToLower(strings.TrimSpace(value))) {
	case domain.AccessibilityMinimal:
		return domain.AccessibilityMinimal
	case domain.AccessibilityAudioOnly:
		return domain.AccessibilityAudioOnly
	default:
		return domain.AccessibilityNormal
	}
}

func defaultSpeechCommand() string {
	for _, candidate := range []string{"espeak-ng", "espeak", "say"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return "espeak-ng"
}

func millis(key string, fallback int) time.Duration {
	value := envOrDefaultInt(key, fallback)
	if value < 0 {
		value = fallback
	}
	return time.Duration(value) * time.Millisecond
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
