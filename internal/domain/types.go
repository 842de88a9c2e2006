package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a visual/behavioral mode of the overlay. Idle, Listening, Processing
// and Action are primary phases; Gesture and Keypad are modal overlay phases
// that coexist with a primary phase. PhaseNone is the "no overlay" value.
type Phase string

const (
	PhaseNone       Phase = "none"
	PhaseIdle       Phase = "idle"
	PhaseListening  Phase = "listening"
	PhaseProcessing Phase = "processing"
	PhaseAction     Phase = "action"
	PhaseGesture    Phase = "gesture"
	PhaseKeypad     Phase = "keypad"
)

// IsPrimary reports whether p is a primary phase.
func (p Phase) IsPrimary() bool {
	switch p {
	case PhaseIdle, PhaseListening, PhaseProcessing, PhaseAction:
		return true
	}
	return false
}

// IsOverlay reports whether p is a modal overlay phase.
func (p Phase) IsOverlay() bool {
	return p == PhaseGesture || p == PhaseKeypad
}

// SignalKind identifies an inbound event from a collaborator.
type SignalKind string

const (
	SignalMicStarted           SignalKind = "mic_started"
	SignalMicVolume            SignalKind = "mic_volume"
	SignalMicStopped           SignalKind = "mic_stopped"
	SignalCommandRecognized    SignalKind = "command_recognized"
	SignalActionExecuted       SignalKind = "action_executed"
	SignalHandDetected         SignalKind = "hand_detected"
	SignalHandLost             SignalKind = "hand_lost"
	SignalKeypadRequested      SignalKind = "keypad_requested"
	SignalKeypadKeySelected    SignalKind = "keypad_key_selected"
	SignalKeypadDismissed      SignalKind = "keypad_dismissed"
	SignalAccessibilityChanged SignalKind = "accessibility_changed"
	SignalPlacementChanged     SignalKind = "placement_changed"
)

// Signal is an immutable inbound event. Signals are totally ordered by bus
// arrival, never by Timestamp: sources run on independent clocks.
type Signal struct {
	ID        string     `json:"id"`
	Kind      SignalKind `json:"kind"`
	Source    string     `json:"source"`
	Timestamp time.Time  `json:"timestamp"`

	// Kind-specific payload. Only the field matching Kind is meaningful.
	Level         float64           `json:"level,omitempty"`
	Text          string            `json:"text,omitempty"`
	Pose          *HandPose         `json:"pose,omitempty"`
	Accessibility AccessibilityMode `json:"accessibility,omitempty"`
	Placement     PlacementMode     `json:"placement,omitempty"`
}

// NewSignal stamps a payload-free signal.
func NewSignal(kind SignalKind, source string) Signal {
	return Signal{ID: uuid.NewString(), Kind: kind, Source: source, Timestamp: time.Now()}
}

// NewMicVolume stamps a microphone level update. level is clamped to [0,1].
func NewMicVolume(source string, level float64) Signal {
	s := NewSignal(SignalMicVolume, source)
	s.Level = clamp01(level)
	return s
}

// NewText stamps a signal carrying text (recognized command, action message,
// selected key).
func NewText(kind SignalKind, source string, text string) Signal {
	s := NewSignal(kind, source)
	s.Text = text
	return s
}

// NewHandDetected stamps a hand pose observation.
func NewHandDetected(source string, pose HandPose) Signal {
	s := NewSignal(SignalHandDetected, source)
	s.Pose = &pose
	return s
}

// AccessibilityMode selects how outward visual/audio decisions are remapped.
type AccessibilityMode string

const (
	AccessibilityNormal    AccessibilityMode = "normal"
	AccessibilityMinimal   AccessibilityMode = "minimal"
	AccessibilityAudioOnly AccessibilityMode = "audio_only"
)

// PlacementMode selects where layer anchors are computed.
type PlacementMode string

const (
	PlacementTopLeft      PlacementMode = "top_left"
	PlacementTopRight     PlacementMode = "top_right"
	PlacementBottomLeft   PlacementMode = "bottom_left"
	PlacementBottomRight  PlacementMode = "bottom_right"
	PlacementBottomCenter PlacementMode = "bottom_center"
	PlacementCenter       PlacementMode = "center"
	PlacementFollowHand   PlacementMode = "follow_hand"
)

// Point is a screen coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandPose is the latest observation from the gesture tracker.
type HandPose struct {
	Palm         Point   `json:"palm"`
	Landmarks    []Point `json:"landmarks,omitempty"`
	ActiveFinger int     `json:"activeFinger"`
	HoverKey     string  `json:"hoverKey,omitempty"`
}

// LayerID names one of the four independently animated visual regions.
type LayerID string

const (
	LayerStatus   LayerID = "status"
	LayerGesture  LayerID = "gesture"
	LayerFeedback LayerID = "feedback"
	LayerKeypad   LayerID = "keypad"
)

// LayerIDs returns all layers in a fixed order.
func LayerIDs() []LayerID {
	return []LayerID{LayerStatus, LayerGesture, LayerFeedback, LayerKeypad}
}

// LayerContent is the phase-specific payload a layer renders.
type LayerContent struct {
	Caption   string    `json:"caption,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Level     float64   `json:"level,omitempty"`
	Rotation  float64   `json:"rotation,omitempty"`
	Scale     float64   `json:"scale,omitempty"`
	Pose      *HandPose `json:"pose,omitempty"`
	ActiveKey string    `json:"activeKey,omitempty"`
}

// LayerState is the renderable state of one layer. Opacity may stay above zero
// while Visible is false mid-fade; a hidden layer's opacity only ever moves
// toward zero, never jumps.
type LayerState struct {
	Visible  bool         `json:"visible"`
	Opacity  float64      `json:"opacity"`
	Progress float64      `json:"progress"`
	Anchor   Point        `json:"anchor"`
	Content  LayerContent `json:"content"`
}

// Curve selects the animation shape of a transition.
type Curve string

const (
	CurveFade   Curve = "fade"
	CurveExpand Curve = "expand"
	CurveRotate Curve = "rotate"
)

// Snapshot is one internally consistent view of all four layers, produced once
// per tick for the external renderer.
type Snapshot struct {
	At       time.Time         `json:"at"`
	Primary  Phase             `json:"primary"`
	Overlay  Phase             `json:"overlay"`
	Active   Phase             `json:"active"`
	Mode     AccessibilityMode `json:"mode"`
	Status   LayerState        `json:"status"`
	Gesture  LayerState        `json:"gesture"`
	Feedback LayerState        `json:"feedback"`
	Keypad   LayerState        `json:"keypad"`
}

// Layer returns the state for id. Unknown ids return the zero state.
func (s Snapshot) Layer(id LayerID) LayerState {
	switch id {
	case LayerStatus:
		return s.Status
	case LayerGesture:
		return s.Gesture
	case LayerFeedback:
		return s.Feedback
	case LayerKeypad:
		return s.Keypad
	}
	return LayerState{}
}

// SetLayer replaces the state for id.
func (s *Snapshot) SetLayer(id LayerID, state LayerState) {
	switch id {
	case LayerStatus:
		s.Status = state
	case LayerGesture:
		s.Gesture = state
	case LayerFeedback:
		s.Feedback = state
	case LayerKeypad:
		s.Keypad = state
	}
}

// ColorScheme is the qualitative palette handed to the renderer.
type ColorScheme struct {
	PrimaryGlow      string `json:"primaryGlow"`
	Listening        string `json:"listening"`
	Processing       string `json:"processing"`
	ActionBackground string `json:"actionBackground"`
	ActionText       string `json:"actionText"`
	GestureHighlight string `json:"gestureHighlight"`
}

// DefaultColors returns the stock cyan/blue/purple/white/green palette.
func DefaultColors() ColorScheme {
	return ColorScheme{
		PrimaryGlow:      "#00FFFF",
		Listening:        "#4A90D9",
		Processing:       "#9B59B6",
		ActionBackground: "rgba(255,255,255,0.15)",
		ActionText:       "#FFFFFF",
		GestureHighlight: "#2ECC71",
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
