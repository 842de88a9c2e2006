// Package phase owns the overlay's current phase. The machine tracks a primary
// phase (Idle/Listening/Processing/Action) and an overlay phase (None/Gesture/
// Keypad) as a pair, so a gesture or keypad detour never erases the primary
// state it interrupted. All transitions are total: a signal that does not apply
// to the current pair is counted and logged, never an error.
package phase

import (
	"time"

	"go.uber.org/zap"

	"airvoice/internal/domain"
)

// Change describes the outcome of applying one signal (or an internal timer).
type Change struct {
	FromPrimary domain.Phase
	ToPrimary   domain.Phase
	FromOverlay domain.Phase
	ToOverlay   domain.Phase

	// ContentOnly marks a self-loop that updated phase content without moving
	// either phase (MicVolume wave level, Processing caption, key highlight).
	ContentOnly bool

	// Phrase-relevant payload for the entered phase, if any.
	Message string
}

// PrimaryChanged reports whether the primary phase moved.
func (c Change) PrimaryChanged() bool { return c.FromPrimary != c.ToPrimary }

// OverlayChanged reports whether the overlay phase moved.
func (c Change) OverlayChanged() bool { return c.FromOverlay != c.ToOverlay }

// Content is the machine-owned phase content mirrored into layer payloads.
type Content struct {
	AudioLevel    float64
	Caption       string
	ActionMessage string
	Pose          *domain.HandPose
	ActiveKey     string
}

// Machine is the single authority for the current phase pair. It is not safe
// for concurrent use; the controller serializes Apply and Tick on one loop.
type Machine struct {
	log *zap.Logger

	primary domain.Phase
	overlay domain.Phase
	content Content

	// Action auto-revert: the only autonomous transition. Armed on entering
	// Action, cleared by any signal that causes a transition, checked
	// synchronously by Tick.
	holdFor      time.Duration
	holdDeadline time.Time

	// Key highlight flash decay. Content-only, tick-driven.
	flashFor      time.Duration
	flashDeadline time.Time

	ignored      map[domain.SignalKind]uint64
	ignoredTotal uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithActionHold overrides the Action phase hold duration.
func WithActionHold(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.holdFor = d
		}
	}
}

// WithKeyFlash overrides the keypad highlight flash duration.
func WithKeyFlash(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.flashFor = d
		}
	}
}

// New returns a machine in (Idle, None).
func New(log *zap.Logger, opts ...Option) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Machine{
		log:      log,
		primary:  domain.PhaseIdle,
		overlay:  domain.PhaseNone,
		holdFor:  2000 * time.Millisecond,
		flashFor: 150 * time.Millisecond,
		ignored:  make(map[domain.SignalKind]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Primary returns the current primary phase.
func (m *Machine) Primary() domain.Phase { return m.primary }

// Overlay returns the current overlay phase (PhaseNone when no overlay).
func (m *Machine) Overlay() domain.Phase { return m.overlay }

// Active returns the phase the renderer should foreground: the overlay when
// one is up, otherwise the primary.
func (m *Machine) Active() domain.Phase {
	if m.overlay != domain.PhaseNone {
		return m.overlay
	}
	return m.primary
}

// Content returns a copy of the current phase content.
func (m *Machine) Content() Content { return m.content }

// HoldArmed reports whether the Action auto-revert is pending.
func (m *Machine) HoldArmed() bool { return !m.holdDeadline.IsZero() }

// Ignored returns the diagnostics counters for inapplicable signals.
func (m *Machine) Ignored() (total uint64, byKind map[domain.SignalKind]uint64) {
	out := make(map[domain.SignalKind]uint64, len(m.ignored))
	for k, v := range m.ignored {
		out[k] = v
	}
	return m.ignoredTotal, out
}

// Apply consumes one signal and returns the resulting change. applied is false
// when the signal was inapplicable and counted. Configuration signals
// (accessibility, placement) are not the machine's concern and are counted as
// applied no-ops by the caller, not routed here.
func (m *Machine) Apply(sig domain.Signal, now time.Time) (Change, bool) {
	change := Change{
		FromPrimary: m.primary, ToPrimary: m.primary,
		FromOverlay: m.overlay, ToOverlay: m.overlay,
	}

	switch sig.Kind {
	case domain.SignalMicStarted:
		if m.primary != domain.PhaseIdle {
			return change, m.ignore(sig)
		}
		m.primary = domain.PhaseListening
		m.content.AudioLevel = 0
		m.content.Caption = ""

	case domain.SignalMicVolume:
		if m.primary != domain.PhaseListening {
			return change, m.ignore(sig)
		}
		m.content.AudioLevel = sig.Level
		change.ContentOnly = true

	case domain.SignalMicStopped:
		if m.primary != domain.PhaseListening {
			return change, m.ignore(sig)
		}
		m.primary = domain.PhaseProcessing
		m.content.Caption = ""

	case domain.SignalCommandRecognized:
		if m.primary != domain.PhaseProcessing {
			return change, m.ignore(sig)
		}
		m.content.Caption = sig.Text
		change.ContentOnly = true

	case domain.SignalActionExecuted:
		if m.primary != domain.PhaseProcessing {
			return change, m.ignore(sig)
		}
		m.primary = domain.PhaseAction
		m.content.ActionMessage = sig.Text
		change.Message = sig.Text

	case domain.SignalHandDetected:
		m.content.Pose = sig.Pose
		switch m.overlay {
		case domain.PhaseNone:
			m.overlay = domain.PhaseGesture
		default:
			// Already in Gesture or Keypad: the pose feeds hover/anchor only.
			change.ContentOnly = true
		}

	case domain.SignalHandLost:
		if m.overlay != domain.PhaseGesture {
			return change, m.ignore(sig)
		}
		m.overlay = domain.PhaseNone
		m.content.Pose = nil

	case domain.SignalKeypadRequested:
		if m.overlay == domain.PhaseKeypad {
			return change, m.ignore(sig)
		}
		m.overlay = domain.PhaseKeypad
		m.content.ActiveKey = ""

	case domain.SignalKeypadKeySelected:
		if m.overlay != domain.PhaseKeypad {
			return change, m.ignore(sig)
		}
		m.content.ActiveKey = sig.Text
		m.flashDeadline = now.Add(m.flashFor)
		change.ContentOnly = true

	case domain.SignalKeypadDismissed:
		if m.overlay != domain.PhaseKeypad {
			return change, m.ignore(sig)
		}
		m.overlay = domain.PhaseNone
		m.content.ActiveKey = ""

	default:
		return change, m.ignore(sig)
	}

	change.ToPrimary = m.primary
	change.ToOverlay = m.overlay

	if change.PrimaryChanged() || change.OverlayChanged() {
		// Any externally triggered transition cancels a pending auto-revert.
		m.holdDeadline = time.Time{}
		m.log.Debug("phase transition",
			zap.String("signal", string(sig.Kind)),
			zap.String("primary", string(m.primary)),
			zap.String("overlay", string(m.overlay)))
	}
	return change, true
}

// ArmHold schedules the Action auto-revert. The controller arms it once the
// Action fade-in plan is created, passing that plan's duration so the hold
// covers fade-in plus the configured visible hold.
func (m *Machine) ArmHold(now time.Time, fadeIn time.Duration) {
	if m.primary != domain.PhaseAction {
		return
	}
	m.holdDeadline = now.Add(fadeIn + m.holdFor)
}

// Tick checks internal deadlines. It returns the Action auto-revert change
// when the hold expired, and reports whether the key highlight decayed.
func (m *Machine) Tick(now time.Time) (change Change, reverted bool, flashEnded bool) {
	if !m.flashDeadline.IsZero() && !now.Before(m.flashDeadline) {
		m.flashDeadline = time.Time{}
		m.content.ActiveKey = ""
		flashEnded = true
	}

	if m.holdDeadline.IsZero() || now.Before(m.holdDeadline) {
		return Change{}, false, flashEnded
	}
	m.holdDeadline = time.Time{}
	if m.primary != domain.PhaseAction {
		return Change{}, false, flashEnded
	}

	change = Change{
		FromPrimary: domain.PhaseAction, ToPrimary: domain.PhaseIdle,
		FromOverlay: m.overlay, ToOverlay: m.overlay,
	}
	m.primary = domain.PhaseIdle
	m.content.ActionMessage = ""
	m.log.Debug("action hold elapsed, reverting to idle")
	return change, true, flashEnded
}

func (m *Machine) ignore(sig domain.Signal) bool {
	m.ignored[sig.Kind]++
	m.ignoredTotal++
	m.log.Debug("ignored signal",
		zap.String("signal", string(sig.Kind)),
		zap.String("primary", string(m.primary)),
		zap.String("overlay", string(m.overlay)))
	return false
}
