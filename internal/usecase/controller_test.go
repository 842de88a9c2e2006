package usecase

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"airvoice/internal/domain"
	"airvoice/internal/position"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []domain.Snapshot
}

func (r *frameRecorder) Frame(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, snap)
}

func (r *frameRecorder) last() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return domain.Snapshot{}
	}
	return r.frames[len(r.frames)-1]
}

type phraseRecorder struct {
	mu      sync.Mutex
	phrases []string
}

func (r *phraseRecorder) Speak(_ context.Context, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phrases = append(r.phrases, phrase)
	return nil
}

func (r *phraseRecorder) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.phrases...)
}

func testConfig() Config {
	return Config{
		TickInterval: 16 * time.Millisecond,
		FadeDuration: 300 * time.Millisecond,
		ActionHold:   2 * time.Second,
		KeyFlash:     150 * time.Millisecond,
		Screen:       position.Screen{Width: 1920, Height: 1080, Margin: 30, IndicatorSize: 80},
		Placement:    domain.PlacementCenter,
	}
}

// run the controller through the full voice pipeline with fake time.
func TestVoiceCommandScenario(t *testing.T) {
	t.Parallel()

	frames := &frameRecorder{}
	c := NewOverlayController(frames, &phraseRecorder{}, zap.NewNop(), testConfig())
	now := time.Now()

	snap := c.step(now)
	require.Equal(t, domain.PhaseIdle, snap.Primary)
	require.True(t, snap.Status.Visible)

	c.Publish(domain.NewSignal(domain.SignalMicStarted, "voice"))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseListening, snap.Primary)
	assert.Equal(t, "mic", snap.Status.Content.Icon)

	// Volume updates feed the waveform without moving the phase.
	c.Publish(domain.NewMicVolume("voice", 0.3))
	c.Publish(domain.NewMicVolume("voice", 0.7))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseListening, snap.Primary)
	assert.InDelta(t, 0.7, snap.Status.Content.Level, 1e-9, "coalescing keeps the latest level")

	c.Publish(domain.NewSignal(domain.SignalMicStopped, "voice"))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseProcessing, snap.Primary)

	c.Publish(domain.NewText(domain.SignalCommandRecognized, "voice", "open firefox"))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseProcessing, snap.Primary)
	assert.Equal(t, "open firefox", snap.Status.Content.Caption)

	c.Publish(domain.NewText(domain.SignalActionExecuted, "voice", "Opening firefox..."))
	actionAt := now.Add(16 * time.Millisecond)
	now = actionAt
	snap = c.step(now)
	assert.Equal(t, domain.PhaseAction, snap.Primary)
	assert.Equal(t, "Opening firefox...", snap.Feedback.Content.Caption)

	// Let the fade-in finish: the toast is fully visible.
	now = now.Add(300 * time.Millisecond)
	snap = c.step(now)
	assert.True(t, snap.Feedback.Visible)
	assert.InDelta(t, 0.95, snap.Feedback.Opacity, 1e-9)

	// Before the hold elapses the phase stays put.
	now = actionAt.Add(300*time.Millisecond + 1900*time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseAction, snap.Primary)

	// Past fade-in plus hold the overlay reverts on its own.
	now = actionAt.Add(300*time.Millisecond + 2100*time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseIdle, snap.Primary)

	// The toast fades back out.
	now = now.Add(400 * time.Millisecond)
	snap = c.step(now)
	assert.False(t, snap.Feedback.Visible)
	assert.InDelta(t, 0.4, snap.Status.Opacity, 0.1, "status settles near idle opacity")
}

func TestKeypadScenario(t *testing.T) {
	t.Parallel()

	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), testConfig())
	now := time.Now()
	c.step(now)

	c.Publish(domain.NewSignal(domain.SignalKeypadRequested, "ui"))
	now = now.Add(16 * time.Millisecond)
	snap := c.step(now)
	assert.Equal(t, domain.PhaseIdle, snap.Primary, "keypad never moves the primary phase")
	assert.Equal(t, domain.PhaseKeypad, snap.Overlay)
	assert.Equal(t, domain.PhaseKeypad, snap.Active)

	// The keypad grid is centered regardless of placement.
	now = now.Add(300 * time.Millisecond)
	snap = c.step(now)
	assert.True(t, snap.Keypad.Visible)
	assert.Equal(t, domain.Point{X: 960, Y: 540}, snap.Keypad.Anchor)

	c.Publish(domain.NewText(domain.SignalKeypadKeySelected, "ui", "g"))
	now = now.Add(16 * time.Millisecond)
	flashAt := now
	snap = c.step(now)
	assert.Equal(t, "g", snap.Keypad.Content.ActiveKey)

	// The highlight decays after the flash window.
	now = flashAt.Add(200 * time.Millisecond)
	snap = c.step(now)
	assert.Empty(t, snap.Keypad.Content.ActiveKey)

	// Unknown key codes are dropped before reaching the machine.
	c.Publish(domain.NewText(domain.SignalKeypadKeySelected, "ui", "nosuchkey"))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Empty(t, snap.Keypad.Content.ActiveKey)

	c.Publish(domain.NewSignal(domain.SignalKeypadDismissed, "ui"))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseNone, snap.Overlay)

	now = now.Add(400 * time.Millisecond)
	snap = c.step(now)
	assert.False(t, snap.Keypad.Visible)
}

func TestGestureDetourScenario(t *testing.T) {
	t.Parallel()

	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), testConfig())
	now := time.Now()
	c.step(now)

	c.Publish(domain.NewSignal(domain.SignalMicStarted, "voice"))
	now = now.Add(16 * time.Millisecond)
	c.step(now)

	c.Publish(domain.NewHandDetected("gesture", domain.HandPose{Palm: domain.Point{X: 0.5, Y: 0.5}}))
	now = now.Add(16 * time.Millisecond)
	snap := c.step(now)
	assert.Equal(t, domain.PhaseListening, snap.Primary, "gesture preserves the primary phase")
	assert.Equal(t, domain.PhaseGesture, snap.Overlay)
	require.NotNil(t, snap.Gesture.Content.Pose)

	c.Publish(domain.NewSignal(domain.SignalHandLost, "gesture"))
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)
	assert.Equal(t, domain.PhaseListening, snap.Primary)
	assert.Equal(t, domain.PhaseNone, snap.Overlay)
}

func TestAudioOnlySpeaksEachEntryOnce(t *testing.T) {
	t.Parallel()

	speaker := &phraseRecorder{}
	c := NewOverlayController(&frameRecorder{}, speaker, zap.NewNop(), testConfig())
	now := time.Now()
	c.step(now)

	mode := domain.NewSignal(domain.SignalAccessibilityChanged, "ui")
	mode.Accessibility = domain.AccessibilityAudioOnly
	c.Publish(mode)
	c.Publish(domain.NewSignal(domain.SignalMicStarted, "voice"))
	now = now.Add(16 * time.Millisecond)
	snap := c.step(now)

	for _, id := range domain.LayerIDs() {
		st := snap.Layer(id)
		assert.False(t, st.Visible, "audio-only hides %s", id)
		assert.Zero(t, st.Opacity)
	}

	require.Eventually(t, func() bool {
		return len(speaker.spoken()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Listening"}, speaker.spoken())

	// Content self-loops and further ticks never re-announce the phase.
	c.Publish(domain.NewMicVolume("voice", 0.5))
	for i := 0; i < 20; i++ {
		now = now.Add(16 * time.Millisecond)
		c.step(now)
	}
	assert.Equal(t, []string{"Listening"}, speaker.spoken())

	c.Publish(domain.NewSignal(domain.SignalMicStopped, "voice"))
	now = now.Add(16 * time.Millisecond)
	c.step(now)
	require.Eventually(t, func() bool {
		return len(speaker.spoken()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Processing", speaker.spoken()[1])
}

func TestNormalModeNeverSpeaks(t *testing.T) {
	t.Parallel()

	speaker := &phraseRecorder{}
	c := NewOverlayController(&frameRecorder{}, speaker, zap.NewNop(), testConfig())
	now := time.Now()

	c.Publish(domain.NewSignal(domain.SignalMicStarted, "voice"))
	c.Publish(domain.NewSignal(domain.SignalMicStopped, "voice"))
	now = now.Add(16 * time.Millisecond)
	c.step(now)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, speaker.spoken())
}

func TestPlacementChangeMovesAnchor(t *testing.T) {
	t.Parallel()

	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), testConfig())
	now := time.Now()
	snap := c.step(now)
	center := snap.Status.Anchor

	sig := domain.NewSignal(domain.SignalPlacementChanged, "ui")
	sig.Placement = domain.PlacementTopLeft
	c.Publish(sig)
	now = now.Add(16 * time.Millisecond)
	snap = c.step(now)

	assert.NotEqual(t, center, snap.Status.Anchor)
	assert.Equal(t, domain.Point{X: 30, Y: 30}, snap.Status.Anchor)
}

func TestDiagnosticsCountIgnoredSignals(t *testing.T) {
	t.Parallel()

	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), testConfig())
	now := time.Now()

	// Inapplicable while idle.
	c.Publish(domain.NewSignal(domain.SignalMicStopped, "voice"))
	c.Publish(domain.NewMicVolume("voice", 0.4))
	now = now.Add(16 * time.Millisecond)
	c.step(now)

	diag := c.Diagnostics()
	assert.Equal(t, uint64(2), diag.IgnoredSignals)
	assert.Equal(t, uint64(1), diag.IgnoredByKind[domain.SignalMicStopped])
	assert.NotZero(t, diag.SignalsPublished)
}

func TestSnapshotReadableWhileRunning(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.TickInterval = time.Millisecond
	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	c.Publish(domain.NewSignal(domain.SignalMicStarted, "voice"))
	require.Eventually(t, func() bool {
		return c.Snapshot().Primary == domain.PhaseListening
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop on cancellation")
	}
}

func TestPublishZeroKindDropped(t *testing.T) {
	t.Parallel()

	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), testConfig())
	c.Publish(domain.Signal{})
	c.step(time.Now())

	diag := c.Diagnostics()
	assert.Zero(t, diag.SignalsPublished)
}

func TestBreathingHandsOffWithoutJump(t *testing.T) {
	t.Parallel()

	c := NewOverlayController(&frameRecorder{}, &phraseRecorder{}, zap.NewNop(), testConfig())
	now := time.Now()

	// Let the idle glow climb toward the crest of its pulse.
	var before float64
	for i := 0; i < 60; i++ {
		now = now.Add(16 * time.Millisecond)
		before = c.step(now).Status.Opacity
	}
	require.Greater(t, math.Abs(before-0.4), 0.02, "breathing moved the glow off the rest opacity")

	c.Publish(domain.NewSignal(domain.SignalMicStarted, "voice"))
	now = now.Add(16 * time.Millisecond)
	after := c.step(now).Status.Opacity
	assert.InDelta(t, before, after, 0.02, "the fade departs from the breathing opacity")
}
