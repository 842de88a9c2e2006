package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"airvoice/internal/access"
	"airvoice/internal/anim"
	"airvoice/internal/bus"
	"airvoice/internal/domain"
	"airvoice/internal/keypad"
	"airvoice/internal/layers"
	"airvoice/internal/phase"
	"airvoice/internal/ports"
	"airvoice/internal/position"
)

// Config controls the overlay core.
type Config struct {
	TickInterval    time.Duration
	FadeDuration    time.Duration
	ActionHold      time.Duration
	KeyFlash        time.Duration
	BreathingPeriod time.Duration
	BreathingMin    float64
	BreathingMax    float64

	Screen        position.Screen
	Placement     domain.PlacementMode
	Fallback      domain.PlacementMode
	Accessibility domain.AccessibilityMode
	Targets       anim.Targets
	KeypadLayout  keypad.Layout
}

func (c *Config) fillDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 16 * time.Millisecond
	}
	if c.FadeDuration <= 0 {
		c.FadeDuration = 300 * time.Millisecond
	}
	if c.ActionHold <= 0 {
		c.ActionHold = 2000 * time.Millisecond
	}
	if c.KeyFlash <= 0 {
		c.KeyFlash = 150 * time.Millisecond
	}
	if c.BreathingPeriod <= 0 {
		c.BreathingPeriod = 3000 * time.Millisecond
	}
	if c.BreathingMin <= 0 {
		c.BreathingMin = 0.05
	}
	if c.BreathingMax <= 0 {
		c.BreathingMax = 0.12
	}
	if c.Accessibility == "" {
		c.Accessibility = domain.AccessibilityNormal
	}
	if c.Targets == (anim.Targets{}) {
		c.Targets = anim.DefaultTargets()
	}
	if len(c.KeypadLayout.Rows) == 0 {
		c.KeypadLayout = keypad.Default()
	}
}

// Diagnostics is a point-in-time view of the core's counters.
type Diagnostics struct {
	IgnoredSignals   uint64                       `json:"ignoredSignals"`
	IgnoredByKind    map[domain.SignalKind]uint64 `json:"ignoredByKind"`
	SignalsPublished uint64                       `json:"signalsPublished"`
	SignalsCoalesced uint64                       `json:"signalsCoalesced"`
}

// OverlayController is the single mutation path of the overlay core: it drains
// the bus, applies signals to the state machine, advances transition plans and
// publishes one consistent snapshot per tick. All mutable state is touched
// only by the tick loop; concurrent readers observe the last completed tick.
type OverlayController struct {
	log      *zap.Logger
	signals  *bus.Bus
	machine  *phase.Machine
	sched    *anim.Scheduler
	coord    *layers.Coordinator
	resolver *position.Resolver
	frames   ports.FrameSink
	speaker  ports.Speaker
	cfg      Config

	mode domain.AccessibilityMode

	epoch      time.Time
	lastTickAt time.Time
	spinner    float64

	lastSnap atomic.Value // domain.Snapshot
	lastDiag atomic.Value // Diagnostics
}

// NewOverlayController assembles the core.
func NewOverlayController(frames ports.FrameSink, speaker ports.Speaker, log *zap.Logger, cfg Config) *OverlayController {
	cfg.fillDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	c := &OverlayController{
		log:     log,
		signals: bus.New(),
		machine: phase.New(log,
			phase.WithActionHold(cfg.ActionHold),
			phase.WithKeyFlash(cfg.KeyFlash)),
		sched:    anim.NewScheduler(cfg.FadeDuration, cfg.Targets),
		coord:    layers.New(cfg.Targets.Idle),
		resolver: position.New(cfg.Screen, cfg.Placement, cfg.Fallback, float64(time.Second/cfg.TickInterval)),
		frames:   frames,
		speaker:  speaker,
		cfg:      cfg,
		mode:     cfg.Accessibility,
	}
	now := time.Now()
	c.epoch = now
	c.lastTickAt = now
	c.lastSnap.Store(c.coord.Snapshot(now, domain.PhaseIdle, domain.PhaseNone, domain.PhaseIdle, c.mode))
	c.lastDiag.Store(Diagnostics{IgnoredByKind: map[domain.SignalKind]uint64{}})
	return c
}

// Publish hands a signal to the core. It never blocks and never fails.
func (c *OverlayController) Publish(sig domain.Signal) {
	if sig.Kind == "" {
		return
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now()
	}
	c.signals.Publish(sig)
}

// Snapshot returns the accessibility-remapped snapshot of the last tick.
func (c *OverlayController) Snapshot() domain.Snapshot {
	return c.lastSnap.Load().(domain.Snapshot)
}

// Diagnostics returns the counters as of the last tick.
func (c *OverlayController) Diagnostics() Diagnostics {
	return c.lastDiag.Load().(Diagnostics)
}

// KeypadLayout returns the configured key grid.
func (c *OverlayController) KeypadLayout() keypad.Layout {
	return c.cfg.KeypadLayout
}

// Run drives the tick loop until ctx is cancelled.
func (c *OverlayController) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.step(now)
		}
	}
}

// step is one cooperative tick: apply pending signals in arrival order, check
// internal timers, advance animation, recompute anchors and publish the
// snapshot. It never blocks; slow work (speech, rendering) is handed off.
func (c *OverlayController) step(now time.Time) domain.Snapshot {
	dt := now.Sub(c.lastTickAt)
	if dt < 0 {
		dt = 0
	}
	c.lastTickAt = now

	var phrases []string

	for _, sig := range c.signals.Drain() {
		switch sig.Kind {
		case domain.SignalAccessibilityChanged:
			c.setMode(sig.Accessibility)
			continue
		case domain.SignalPlacementChanged:
			c.resolver.SetMode(sig.Placement)
			continue
		case domain.SignalKeypadKeySelected:
			if !c.cfg.KeypadLayout.HasKey(sig.Text) {
				c.log.Debug("unknown keypad key", zap.String("key", sig.Text))
				continue
			}
		}

		change, applied := c.machine.Apply(sig, now)
		if !applied {
			continue
		}
		if sig.Pose != nil {
			c.resolver.ObservePose(sig.Pose.Palm)
		}
		c.applyChange(change, now, &phrases)
	}

	if change, reverted, _ := c.machine.Tick(now); reverted {
		c.applyChange(change, now, &phrases)
	}

	for id, f := range c.sched.Tick(now) {
		c.coord.SetFrame(id, f.Visible, f.Opacity, f.Progress, f.Scale, f.Rotation)
	}
	c.animateContent(now, dt)
	c.placeLayers()

	primary, overlay := c.machine.Primary(), c.machine.Overlay()
	snap := c.coord.Snapshot(now, primary, overlay, c.machine.Active(), c.mode)
	out := access.Remap(c.mode, snap)
	c.lastSnap.Store(out)
	c.storeDiagnostics()

	if c.frames != nil {
		c.frames.Frame(out)
	}
	for _, phrase := range phrases {
		c.speak(phrase)
	}
	return out
}

// applyChange schedules transition plans and collects spoken phrases for a
// state machine change.
func (c *OverlayController) applyChange(change phase.Change, now time.Time, phrases *[]string) {
	if change.PrimaryChanged() {
		c.sched.PlanPrimary(change.FromPrimary, change.ToPrimary, now)
		if change.ToPrimary == domain.PhaseAction {
			c.machine.ArmHold(now, c.sched.FadeDuration())
		}
		if phrase, ok := access.PhraseForEntry(c.mode, change.ToPrimary, change.Message); ok {
			*phrases = append(*phrases, phrase)
		}
	}
	if change.OverlayChanged() {
		c.sched.PlanOverlay(change.FromOverlay, change.ToOverlay, now)
		if phrase, ok := access.PhraseForEntry(c.mode, change.ToOverlay, ""); ok {
			*phrases = append(*phrases, phrase)
		}
	}
}

// animateContent mirrors machine content into layer payloads and advances the
// content-level animations (waveform level, spinner rotation, idle breathing).
func (c *OverlayController) animateContent(now time.Time, dt time.Duration) {
	content := c.machine.Content()
	primary, overlay := c.machine.Primary(), c.machine.Overlay()

	if primary == domain.PhaseProcessing {
		// Half a turn per second, continuing past the transition rotation.
		c.spinner += 180 * dt.Seconds()
		for c.spinner >= 360 {
			c.spinner -= 360
		}
	} else if primary != domain.PhaseListening {
		c.spinner = 0
	}
	spinner := c.spinner

	c.coord.UpdateContent(domain.LayerStatus, func(lc *domain.LayerContent) {
		lc.Icon = statusIcon(primary)
		lc.Caption = content.Caption
		lc.Level = content.AudioLevel
		if primary == domain.PhaseProcessing {
			lc.Rotation = spinner
		}
	})
	c.coord.UpdateContent(domain.LayerFeedback, func(lc *domain.LayerContent) {
		lc.Caption = content.ActionMessage
	})
	c.coord.UpdateContent(domain.LayerGesture, func(lc *domain.LayerContent) {
		lc.Pose = content.Pose
	})
	c.coord.UpdateContent(domain.LayerKeypad, func(lc *domain.LayerContent) {
		lc.ActiveKey = content.ActiveKey
	})

	// Idle breathing modulates the Status glow only while no plan owns the
	// layer, so transitions always win.
	if primary == domain.PhaseIdle && overlay == domain.PhaseNone && !c.sched.InFlight(domain.LayerStatus) {
		breath := anim.Breathing(now.Sub(c.epoch).Seconds(), c.cfg.BreathingPeriod.Seconds(), c.cfg.BreathingMin, c.cfg.BreathingMax)
		opacity := c.cfg.Targets.Idle + breath - (c.cfg.BreathingMin+c.cfg.BreathingMax)/2
		if opacity < 0 {
			opacity = 0
		}
		if opacity > 1 {
			opacity = 1
		}
		c.coord.SetOpacity(domain.LayerStatus, opacity)
		// Keep the scheduler's baseline on the painted value so the next
		// plan departs from it instead of snapping back to the rest target.
		c.sched.SetOpacity(domain.LayerStatus, opacity)
	}
}

func (c *OverlayController) placeLayers() {
	c.resolver.Tick()
	for _, id := range domain.LayerIDs() {
		c.coord.SetAnchor(id, c.resolver.LayerAnchor(id))
	}
}

func (c *OverlayController) setMode(mode domain.AccessibilityMode) {
	switch mode {
	case domain.AccessibilityNormal, domain.AccessibilityMinimal, domain.AccessibilityAudioOnly:
	default:
		return
	}
	if mode == c.mode {
		return
	}
	c.mode = mode
	c.log.Info("accessibility mode changed", zap.String("mode", string(mode)))
}

func (c *OverlayController) storeDiagnostics() {
	total, byKind := c.machine.Ignored()
	published, coalesced := c.signals.Stats()
	c.lastDiag.Store(Diagnostics{
		IgnoredSignals:   total,
		IgnoredByKind:    byKind,
		SignalsPublished: published,
		SignalsCoalesced: coalesced,
	})
}

// speak hands a phrase to the speech collaborator without waiting on it.
func (c *OverlayController) speak(phrase string) {
	if c.speaker == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := c.speaker.Speak(ctx, phrase); err != nil {
			c.log.Debug("speech delivery failed", zap.Error(err))
		}
	}()
}

func statusIcon(primary domain.Phase) string {
	switch primary {
	case domain.PhaseListening:
		return "mic"
	case domain.PhaseProcessing:
		return "spinner"
	case domain.PhaseAction:
		return "check"
	}
	return "dot"
}
