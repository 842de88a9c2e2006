// Package anim turns phase changes into timed per-layer transition plans and
// advances them on the shared tick. Plans are never hard cuts: every plan has a
// positive duration and its progress moves continuously from 0 to 1. When a new
// plan lands on a layer with an in-flight plan, the new plan starts from the
// layer's current visual values, so rapid phase changes never jump.
package anim

import (
	"time"

	"airvoice/internal/domain"
)

// Plan is one scheduled animation for one layer.
type Plan struct {
	Layer     domain.LayerID
	FromPhase domain.Phase
	ToPhase   domain.Phase
	Curve     domain.Curve
	Duration  time.Duration
	StartedAt time.Time

	fromOpacity float64
	toOpacity   float64
	fromScale   float64
	toScale     float64
}

// Frame is the visual output of one plan at one instant.
type Frame struct {
	Opacity  float64
	Scale    float64
	Rotation float64
	Progress float64
	Visible  bool
	Done     bool
}

// Targets supplies opacity goals per layer; the defaults follow the original
// scheme (idle 0.4, listening/gesture 0.85, processing 0.9, action/keypad 0.95).
type Targets struct {
	Idle       float64
	Listening  float64
	Processing float64
	Action     float64
	Gesture    float64
	Keypad     float64
}

// DefaultTargets returns the stock opacity goals.
func DefaultTargets() Targets {
	return Targets{Idle: 0.4, Listening: 0.85, Processing: 0.9, Action: 0.95, Gesture: 0.85, Keypad: 0.95}
}

func (t Targets) forPhase(p domain.Phase) float64 {
	switch p {
	case domain.PhaseIdle:
		return t.Idle
	case domain.PhaseListening:
		return t.Listening
	case domain.PhaseProcessing:
		return t.Processing
	case domain.PhaseAction:
		return t.Action
	case domain.PhaseGesture:
		return t.Gesture
	case domain.PhaseKeypad:
		return t.Keypad
	}
	return 0
}

// Scheduler owns the in-flight plans, at most one per layer.
type Scheduler struct {
	fade    time.Duration
	targets Targets
	plans   map[domain.LayerID]*Plan

	// last advanced visual values per layer, the preemption baseline.
	opacity map[domain.LayerID]float64
	scale   map[domain.LayerID]float64
}

// NewScheduler returns a scheduler using fade as the uniform plan duration.
func NewScheduler(fade time.Duration, targets Targets) *Scheduler {
	if fade <= 0 {
		fade = 300 * time.Millisecond
	}
	s := &Scheduler{
		fade:    fade,
		targets: targets,
		plans:   make(map[domain.LayerID]*Plan),
		opacity: make(map[domain.LayerID]float64),
		scale:   make(map[domain.LayerID]float64),
	}
	for _, id := range domain.LayerIDs() {
		s.scale[id] = 1
	}
	s.opacity[domain.LayerStatus] = targets.Idle
	return s
}

// FadeDuration returns the uniform plan duration.
func (s *Scheduler) FadeDuration() time.Duration { return s.fade }

// Opacity returns the last advanced opacity for a layer.
func (s *Scheduler) Opacity(id domain.LayerID) float64 { return s.opacity[id] }

// SetOpacity overrides the preemption baseline for a layer that has no
// in-flight plan. Content animation (idle breathing) reports the opacity it
// actually painted here, so the next plan starts from the on-screen value
// instead of the stale plan endpoint. Ignored while a plan owns the layer.
func (s *Scheduler) SetOpacity(id domain.LayerID, opacity float64) {
	if _, ok := s.plans[id]; ok {
		return
	}
	s.opacity[id] = clamp01(opacity)
}

// curveFor selects the animation shape for a primary transition. The lookup is
// fixed: Idle->Listening expands, Listening->Processing rotates with the color
// shift, everything else fades.
func curveFor(from, to domain.Phase) domain.Curve {
	switch {
	case from == domain.PhaseIdle && to == domain.PhaseListening:
		return domain.CurveExpand
	case from == domain.PhaseListening && to == domain.PhaseProcessing:
		return domain.CurveRotate
	}
	return domain.CurveFade
}

// PlanPrimary schedules plans for a primary phase change. The Status layer
// always participates; the Feedback layer fades in when entering Action and
// fades out when leaving it.
func (s *Scheduler) PlanPrimary(from, to domain.Phase, now time.Time) []*Plan {
	curve := curveFor(from, to)
	plans := []*Plan{s.start(domain.LayerStatus, from, to, curve, s.targets.forPhase(to), now)}

	if to == domain.PhaseAction {
		plans = append(plans, s.start(domain.LayerFeedback, from, to, domain.CurveFade, s.targets.Action, now))
	} else if from == domain.PhaseAction {
		plans = append(plans, s.start(domain.LayerFeedback, from, to, domain.CurveFade, 0, now))
	}
	return plans
}

// PlanOverlay schedules the fade for an overlay phase change. Entering Gesture
// or Keypad fades that layer in; returning to None fades it out. Switching
// Gesture->Keypad cross-fades both layers.
func (s *Scheduler) PlanOverlay(from, to domain.Phase, now time.Time) []*Plan {
	var plans []*Plan
	if layer, ok := overlayLayer(from); ok && from != to {
		plans = append(plans, s.start(layer, from, to, domain.CurveFade, 0, now))
	}
	if layer, ok := overlayLayer(to); ok {
		target := s.targets.forPhase(to)
		plans = append(plans, s.start(layer, from, to, domain.CurveFade, target, now))
	}
	return plans
}

func overlayLayer(p domain.Phase) (domain.LayerID, bool) {
	switch p {
	case domain.PhaseGesture:
		return domain.LayerGesture, true
	case domain.PhaseKeypad:
		return domain.LayerKeypad, true
	}
	return "", false
}

// start creates a plan for layer, preempting any in-flight plan by starting
// from the layer's current visual values.
func (s *Scheduler) start(layer domain.LayerID, from, to domain.Phase, curve domain.Curve, toOpacity float64, now time.Time) *Plan {
	p := &Plan{
		Layer:       layer,
		FromPhase:   from,
		ToPhase:     to,
		Curve:       curve,
		Duration:    s.fade,
		StartedAt:   now,
		fromOpacity: s.opacity[layer],
		toOpacity:   toOpacity,
		fromScale:   s.scale[layer],
		toScale:     1,
	}
	if curve == domain.CurveExpand {
		// Expand grows from the current scale; a fresh entry starts compact.
		if p.fromScale >= 1 {
			p.fromScale = 0.6
		}
	}
	s.plans[layer] = p
	return p
}

// Tick advances all in-flight plans to now and returns a frame per layer that
// has (or just finished) a plan. Completed plans are discarded after their
// final frame is reported.
func (s *Scheduler) Tick(now time.Time) map[domain.LayerID]Frame {
	if len(s.plans) == 0 {
		return nil
	}
	frames := make(map[domain.LayerID]Frame, len(s.plans))
	for id, p := range s.plans {
		f := p.at(now)
		s.opacity[id] = f.Opacity
		s.scale[id] = f.Scale
		frames[id] = f
		if f.Done {
			delete(s.plans, id)
		}
	}
	return frames
}

// InFlight reports whether layer has an active plan.
func (s *Scheduler) InFlight(layer domain.LayerID) bool {
	_, ok := s.plans[layer]
	return ok
}

func (p *Plan) at(now time.Time) Frame {
	t := clamp01(now.Sub(p.StartedAt).Seconds() / p.Duration.Seconds())

	var eased float64
	switch p.Curve {
	case domain.CurveExpand:
		eased = easeOutBack(t)
	default:
		eased = easeInOutQuad(t)
	}

	f := Frame{
		Progress: t,
		Opacity:  clamp01(lerp(p.fromOpacity, p.toOpacity, eased)),
		Scale:    lerp(p.fromScale, p.toScale, eased),
		Visible:  p.toOpacity > 0,
		Done:     t >= 1,
	}
	if p.Curve == domain.CurveRotate {
		// One half turn across the transition; the spinner keeps rotating
		// afterwards from content animation.
		f.Rotation = eased * 180
	}
	return f
}
