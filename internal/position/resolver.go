// Package position computes layer anchor coordinates for the configured
// placement mode. Fixed modes are recomputed only when configuration changes;
// FollowHand is advanced every tick, trailing the latest hand pose on a damped
// spring so tracker jitter never shakes the overlay.
package position

import (
	"github.com/charmbracelet/harmonica"

	"airvoice/internal/domain"
)

// Screen describes the render surface and overlay sizing.
type Screen struct {
	Width         float64
	Height        float64
	Margin        float64
	IndicatorSize float64
}

// Resolver computes anchors. It is driven exclusively by the tick loop.
type Resolver struct {
	screen   Screen
	mode     domain.PlacementMode
	fallback domain.PlacementMode

	fixed domain.Point

	spring   harmonica.Spring
	x, y     float64
	xVel     float64
	yVel     float64
	target   *domain.Point
	seeded   bool
}

// New returns a resolver in the given mode. fallback is the corner used by
// FollowHand before any hand pose has been observed this session.
func New(screen Screen, mode, fallback domain.PlacementMode, fps float64) *Resolver {
	if fallback == "" || fallback == domain.PlacementFollowHand {
		fallback = domain.PlacementBottomRight
	}
	if fps <= 0 {
		fps = 60
	}
	r := &Resolver{
		screen:   screen,
		fallback: fallback,
		spring:   harmonica.NewSpring(harmonica.FPS(int(fps)), 6.0, 0.8),
	}
	r.SetMode(mode)
	return r
}

// SetMode switches the placement mode. Fixed anchors are recomputed here and
// then cached; nothing is recomputed per tick for fixed modes.
func (r *Resolver) SetMode(mode domain.PlacementMode) {
	if mode == "" {
		mode = domain.PlacementCenter
	}
	r.mode = mode
	if mode != domain.PlacementFollowHand {
		r.fixed = r.corner(mode)
		return
	}
	start := r.corner(r.fallback)
	r.x, r.y = start.X, start.Y
	r.xVel, r.yVel = 0, 0
}

// Mode returns the current placement mode.
func (r *Resolver) Mode() domain.PlacementMode { return r.mode }

// ObservePose records the latest hand pose as the FollowHand target.
func (r *Resolver) ObservePose(p domain.Point) {
	r.target = &p
	if !r.seeded {
		// First pose of the session: snap the spring origin near the hand so
		// the overlay does not fly in from the fallback corner.
		r.x, r.y = p.X, p.Y
		r.seeded = true
	}
}

// Tick advances the FollowHand spring by one frame. Fixed modes are no-ops.
func (r *Resolver) Tick() {
	if r.mode != domain.PlacementFollowHand {
		return
	}
	goal := r.corner(r.fallback)
	if r.target != nil {
		goal = *r.target
	}
	r.x, r.xVel = r.spring.Update(r.x, r.xVel, goal.X)
	r.y, r.yVel = r.spring.Update(r.y, r.yVel, goal.Y)
}

// Anchor returns the base anchor for the indicator layers.
func (r *Resolver) Anchor() domain.Point {
	if r.mode == domain.PlacementFollowHand {
		return domain.Point{X: r.x, Y: r.y}
	}
	return r.fixed
}

// LayerAnchor places one layer relative to the base anchor. The keypad grid is
// always centered on screen regardless of mode; the other layers share the
// base anchor.
func (r *Resolver) LayerAnchor(id domain.LayerID) domain.Point {
	if id == domain.LayerKeypad {
		return domain.Point{X: r.screen.Width / 2, Y: r.screen.Height / 2}
	}
	return r.Anchor()
}

func (r *Resolver) corner(mode domain.PlacementMode) domain.Point {
	w, h := r.screen.Width, r.screen.Height
	m, size := r.screen.Margin, r.screen.IndicatorSize
	switch mode {
	case domain.PlacementTopLeft:
		return domain.Point{X: m, Y: m}
	case domain.PlacementTopRight:
		return domain.Point{X: w - size - m, Y: m}
	case domain.PlacementBottomLeft:
		return domain.Point{X: m, Y: h - size - m}
	case domain.PlacementBottomRight:
		return domain.Point{X: w - size - m, Y: h - size - m}
	case domain.PlacementBottomCenter:
		return domain.Point{X: (w - size) / 2, Y: h - size - m}
	case domain.PlacementCenter:
		return domain.Point{X: (w - size) / 2, Y: (h - size) / 2}
	}
	return domain.Point{X: w - size - m, Y: h - size - m}
}
