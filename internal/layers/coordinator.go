// Package layers owns the four LayerState records and serializes snapshot
// reads against tick mutation, so the renderer never observes a torn state.
package layers

import (
	"sync"
	"time"

	"airvoice/internal/domain"
)

// Coordinator holds the mutable layer state. The tick loop is the only writer;
// snapshots may be taken from any goroutine.
type Coordinator struct {
	mu     sync.RWMutex
	states map[domain.LayerID]domain.LayerState
}

// New returns a coordinator with the Status layer visible at the given idle
// opacity and the overlay layers hidden.
func New(idleOpacity float64) *Coordinator {
	states := make(map[domain.LayerID]domain.LayerState, 4)
	for _, id := range domain.LayerIDs() {
		states[id] = domain.LayerState{Content: domain.LayerContent{Scale: 1}}
	}
	status := states[domain.LayerStatus]
	status.Visible = true
	status.Opacity = idleOpacity
	status.Content.Icon = "dot"
	states[domain.LayerStatus] = status
	return &Coordinator{states: states}
}

// SetFrame applies an animation frame to exactly one layer; the other layers
// are untouched. A layer being made invisible may only move its opacity toward
// zero, never up.
func (c *Coordinator) SetFrame(id domain.LayerID, visible bool, opacity, progress, scale, rotation float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.states[id]
	if !visible && opacity > st.Opacity {
		opacity = st.Opacity
	}
	st.Visible = visible || opacity > 0
	st.Opacity = opacity
	st.Progress = progress
	st.Content.Scale = scale
	if rotation != 0 {
		st.Content.Rotation = rotation
	}
	c.states[id] = st
}

// SetOpacity adjusts only the opacity of one layer (breathing modulation).
func (c *Coordinator) SetOpacity(id domain.LayerID, opacity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[id]
	st.Opacity = opacity
	c.states[id] = st
}

// UpdateContent mutates one layer's content in place.
func (c *Coordinator) UpdateContent(id domain.LayerID, fn func(*domain.LayerContent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[id]
	fn(&st.Content)
	c.states[id] = st
}

// SetAnchor positions one layer.
func (c *Coordinator) SetAnchor(id domain.LayerID, anchor domain.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[id]
	st.Anchor = anchor
	c.states[id] = st
}

// State returns a copy of one layer's state.
func (c *Coordinator) State(id domain.LayerID) domain.LayerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[id]
}

// Snapshot returns an internally consistent copy of all four layers.
func (c *Coordinator) Snapshot(at time.Time, primary, overlay, active domain.Phase, mode domain.AccessibilityMode) domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.Snapshot{
		At:       at,
		Primary:  primary,
		Overlay:  overlay,
		Active:   active,
		Mode:     mode,
		Status:   c.states[domain.LayerStatus],
		Gesture:  c.states[domain.LayerGesture],
		Feedback: c.states[domain.LayerFeedback],
		Keypad:   c.states[domain.LayerKeypad],
	}
}
