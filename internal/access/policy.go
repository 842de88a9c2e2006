// Package access remaps outward visual and audio decisions per the current
// accessibility mode. Normal passes visuals through and never speaks. Minimal
// keeps only the Status dot. AudioOnly hides everything and voices each phase
// entry instead. A phrase is only ever produced under AudioOnly, so no event is
// reported twice (visually and audibly).
package access

import "airvoice/internal/domain"

// Remap rewrites a snapshot for the renderer according to mode. The input is
// not mutated.
func Remap(mode domain.AccessibilityMode, snap domain.Snapshot) domain.Snapshot {
	switch mode {
	case domain.AccessibilityAudioOnly:
		for _, id := range domain.LayerIDs() {
			st := snap.Layer(id)
			st.Visible = false
			st.Opacity = 0
			snap.SetLayer(id, st)
		}
	case domain.AccessibilityMinimal:
		for _, id := range domain.LayerIDs() {
			if id == domain.LayerStatus {
				continue
			}
			st := snap.Layer(id)
			st.Visible = false
			st.Opacity = 0
			snap.SetLayer(id, st)
		}
		// Downgrade the Status layer to a tiny indicator: keep the dot and its
		// opacity, drop captions, spinner content and wave levels.
		st := snap.Status
		st.Content = domain.LayerContent{Icon: "dot", Scale: 1}
		snap.Status = st
	}
	return snap
}

// PhraseForEntry returns the spoken phrase for entering phase, if the phase
// defines one. Only AudioOnly mode produces phrases, and only on entry, never
// on content self-loops, so each entry speaks at most once.
func PhraseForEntry(mode domain.AccessibilityMode, phase domain.Phase, message string) (string, bool) {
	if mode != domain.AccessibilityAudioOnly {
		return "", false
	}
	switch phase {
	case domain.PhaseListening:
		return "Listening", true
	case domain.PhaseProcessing:
		return "Processing", true
	case domain.PhaseAction:
		if message == "" {
			message = "Done"
		}
		return message, true
	case domain.PhaseGesture:
		return "Hand detected", true
	case domain.PhaseKeypad:
		return "Keypad open", true
	}
	return "", false
}
