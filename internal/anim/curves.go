package anim

import "math"

// easeInOutQuad is the default fade shape.
func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// easeOutBack overshoots slightly before settling, used by the expand curve.
func easeOutBack(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	return 1 + c3*math.Pow(t-1, 3) + c1*math.Pow(t-1, 2)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
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

// Breathing computes the idle pulse: a sine wave over period mapped into
// [min,max]. elapsed is time since the animation epoch.
func Breathing(elapsedSeconds, periodSeconds, min, max float64) float64 {
	if periodSeconds <= 0 {
		return min
	}
	t := math.Mod(elapsedSeconds, periodSeconds) / periodSeconds
	wave := math.Sin(t*2*math.Pi)*0.5 + 0.5
	return min + wave*(max-min)
}
