package aura

import "math"

// ProgressCurve maps gesture progress in [0,1] to a spawn-rate multiplier.
type ProgressCurve func(p float32) float32

func curveLinear(p float32) float32 { return clamp01(p) }

func curveEaseIn(p float32) float32 {
	p = clamp01(p)
	return p * p
}

func curveEaseOut(p float32) float32 {
	p = clamp01(p)
	return 1 - (1-p)*(1-p)
}

func curveSmooth(p float32) float32 {
	p = clamp01(p)
	return p * p * (3 - 2*p)
}

// curvePulse peaks mid-gesture and dies off at both ends.
func curvePulse(p float32) float32 {
	p = clamp01(p)
	return float32(math.Sin(float64(p) * math.Pi))
}

// curveSustain ramps up quickly and then holds at full rate.
func curveSustain(p float32) float32 {
	p = clamp01(p)
	if p >= 0.25 {
		return 1
	}
	return p * 4
}

func curveFlat(p float32) float32 { return 1 }

var progressCurves = map[string]ProgressCurve{
	"linear":  curveLinear,
	"easeIn":  curveEaseIn,
	"easeOut": curveEaseOut,
	"smooth":  curveSmooth,
	"pulse":   curvePulse,
	"sustain": curveSustain,
	"flat":    curveFlat,
}

// CurveByID looks up a progress curve. Unknown ids fall back to linear so a
// bad preset can never break spawning.
func CurveByID(id string) ProgressCurve {
	if c, ok := progressCurves[id]; ok {
		return c
	}
	return curveLinear
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
