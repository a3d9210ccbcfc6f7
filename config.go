package aura

import "github.com/go-gl/mathgl/mgl32"

// Category groups one or more effect layers that start and stop together.
type Category string

// AnchorMode places spawned particles relative to their source element.
type AnchorMode uint8

const (
	AnchorAbove AnchorMode = iota
	AnchorBelow
	AnchorAround
	AnchorTrailing
)

// LayerConfig is the fully resolved numeric configuration for one effect
// layer. Resolution severs every reference back to the preset table: the
// owning Emitter treats the value as immutable.
type LayerConfig struct {
	Capacity  int
	SpawnRate float32 // particles per second

	LifetimeRange [2]float32 // seconds (min,max)
	SizeRange     [2]float32 // world units (min,max)

	Direction     mgl32.Vec3 // bias direction for the base velocity
	SpeedRange    [2]float32 // units/sec (min,max)
	ConeDegrees   float32    // angular spread around Direction; 0 = exact
	LateralSpread float32    // random sideways velocity, units/sec
	SpawnRadius   float32    // area-uniform spawn disk radius; 0 disables
	RadialKick    float32    // outward speed applied when SpawnRadius is in use
	Jitter        float32    // per-axis positional noise

	VerticalOffset float32 // resolved from the anchor mode

	Color   mgl32.Vec3
	Opacity float32

	CurveID    string
	BurstCount int

	// TargetFilter restricts source elements to one model identifier.
	// Empty matches every source in the category.
	TargetFilter string

	// InheritVelocity is the fraction of a source's observed velocity
	// imparted to particles spawned at it.
	InheritVelocity float32

	// CentrifugalSpeed is the outward kick for particles spawned off a
	// spinning source's center; CentrifugalTangent splits it between pure
	// radial (0) and tangential (1).
	CentrifugalSpeed   float32
	CentrifugalTangent float32
}

// clamped returns a copy with out-of-range fields forced sane so a hostile
// preset pack cannot wedge an emitter.
func (c LayerConfig) clamped() LayerConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.SpawnRate < 0 {
		c.SpawnRate = 0
	}
	c.LifetimeRange = orderedRange(c.LifetimeRange)
	c.SizeRange = orderedRange(c.SizeRange)
	c.SpeedRange = orderedRange(c.SpeedRange)
	if c.LifetimeRange[0] <= 0 {
		c.LifetimeRange[0] = 0.01
		if c.LifetimeRange[1] < c.LifetimeRange[0] {
			c.LifetimeRange[1] = c.LifetimeRange[0]
		}
	}
	if c.SpawnRadius < 0 {
		c.SpawnRadius = 0
	}
	if c.Opacity < 0 {
		c.Opacity = 0
	}
	if c.BurstCount < 0 {
		c.BurstCount = 0
	}
	c.CentrifugalTangent = clamp01(c.CentrifugalTangent)
	return c
}

func orderedRange(r [2]float32) [2]float32 {
	if r[1] < r[0] {
		r[0], r[1] = r[1], r[0]
	}
	return r
}
