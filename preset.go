package aura

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Preset is a named layer template. Presets carry the raw ranges; Resolve
// applies the per-use scaling and anchor placement on top.
type Preset struct {
	Capacity      int
	SpawnRate     float32
	LifetimeRange [2]float32
	SizeRange     [2]float32
	SpeedRange    [2]float32
	Direction     mgl32.Vec3
	ConeDegrees   float32
	LateralSpread float32
	SpawnRadius   float32
	RadialKick    float32
	Jitter        float32
	AnchorHeight  float32 // vertical magnitude used by the anchor modes
	Color         mgl32.Vec3
	Opacity       float32
	CurveID       string
}

// CentrifugalParams configures the outward kick for spinning sources.
type CentrifugalParams struct {
	Speed   float32
	Tangent float32 // 0 = pure radial, 1 = pure tangential
}

// LayerUse names a preset plus the per-use overrides. Zero scale fields mean
// "unchanged" so callers can fill only what they care about.
type LayerUse struct {
	Preset          string
	Intensity       float32
	SizeScale       float32
	SpeedScale      float32
	Tint            *mgl32.Vec3
	Anchor          AnchorMode
	AnchorOffset    float32
	CurveID         string
	BurstCount      int
	TargetFilter    string
	InheritVelocity float32
	Centrifugal     CentrifugalParams
}

const defaultPresetID = "mist"

// Resolver merges preset defaults with per-use overrides into resolved
// LayerConfigs. Resolution is pure: identical inputs yield identical output.
type Resolver struct {
	presets map[string]Preset
	log     Logger
}

func NewResolver(log Logger) *Resolver {
	r := &Resolver{
		presets: make(map[string]Preset),
		log:     orNop(log),
	}
	for name, p := range builtinPresets() {
		r.presets[name] = p
	}
	return r
}

// Resolve produces the fully numeric configuration for one layer. An unknown
// preset id falls back to the default preset and logs a warning; it is never
// an error.
func (r *Resolver) Resolve(use LayerUse) LayerConfig {
	p, ok := r.presets[use.Preset]
	if !ok {
		r.log.Warnf("unknown preset %q, falling back to %q", use.Preset, defaultPresetID)
		p = r.presets[defaultPresetID]
	}

	intensity := use.Intensity
	if intensity <= 0 {
		intensity = 1
	}
	sizeScale := use.SizeScale
	if sizeScale <= 0 {
		sizeScale = 1
	}
	speedScale := use.SpeedScale
	if speedScale <= 0 {
		speedScale = 1
	}

	// Square root keeps low-intensity layers from crushing to invisible;
	// the 1.5 cap stops over-driven intensity from blowing out opacity.
	opacityScale := float32(math.Sqrt(float64(min32(intensity, 1.5))))

	color := p.Color
	if use.Tint != nil {
		color = *use.Tint
	}

	verticalOffset := float32(0)
	lateralScale := float32(1)
	switch use.Anchor {
	case AnchorAbove:
		verticalOffset = p.AnchorHeight
	case AnchorBelow:
		verticalOffset = -p.AnchorHeight
	case AnchorAround:
		lateralScale = 1.5
	case AnchorTrailing:
		verticalOffset = -0.5 * p.AnchorHeight
	}
	verticalOffset += use.AnchorOffset

	curveID := p.CurveID
	if use.CurveID != "" {
		curveID = use.CurveID
	}

	cfg := LayerConfig{
		Capacity:  p.Capacity,
		SpawnRate: p.SpawnRate * intensity,

		LifetimeRange: p.LifetimeRange,
		SizeRange:     [2]float32{p.SizeRange[0] * sizeScale, p.SizeRange[1] * sizeScale},

		Direction:     p.Direction,
		SpeedRange:    [2]float32{p.SpeedRange[0] * speedScale, p.SpeedRange[1] * speedScale},
		ConeDegrees:   p.ConeDegrees,
		LateralSpread: p.LateralSpread * lateralScale,
		SpawnRadius:   p.SpawnRadius * lateralScale,
		RadialKick:    p.RadialKick * speedScale,
		Jitter:        p.Jitter,

		VerticalOffset: verticalOffset,

		Color:   color,
		Opacity: p.Opacity * opacityScale,

		CurveID:    curveID,
		BurstCount: use.BurstCount,

		TargetFilter:    use.TargetFilter,
		InheritVelocity: use.InheritVelocity,

		CentrifugalSpeed:   use.Centrifugal.Speed,
		CentrifugalTangent: use.Centrifugal.Tangent,
	}
	return cfg.clamped()
}

// Presets returns the known preset names, for tooling.
func (r *Resolver) Presets() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	return names
}

type presetFile struct {
	Presets map[string]presetSpec `yaml:"presets"`
}

type presetSpec struct {
	Capacity      int        `yaml:"capacity"`
	SpawnRate     float32    `yaml:"spawnRate"`
	Lifetime      [2]float32 `yaml:"lifetime"`
	Size          [2]float32 `yaml:"size"`
	Speed         [2]float32 `yaml:"speed"`
	Direction     [3]float32 `yaml:"direction"`
	ConeDegrees   float32    `yaml:"coneDegrees"`
	LateralSpread float32    `yaml:"lateralSpread"`
	SpawnRadius   float32    `yaml:"spawnRadius"`
	RadialKick    float32    `yaml:"radialKick"`
	Jitter        float32    `yaml:"jitter"`
	AnchorHeight  float32    `yaml:"anchorHeight"`
	Color         [3]float32 `yaml:"color"`
	Opacity       float32    `yaml:"opacity"`
	Curve         string     `yaml:"curve"`
}

func (s presetSpec) toPreset() Preset {
	return Preset{
		Capacity:      s.Capacity,
		SpawnRate:     s.SpawnRate,
		LifetimeRange: s.Lifetime,
		SizeRange:     s.Size,
		SpeedRange:    s.Speed,
		Direction:     mgl32.Vec3{s.Direction[0], s.Direction[1], s.Direction[2]},
		ConeDegrees:   s.ConeDegrees,
		LateralSpread: s.LateralSpread,
		SpawnRadius:   s.SpawnRadius,
		RadialKick:    s.RadialKick,
		Jitter:        s.Jitter,
		AnchorHeight:  s.AnchorHeight,
		Color:         mgl32.Vec3{s.Color[0], s.Color[1], s.Color[2]},
		Opacity:       s.Opacity,
		CurveID:       s.Curve,
	}
}

// LoadPack reads a YAML preset pack and merges it over the known presets.
// Pack entries may redefine built-in names.
func (r *Resolver) LoadPack(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read preset pack: %w", err)
	}
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse preset pack %s: %w", path, err)
	}
	for name, spec := range file.Presets {
		r.presets[name] = spec.toPreset()
	}
	r.log.Infof("loaded %d presets from %s", len(file.Presets), path)
	return nil
}

func builtinPresets() map[string]Preset {
	up := mgl32.Vec3{0, 1, 0}
	return map[string]Preset{
		"smoke": {
			Capacity:      96,
			SpawnRate:     22,
			LifetimeRange: [2]float32{1.6, 2.8},
			SizeRange:     [2]float32{0.12, 0.26},
			SpeedRange:    [2]float32{0.35, 0.6},
			Direction:     up,
			ConeDegrees:   18,
			LateralSpread: 0.05,
			SpawnRadius:   0.08,
			Jitter:        0.015,
			AnchorHeight:  0.12,
			Color:         mgl32.Vec3{0.42, 0.42, 0.46},
			Opacity:       0.55,
			CurveID:       "sustain",
		},
		"mist": {
			Capacity:      128,
			SpawnRate:     16,
			LifetimeRange: [2]float32{2.5, 4.0},
			SizeRange:     [2]float32{0.25, 0.5},
			SpeedRange:    [2]float32{0.08, 0.18},
			Direction:     up,
			ConeDegrees:   55,
			LateralSpread: 0.1,
			SpawnRadius:   0.3,
			Jitter:        0.02,
			AnchorHeight:  0.05,
			Color:         mgl32.Vec3{0.74, 0.8, 0.86},
			Opacity:       0.3,
			CurveID:       "smooth",
		},
		"spray": {
			Capacity:      160,
			SpawnRate:     60,
			LifetimeRange: [2]float32{0.4, 0.9},
			SizeRange:     [2]float32{0.03, 0.07},
			SpeedRange:    [2]float32{1.2, 2.2},
			Direction:     up,
			ConeDegrees:   35,
			LateralSpread: 0.4,
			SpawnRadius:   0.05,
			RadialKick:    0.6,
			Jitter:        0.01,
			AnchorHeight:  0.08,
			Color:         mgl32.Vec3{0.82, 0.9, 1.0},
			Opacity:       0.8,
			CurveID:       "pulse",
		},
		"embers": {
			Capacity:      64,
			SpawnRate:     14,
			LifetimeRange: [2]float32{1.0, 2.2},
			SizeRange:     [2]float32{0.02, 0.05},
			SpeedRange:    [2]float32{0.5, 0.9},
			Direction:     up,
			ConeDegrees:   25,
			LateralSpread: 0.15,
			SpawnRadius:   0.12,
			RadialKick:    0.1,
			Jitter:        0.02,
			AnchorHeight:  0.1,
			Color:         mgl32.Vec3{1.0, 0.55, 0.18},
			Opacity:       0.9,
			CurveID:       "easeOut",
		},
		"sparkle": {
			Capacity:      80,
			SpawnRate:     30,
			LifetimeRange: [2]float32{0.3, 0.8},
			SizeRange:     [2]float32{0.02, 0.06},
			SpeedRange:    [2]float32{0.2, 0.5},
			Direction:     up,
			ConeDegrees:   180,
			LateralSpread: 0.2,
			SpawnRadius:   0.25,
			Jitter:        0.03,
			Color:         mgl32.Vec3{1.0, 0.95, 0.75},
			Opacity:       1.0,
			CurveID:       "pulse",
		},
		"dust": {
			Capacity:      72,
			SpawnRate:     10,
			LifetimeRange: [2]float32{2.0, 3.5},
			SizeRange:     [2]float32{0.04, 0.1},
			SpeedRange:    [2]float32{0.05, 0.15},
			Direction:     mgl32.Vec3{0, -1, 0},
			ConeDegrees:   70,
			LateralSpread: 0.08,
			SpawnRadius:   0.35,
			Jitter:        0.02,
			AnchorHeight:  0.06,
			Color:         mgl32.Vec3{0.62, 0.56, 0.46},
			Opacity:       0.4,
			CurveID:       "flat",
		},
		"rain": {
			Capacity:      200,
			SpawnRate:     90,
			LifetimeRange: [2]float32{0.5, 0.8},
			SizeRange:     [2]float32{0.015, 0.03},
			SpeedRange:    [2]float32{2.5, 3.5},
			Direction:     mgl32.Vec3{0, -1, 0},
			ConeDegrees:   6,
			LateralSpread: 0.05,
			SpawnRadius:   0.4,
			AnchorHeight:  0.5,
			Color:         mgl32.Vec3{0.6, 0.7, 0.85},
			Opacity:       0.6,
			CurveID:       "sustain",
		},
		"aurora": {
			Capacity:      110,
			SpawnRate:     18,
			LifetimeRange: [2]float32{1.8, 3.2},
			SizeRange:     [2]float32{0.15, 0.35},
			SpeedRange:    [2]float32{0.1, 0.25},
			Direction:     up,
			ConeDegrees:   40,
			LateralSpread: 0.25,
			SpawnRadius:   0.2,
			Jitter:        0.04,
			AnchorHeight:  0.15,
			Color:         mgl32.Vec3{0.35, 0.9, 0.7},
			Opacity:       0.5,
			CurveID:       "smooth",
		},
	}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
