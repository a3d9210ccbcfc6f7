package aura

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// MaxFrameDt is the per-tick clamp applied by the Manager. A frame resuming
// after a long stall must not convert the backlog into a spawn burst.
const MaxFrameDt float32 = 0.1

type rateMode uint8

const (
	// rateModeCurve modulates the spawn rate by the progress curve.
	rateModeCurve rateMode = iota
	// rateModeEnergy replaces the curve multiplier with the explicit energy
	// value. Once energy has been set it always wins, even at zero.
	rateModeEnergy
)

// Emitter owns one fixed-capacity particle pool for one effect layer.
//
// Slot arrays are parallel and indexed by slot: indices [0, active) are live,
// [active, capacity) are free. Per-frame cost is O(spawns + kills); live
// particles advance purely on the GPU side as a function of elapsed time and
// the attributes baked in at spawn.
type Emitter struct {
	Id string

	cfg    LayerConfig
	handle RenderHandle
	curve  ProgressCurve
	rng    *rand.Rand

	pos       []mgl32.Vec3
	vel       []mgl32.Vec3
	spawnTime []float32
	lifetime  []float32
	size      []float32
	rotation  []float32
	seed      []float32
	active    int

	spawning   bool
	spawnAcc   float32
	progress   float32
	energy     float32
	mode       rateMode
	burstFired bool
	disposed   bool

	time float32

	sources     [MaxSourcesPerEmitter]mgl32.Vec3
	sourceVel   [MaxSourcesPerEmitter]mgl32.Vec3
	sourceCount int

	prevSources  [MaxSourcesPerEmitter]mgl32.Vec3
	prevCount    int
	havePrev     bool
	sourcesFresh bool
}

// NewEmitter creates a spawning emitter for a resolved layer. A nil handle is
// replaced with the headless NopHandle.
func NewEmitter(cfg LayerConfig, handle RenderHandle) *Emitter {
	cfg = cfg.clamped()
	if handle == nil {
		handle = NopHandle{}
	}
	return &Emitter{
		Id:        uuid.NewString(),
		cfg:       cfg,
		handle:    handle,
		curve:     CurveByID(cfg.CurveID),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		pos:       make([]mgl32.Vec3, cfg.Capacity),
		vel:       make([]mgl32.Vec3, cfg.Capacity),
		spawnTime: make([]float32, cfg.Capacity),
		lifetime:  make([]float32, cfg.Capacity),
		size:      make([]float32, cfg.Capacity),
		rotation:  make([]float32, cfg.Capacity),
		seed:      make([]float32, cfg.Capacity),
		spawning:  true,
		energy:    1,
	}
}

func (e *Emitter) Config() LayerConfig { return e.cfg }
func (e *Emitter) ActiveCount() int    { return e.active }
func (e *Emitter) Spawning() bool      { return e.spawning }

// IsDead reports the terminal state: stopped and drained.
func (e *Emitter) IsDead() bool { return !e.spawning && e.active == 0 }

// StopSpawning puts the emitter into its draining phase. Live particles
// expire naturally; the emitter reports dead once empty.
func (e *Emitter) StopSpawning() { e.spawning = false }

// SetSourcePositions replaces the working source set, capped at
// MaxSourcesPerEmitter. Points must already be in the emitter's render space.
func (e *Emitter) SetSourcePositions(points []mgl32.Vec3) {
	n := len(points)
	if n > MaxSourcesPerEmitter {
		n = MaxSourcesPerEmitter
	}
	copy(e.sources[:n], points[:n])
	e.sourceCount = n
	e.sourcesFresh = true
}

func (e *Emitter) SetProgress(p float32) { e.progress = clamp01(p) }

// SetEnergy switches rate modulation to the explicit energy value. Energy
// keeps winning over the progress curve from here on, including at zero.
func (e *Emitter) SetEnergy(v float32) {
	e.energy = clamp01(v)
	e.mode = rateModeEnergy
}

// Update advances the emitter one tick. dt must already be clamped by the
// caller (the Manager clamps at MaxFrameDt).
func (e *Emitter) Update(dt, globalTime float32) {
	if e.disposed {
		return
	}

	e.refreshSourceVelocities(dt)

	dirty := false

	// Kill pass: swap-remove every slot past its lifetime.
	for i := 0; i < e.active; {
		if globalTime-e.spawnTime[i] >= e.lifetime[i] {
			e.killAt(i)
			dirty = true
		} else {
			i++
		}
	}

	// Spawn pass. The fractional accumulator keeps the expected rate
	// independent of frame cadence; credit beyond capacity is dropped.
	if e.spawning && e.sourceCount > 0 {
		rate := e.cfg.SpawnRate
		switch e.mode {
		case rateModeEnergy:
			rate *= e.energy
		default:
			rate *= e.curve(e.progress)
		}
		e.spawnAcc += rate * dt
		for e.spawnAcc >= 1 {
			e.spawnAcc--
			if e.active < e.cfg.Capacity {
				e.spawnOne(globalTime)
				dirty = true
			}
		}
	} else {
		// No stored credit may survive a spawning gap, or sources
		// reappearing would trigger a phantom burst.
		e.spawnAcc = 0
	}

	if dirty {
		e.uploadLive()
	}
	e.time = globalTime
	e.handle.SetTime(globalTime)
}

// BurstSpawn spawns up to n particles immediately, bypassing the rate
// accumulator. Requires at least one source to anchor to.
func (e *Emitter) BurstSpawn(n int, globalTime float32) {
	if e.disposed || !e.spawning || e.sourceCount == 0 {
		return
	}
	spawned := 0
	for i := 0; i < n && e.active < e.cfg.Capacity; i++ {
		e.spawnOne(globalTime)
		spawned++
	}
	if spawned > 0 {
		e.uploadLive()
	}
}

// fireBurstOnce triggers the configured one-shot burst. Called by the Manager
// on the frame progress first becomes positive; subsequent calls are no-ops.
func (e *Emitter) fireBurstOnce(globalTime float32) {
	if e.burstFired || e.cfg.BurstCount == 0 {
		return
	}
	e.burstFired = true
	e.BurstSpawn(e.cfg.BurstCount, globalTime)
}

// Dispose releases the render handle. Idempotent: the pool is emptied and
// spawning stopped first, and the handle is released exactly once.
func (e *Emitter) Dispose() {
	e.active = 0
	e.spawning = false
	if e.disposed {
		return
	}
	e.disposed = true
	e.handle.Dispose()
}

// refreshSourceVelocities derives per-source velocity from two consecutive
// syncs, matched by slot index. The first sync and any dt too small to divide
// safely yield zero velocity, as do indices that newly appeared this frame.
func (e *Emitter) refreshSourceVelocities(dt float32) {
	if !e.sourcesFresh {
		return
	}
	e.sourcesFresh = false

	const minDt = 1e-4
	overlap := 0
	if e.havePrev && dt > minDt {
		overlap = e.sourceCount
		if e.prevCount < overlap {
			overlap = e.prevCount
		}
		inv := 1 / dt
		for i := 0; i < overlap; i++ {
			e.sourceVel[i] = e.sources[i].Sub(e.prevSources[i]).Mul(inv)
		}
	}
	for i := overlap; i < e.sourceCount; i++ {
		e.sourceVel[i] = mgl32.Vec3{}
	}

	copy(e.prevSources[:e.sourceCount], e.sources[:e.sourceCount])
	e.prevCount = e.sourceCount
	e.havePrev = true
}

// killAt swap-removes slot i with the last live slot.
func (e *Emitter) killAt(i int) {
	last := e.active - 1
	e.pos[i] = e.pos[last]
	e.vel[i] = e.vel[last]
	e.spawnTime[i] = e.spawnTime[last]
	e.lifetime[i] = e.lifetime[last]
	e.size[i] = e.size[last]
	e.rotation[i] = e.rotation[last]
	e.seed[i] = e.seed[last]
	e.active--
}

func (e *Emitter) spawnOne(globalTime float32) {
	si := e.rng.Intn(e.sourceCount)
	src := e.sources[si]

	// Floor of 0.3 keeps minimum-energy particles visibly in motion.
	energyScale := 0.3 + 0.7*e.energy

	pos := src
	var offset mgl32.Vec3
	if e.cfg.SpawnRadius > 0 {
		// sqrt gives uniform density over the disk instead of clumping
		// at the center.
		r := float32(math.Sqrt(float64(e.rng.Float32()))) * e.cfg.SpawnRadius
		a := e.rng.Float32() * 2 * float32(math.Pi)
		offset = mgl32.Vec3{float32(math.Cos(float64(a))) * r, 0, float32(math.Sin(float64(a))) * r}
		pos = pos.Add(offset)
	}
	if e.cfg.Jitter > 0 {
		j := e.cfg.Jitter
		pos = pos.Add(mgl32.Vec3{
			(e.rng.Float32()*2 - 1) * j,
			(e.rng.Float32()*2 - 1) * j,
			(e.rng.Float32()*2 - 1) * j,
		})
	}
	pos[1] += e.cfg.VerticalOffset

	speed := lerp(e.cfg.SpeedRange[0], e.cfg.SpeedRange[1], e.rng.Float32()) * energyScale
	vel := sampleCone(e.rng, e.cfg.Direction, e.cfg.ConeDegrees).Mul(speed)

	if e.cfg.LateralSpread > 0 {
		vel[0] += (e.rng.Float32()*2 - 1) * e.cfg.LateralSpread
		vel[2] += (e.rng.Float32()*2 - 1) * e.cfg.LateralSpread
	}

	offsetLen := offset.Len()
	if offsetLen > 1e-5 {
		outward := offset.Mul(1 / offsetLen)
		if e.cfg.RadialKick != 0 {
			vel = vel.Add(outward.Mul(e.cfg.RadialKick))
		}
		if e.cfg.CentrifugalSpeed != 0 {
			// Outward kick proportional to the particle's offset from
			// the source center, split radial/tangential by the bias.
			tangent := mgl32.Vec3{-outward.Z(), 0, outward.X()}
			bias := e.cfg.CentrifugalTangent
			dir := outward.Mul(1 - bias).Add(tangent.Mul(bias))
			mag := e.cfg.CentrifugalSpeed * (offsetLen / e.cfg.SpawnRadius) * energyScale
			vel = vel.Add(dir.Mul(mag))
		}
	}

	if e.cfg.InheritVelocity != 0 {
		vel = vel.Add(e.sourceVel[si].Mul(e.cfg.InheritVelocity))
	}

	idx := e.active
	e.pos[idx] = pos
	e.vel[idx] = vel
	e.spawnTime[idx] = globalTime
	e.lifetime[idx] = lerp(e.cfg.LifetimeRange[0], e.cfg.LifetimeRange[1], e.rng.Float32())
	// Size varies less with energy than speed does, hence the 0.7 floor.
	sizeEnergy := 0.7 + 0.3*e.energy
	e.size[idx] = lerp(e.cfg.SizeRange[0], e.cfg.SizeRange[1], e.rng.Float32()) * sizeEnergy
	e.rotation[idx] = e.rng.Float32() * 2 * float32(math.Pi)
	e.seed[idx] = e.rng.Float32()
	e.active++
}

func (e *Emitter) uploadLive() {
	e.handle.UploadInstances(InstanceData{
		Count:     e.active,
		Position:  e.pos[:e.active],
		Velocity:  e.vel[:e.active],
		SpawnTime: e.spawnTime[:e.active],
		Lifetime:  e.lifetime[:e.active],
		Size:      e.size[:e.active],
		Rotation:  e.rotation[:e.active],
		Seed:      e.seed[:e.active],
	})
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// sampleCone draws a direction uniformly within coneDeg of dir. A zero dir
// yields a zero vector so layers driven purely by inherited or centrifugal
// velocity get no base component.
func sampleCone(rng *rand.Rand, dir mgl32.Vec3, coneDeg float32) mgl32.Vec3 {
	if dir.Len() < 1e-6 {
		return mgl32.Vec3{}
	}
	axis := dir.Normalize()
	if coneDeg <= 0 {
		return axis
	}
	thetaMax := float32(math.Pi) * (coneDeg / 180.0)
	u := rng.Float32()
	v := rng.Float32()
	cosTheta := lerp(float32(math.Cos(float64(thetaMax))), 1.0, u)
	sinTheta := float32(math.Sqrt(float64(1.0 - cosTheta*cosTheta)))
	phi := 2.0 * float32(math.Pi) * v

	local := mgl32.Vec3{
		float32(math.Cos(float64(phi))) * sinTheta,
		cosTheta,
		float32(math.Sin(float64(phi))) * sinTheta,
	}
	rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 1, 0}, axis)
	return rot.Rotate(local).Normalize()
}
