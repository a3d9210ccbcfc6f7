package aura

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordHandle captures everything an emitter pushes at its drawable.
type recordHandle struct {
	uploads   int
	lastCount int
	lastVel   []mgl32.Vec3
	lastPos   []mgl32.Vec3
	times     []float32
	disposed  int
}

func (h *recordHandle) UploadInstances(data InstanceData) {
	h.uploads++
	h.lastCount = data.Count
	h.lastVel = append(h.lastVel[:0], data.Velocity...)
	h.lastPos = append(h.lastPos[:0], data.Position...)
}

func (h *recordHandle) SetTime(t float32) { h.times = append(h.times, t) }
func (h *recordHandle) Dispose()          { h.disposed++ }

// quietConfig spawns nothing on its own; tests drive it explicitly.
func quietConfig(capacity int) LayerConfig {
	return LayerConfig{
		Capacity:      capacity,
		LifetimeRange: [2]float32{1, 1},
		SizeRange:     [2]float32{0.1, 0.1},
		CurveID:       "flat",
	}
}

func onePoint() []mgl32.Vec3 { return []mgl32.Vec3{{0, 0, 0}} }

func TestEmitter_CapacityClampsSpawnBurst(t *testing.T) {
	cfg := quietConfig(10)
	cfg.SpawnRate = 1000
	cfg.LifetimeRange = [2]float32{10, 10}
	e := NewEmitter(cfg, nil)
	e.SetSourcePositions(onePoint())

	e.Update(0.016, 0.016)

	if e.ActiveCount() != 10 {
		t.Errorf("expected activeCount capped at 10, got %d", e.ActiveCount())
	}
}

func TestEmitter_ActiveCountAlwaysWithinBounds(t *testing.T) {
	cfg := quietConfig(16)
	cfg.SpawnRate = 200
	cfg.LifetimeRange = [2]float32{0.05, 0.3}
	e := NewEmitter(cfg, nil)
	e.SetSourcePositions(onePoint())

	tm := float32(0)
	for i := 0; i < 300; i++ {
		tm += 0.016
		e.Update(0.016, tm)
		if e.ActiveCount() < 0 || e.ActiveCount() > cfg.Capacity {
			t.Fatalf("activeCount %d out of [0, %d] at tick %d", e.ActiveCount(), cfg.Capacity, i)
		}
	}
}

func TestEmitter_SpawnRateIsFrameRateIndependent(t *testing.T) {
	const rate = 100
	cfg := quietConfig(100000)
	cfg.SpawnRate = rate
	cfg.LifetimeRange = [2]float32{30, 30}
	e := NewEmitter(cfg, nil)
	e.SetSourcePositions(onePoint())

	dt := float32(1.0 / 60.0)
	tm := float32(0)
	for i := 0; i < 60; i++ {
		tm += dt
		e.Update(dt, tm)
	}

	// One simulated second at constant rate R: expected spawn count R +/- 1
	// of accumulator rounding.
	assert.InDelta(t, rate, e.ActiveCount(), 1.01)
}

func TestEmitter_KillsExactlyAtLifetime(t *testing.T) {
	e := NewEmitter(quietConfig(4), nil)
	e.SetSourcePositions(onePoint())
	e.BurstSpawn(1, 0)
	require.Equal(t, 1, e.ActiveCount())

	e.Update(0.5, 0.5)
	assert.Equal(t, 1, e.ActiveCount(), "must survive below lifetime")

	e.Update(0.499, 0.999)
	assert.Equal(t, 1, e.ActiveCount(), "must survive just below lifetime")

	e.Update(0.001, 1.0)
	assert.Equal(t, 0, e.ActiveCount(), "must die once globalTime-spawnTime >= lifetime")
}

func TestEmitter_DrainsToDead(t *testing.T) {
	cfg := quietConfig(8)
	cfg.LifetimeRange = [2]float32{0.2, 0.6}
	e := NewEmitter(cfg, nil)
	e.SetSourcePositions(onePoint())
	e.BurstSpawn(3, 0)
	require.Equal(t, 3, e.ActiveCount())

	e.StopSpawning()
	assert.Equal(t, 3, e.ActiveCount(), "graceful stop must not kill live particles")
	assert.False(t, e.IsDead())

	tm := float32(0)
	for i := 0; i < 50; i++ {
		tm += 0.016
		e.Update(0.016, tm)
	}
	assert.True(t, e.IsDead())
	assert.Equal(t, 0, e.ActiveCount())
}

func TestEmitter_DisposeIsIdempotent(t *testing.T) {
	h := &recordHandle{}
	e := NewEmitter(quietConfig(4), h)
	e.SetSourcePositions(onePoint())
	e.BurstSpawn(2, 0)

	e.Dispose()
	e.Dispose()

	assert.Equal(t, 1, h.disposed, "render handle must be released exactly once")
	assert.Equal(t, 0, e.ActiveCount())
	assert.True(t, e.IsDead())

	// A disposed emitter is never advanced again.
	e.Update(0.016, 1)
	assert.Equal(t, 0, e.ActiveCount())
}

func TestEmitter_VelocityInheritance(t *testing.T) {
	cfg := quietConfig(4)
	cfg.InheritVelocity = 0.5
	e := NewEmitter(cfg, &recordHandle{})

	// Source moving at a constant 2 units/sec along X.
	e.SetSourcePositions([]mgl32.Vec3{{0, 0, 0}})
	e.Update(0.1, 0.1)
	e.SetSourcePositions([]mgl32.Vec3{{0.2, 0, 0}})
	e.Update(0.1, 0.2)

	h := &recordHandle{}
	e.handle = h
	e.BurstSpawn(1, 0.2)

	require.Equal(t, 1, h.lastCount)
	// Base velocity is zero by config, so the spawned velocity is exactly
	// f*V = 0.5 * (2,0,0).
	assert.InDelta(t, 1.0, h.lastVel[0].X(), 1e-4)
	assert.InDelta(t, 0.0, h.lastVel[0].Y(), 1e-4)
	assert.InDelta(t, 0.0, h.lastVel[0].Z(), 1e-4)
}

func TestEmitter_FirstSyncYieldsZeroSourceVelocity(t *testing.T) {
	cfg := quietConfig(4)
	cfg.InheritVelocity = 1
	h := &recordHandle{}
	e := NewEmitter(cfg, h)

	e.SetSourcePositions([]mgl32.Vec3{{5, 5, 5}})
	e.Update(0.1, 0.1)
	e.BurstSpawn(1, 0.1)

	require.Equal(t, 1, h.lastCount)
	assert.InDelta(t, 0, h.lastVel[0].Len(), 1e-5, "no velocity attribution on the first observed frame")
}

func TestEmitter_NewSourceIndexGetsZeroVelocity(t *testing.T) {
	cfg := quietConfig(4)
	e := NewEmitter(cfg, nil)

	e.SetSourcePositions([]mgl32.Vec3{{0, 0, 0}})
	e.Update(0.1, 0.1)
	e.SetSourcePositions([]mgl32.Vec3{{1, 0, 0}, {9, 9, 9}})
	e.Update(0.1, 0.2)

	assert.InDelta(t, 10, e.sourceVel[0].X(), 1e-3)
	assert.Equal(t, mgl32.Vec3{}, e.sourceVel[1], "index appearing this frame starts at rest")
}

func TestEmitter_AccumulatorResetsWithoutSources(t *testing.T) {
	cfg := quietConfig(100)
	cfg.SpawnRate = 50 // 0.8 credit per 16ms tick
	e := NewEmitter(cfg, nil)

	e.SetSourcePositions(onePoint())
	e.Update(0.016, 0.016)
	require.Equal(t, 0, e.ActiveCount())

	// Sources vanish for one frame: stored credit must be dropped.
	e.SetSourcePositions(nil)
	e.Update(0.016, 0.032)
	assert.Equal(t, float32(0), e.spawnAcc)

	// Sources return: one tick of credit only, no phantom burst.
	e.SetSourcePositions(onePoint())
	e.Update(0.016, 0.048)
	assert.Equal(t, 0, e.ActiveCount())
}

func TestEmitter_EnergyOverridesProgressCurve(t *testing.T) {
	cfg := quietConfig(100)
	cfg.SpawnRate = 500
	e := NewEmitter(cfg, nil)
	e.SetSourcePositions(onePoint())
	e.SetProgress(1)

	// Explicit zero energy wins over a full-rate curve.
	e.SetEnergy(0)
	tm := float32(0)
	for i := 0; i < 30; i++ {
		tm += 0.016
		e.Update(0.016, tm)
	}
	assert.Equal(t, 0, e.ActiveCount(), "explicit energy, even zero, replaces the curve multiplier")

	e.SetEnergy(1)
	tm += 0.016
	e.Update(0.016, tm)
	assert.Greater(t, e.ActiveCount(), 0)
}

func TestEmitter_SourceSetIsCapped(t *testing.T) {
	e := NewEmitter(quietConfig(4), nil)
	points := make([]mgl32.Vec3, 100)
	e.SetSourcePositions(points)
	assert.Equal(t, MaxSourcesPerEmitter, e.sourceCount)
}

func TestEmitter_BurstRespectsCapacity(t *testing.T) {
	e := NewEmitter(quietConfig(10), nil)
	e.SetSourcePositions(onePoint())
	e.BurstSpawn(100, 0)
	assert.Equal(t, 10, e.ActiveCount())
}

func TestEmitter_BurstNeedsSources(t *testing.T) {
	e := NewEmitter(quietConfig(10), nil)
	e.BurstSpawn(5, 0)
	assert.Equal(t, 0, e.ActiveCount())
}

func TestEmitter_NoUploadOnStaticFrames(t *testing.T) {
	h := &recordHandle{}
	e := NewEmitter(quietConfig(10), h)
	e.SetSourcePositions(onePoint())

	e.Update(0.016, 0.016)
	e.Update(0.016, 0.032)

	assert.Equal(t, 0, h.uploads, "no spawn, no kill: no buffer transfer")
	assert.Len(t, h.times, 2, "time still advances every tick")
	assert.Equal(t, float32(0.032), h.times[1])
}

func TestEmitter_SpawnAppliesVerticalOffsetAndRadius(t *testing.T) {
	cfg := quietConfig(32)
	cfg.VerticalOffset = 2
	cfg.SpawnRadius = 0.5
	h := &recordHandle{}
	e := NewEmitter(cfg, h)
	e.SetSourcePositions([]mgl32.Vec3{{1, 0, 1}})
	e.BurstSpawn(20, 0)

	require.Equal(t, 20, h.lastCount)
	for i, p := range h.lastPos {
		assert.InDelta(t, 2, p.Y(), 0.01, "particle %d ignores the vertical offset", i)
		lateral := mgl32.Vec3{p.X() - 1, 0, p.Z() - 1}.Len()
		assert.LessOrEqual(t, lateral, float32(0.51), "particle %d outside the spawn disk", i)
	}
}

func TestEmitter_CentrifugalKickPointsOutward(t *testing.T) {
	cfg := quietConfig(64)
	cfg.SpawnRadius = 0.5
	cfg.CentrifugalSpeed = 2
	cfg.CentrifugalTangent = 0 // pure radial, easiest to verify
	h := &recordHandle{}
	e := NewEmitter(cfg, h)
	e.SetSourcePositions(onePoint())
	e.BurstSpawn(30, 0)

	require.Equal(t, 30, h.lastCount)
	for i := range h.lastPos {
		offset := mgl32.Vec3{h.lastPos[i].X(), 0, h.lastPos[i].Z()}
		if offset.Len() < 0.05 {
			continue // too close to center for a meaningful dot product
		}
		vel := mgl32.Vec3{h.lastVel[i].X(), 0, h.lastVel[i].Z()}
		if vel.Dot(offset) < 0 {
			t.Errorf("particle %d: radial kick points inward (vel %v, offset %v)", i, vel, offset)
		}
	}
}
