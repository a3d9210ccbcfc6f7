package aura

import "github.com/go-gl/mathgl/mgl32"

// InstanceData is the live slice view of an emitter's slot arrays. Slices are
// indexed 1:1 and only valid for the duration of the UploadInstances call.
type InstanceData struct {
	Count     int
	Position  []mgl32.Vec3
	Velocity  []mgl32.Vec3
	SpawnTime []float32
	Lifetime  []float32
	Size      []float32
	Rotation  []float32
	Seed      []float32
}

// RenderHandle is the opaque drawable backing one emitter. The visual advance
// of a particle is a pure function of the handle's time value and the spawn
// attributes uploaded here; the engine never repositions individual particles
// after spawn.
type RenderHandle interface {
	// UploadInstances replaces the full live instance set.
	UploadInstances(data InstanceData)
	// SetTime advances the handle's clock, called every tick.
	SetTime(t float32)
	// Dispose releases the handle's resources. Must tolerate repeat calls.
	Dispose()
}

// HandleFactory creates a drawable for a freshly resolved layer. A factory
// error skips the layer; it never aborts the frame loop.
type HandleFactory func(cfg LayerConfig) (RenderHandle, error)

// NopHandle is the headless backend: it satisfies RenderHandle and throws
// everything away. Used by tests and server-side hosts with no GPU.
type NopHandle struct{}

func (NopHandle) UploadInstances(data InstanceData) {}
func (NopHandle) SetTime(t float32)                 {}
func (NopHandle) Dispose()                          {}

// NopHandleFactory backs every layer with a NopHandle.
func NopHandleFactory(cfg LayerConfig) (RenderHandle, error) { return NopHandle{}, nil }
