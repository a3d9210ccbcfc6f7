package aura

import "github.com/go-gl/mathgl/mgl32"

// MaxSourcesPerEmitter caps the working source set of one emitter.
const MaxSourcesPerEmitter = 64

// SourceElement is one anchor point reported by the host for the current
// frame. The position is in the provider's local space; Model is a stable
// identifier of the element the point was sampled from.
type SourceElement struct {
	Category Category
	Position mgl32.Vec3
	Model    string
}

// SourceProvider yields the frame's source elements. The returned slice is
// read-only and only valid until the next frame.
type SourceProvider interface {
	SourceElements() []SourceElement
}

// SourceProviderFunc adapts a plain function to SourceProvider.
type SourceProviderFunc func() []SourceElement

func (f SourceProviderFunc) SourceElements() []SourceElement { return f() }

// TransformFunc converts a point from the provider's local space into the
// emitter's rendering space.
type TransformFunc func(p mgl32.Vec3) mgl32.Vec3
