package render

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/aurafx/aura"
)

const uniformSize = 128 // Globals struct in particles.wgsl, padded

// Backend owns the shared GPU state for every particle layer: the billboard
// pipeline, the sprite texture, and the list of live handles to draw.
type Backend struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	pipeline   *wgpu.RenderPipeline
	spriteTex  *wgpu.Texture
	spriteView *wgpu.TextureView
	sampler    *wgpu.Sampler

	camera [96]byte // view_proj + cam_right + cam_up, pushed to new handles

	handles []*Handle
}

// NewBackend compiles the particle pipeline against the surface format.
func NewBackend(device *wgpu.Device, format wgpu.TextureFormat) (*Backend, error) {
	b := &Backend{
		device: device,
		queue:  device.GetQueue(),
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ParticleShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: ParticlesWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("particle shader: %w", err)
	}

	b.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "ParticlePipeline",
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(particleInstance{})),
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 2},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("particle pipeline: %w", err)
	}

	if err := b.setupSprite(); err != nil {
		return nil, err
	}

	// Identity camera until the host pushes a real one.
	b.writeCameraBytes(mgl32.Ident4(), mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	return b, nil
}

func (b *Backend) setupSprite() error {
	sprite := GenerateSprite(64)
	w, h := sprite.Bounds().Dx(), sprite.Bounds().Dy()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "ParticleSprite",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("sprite texture: %w", err)
	}
	b.queue.WriteTexture(tex.AsImageCopy(), sprite.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(sprite.Stride),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})
	b.spriteTex = tex

	b.spriteView, err = tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("sprite view: %w", err)
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sprite sampler: %w", err)
	}
	return nil
}

// HandleFactory adapts the backend for aura.NewManager.
func (b *Backend) HandleFactory() aura.HandleFactory {
	return func(cfg aura.LayerConfig) (aura.RenderHandle, error) {
		return b.CreateHandle(cfg)
	}
}

// CreateHandle allocates the per-layer drawable: a uniform block carrying the
// layer's color/opacity plus the shared camera, and a growable instance
// buffer.
func (b *Backend) CreateHandle(cfg aura.LayerConfig) (*Handle, error) {
	uniformBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleUniforms",
		Size:  uniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("layer uniform buffer: %w", err)
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf, Size: uniformSize},
			{Binding: 1, TextureView: b.spriteView},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		uniformBuf.Release()
		return nil, fmt.Errorf("layer bind group: %w", err)
	}

	h := &Handle{
		backend:    b,
		uniformBuf: uniformBuf,
		bindGroup:  bindGroup,
	}
	h.writeColor(cfg.Color, cfg.Opacity)
	b.queue.WriteBuffer(uniformBuf, 0, b.camera[:])
	b.handles = append(b.handles, h)
	return h, nil
}

// SetCamera pushes the view-projection and billboard axes to every layer.
func (b *Backend) SetCamera(viewProj mgl32.Mat4, camRight, camUp mgl32.Vec3) {
	b.writeCameraBytes(viewProj, camRight, camUp)
	for _, h := range b.handles {
		b.queue.WriteBuffer(h.uniformBuf, 0, b.camera[:])
	}
}

func (b *Backend) writeCameraBytes(viewProj mgl32.Mat4, camRight, camUp mgl32.Vec3) {
	off := 0
	for _, v := range viewProj {
		putFloat32(b.camera[:], off, v)
		off += 4
	}
	for _, v := range [4]float32{camRight.X(), camRight.Y(), camRight.Z(), 0} {
		putFloat32(b.camera[:], off, v)
		off += 4
	}
	for _, v := range [4]float32{camUp.X(), camUp.Y(), camUp.Z(), 0} {
		putFloat32(b.camera[:], off, v)
		off += 4
	}
}

// Draw records every live layer into the pass.
func (b *Backend) Draw(pass *wgpu.RenderPassEncoder) {
	for _, h := range b.handles {
		if h.count == 0 {
			continue
		}
		pass.SetPipeline(b.pipeline)
		pass.SetBindGroup(0, h.bindGroup, nil)
		pass.SetVertexBuffer(0, h.instanceBuf, 0, h.instanceBuf.GetSize())
		pass.Draw(4, uint32(h.count), 0, 0)
	}
}

// HandleCount reports the number of live layer drawables.
func (b *Backend) HandleCount() int { return len(b.handles) }

func (b *Backend) dropHandle(h *Handle) {
	for i, other := range b.handles {
		if other == h {
			b.handles = append(b.handles[:i], b.handles[i+1:]...)
			return
		}
	}
}

// Release frees the shared GPU state. Handles must be disposed first (the
// Manager's Dispose does that).
func (b *Backend) Release() {
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.spriteView != nil {
		b.spriteView.Release()
		b.spriteView = nil
	}
	if b.spriteTex != nil {
		b.spriteTex.Release()
		b.spriteTex = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
}
