package main

import (
	"flag"
	"math"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/aurafx/aura"
	"github.com/aurafx/aura/render"
)

func init() {
	runtime.LockOSThread()
}

// orbitProvider reports two anchor points circling the origin, standing in
// for the animated elements a real host would sample.
type orbitProvider struct {
	angle float32
}

func (o *orbitProvider) SourceElements() []aura.SourceElement {
	a := float64(o.angle)
	return []aura.SourceElement{
		{
			Category: "ambient",
			Position: mgl32.Vec3{float32(math.Cos(a)) * 0.8, 0.2, float32(math.Sin(a)) * 0.8},
			Model:    "orb",
		},
		{
			Category: "ambient",
			Position: mgl32.Vec3{float32(math.Cos(a+math.Pi)) * 0.8, 0.2, float32(math.Sin(a+math.Pi)) * 0.8},
			Model:    "orb",
		},
	}
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	preset := flag.String("preset", "mist", "Preset for the ambient layer")
	flag.Parse()

	logger := aura.NewDefaultLogger("aura-demo", *debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "Aura Demo", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		panic(err)
	}
	queue := device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	backend, err := render.NewBackend(device, config.Format)
	if err != nil {
		panic(err)
	}
	defer backend.Release()

	resolver := aura.NewResolver(logger)
	manager := aura.NewManager(backend.HandleFactory(), logger)
	defer manager.Dispose()

	manager.StartLayers("ambient", []aura.LayerConfig{
		resolver.Resolve(aura.LayerUse{
			Preset:          *preset,
			Anchor:          aura.AnchorAround,
			InheritVelocity: 0.5,
		}),
	})
	manager.StartLayers("accent", []aura.LayerConfig{
		resolver.Resolve(aura.LayerUse{
			Preset:     "embers",
			Intensity:  1.2,
			Anchor:     aura.AnchorAbove,
			CurveID:    "pulse",
			BurstCount: 12,
			Centrifugal: aura.CentrifugalParams{
				Speed:   0.4,
				Tangent: 0.6,
			},
		}),
	})

	eye := mgl32.Vec3{0, 1.2, 3}
	center := mgl32.Vec3{0, 0.3, 0}
	view := mgl32.LookAtV(eye, center, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(55), float32(width)/float32(height), 0.05, 100)
	// Billboard axes come straight out of the view matrix rows.
	camRight := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
	camUp := mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)}
	backend.SetCamera(proj.Mul4(view), camRight, camUp)

	provider := &orbitProvider{}
	last := glfw.GetTime()
	var gestureClock float32

	for !window.ShouldClose() {
		glfw.PollEvents()

		now := glfw.GetTime()
		dt := float32(now - last)
		last = now

		provider.angle += dt * 0.8
		gestureClock += dt

		// A 3-second looping "gesture" drives the accent layer.
		progress := float32(math.Mod(float64(gestureClock)/3, 1))
		manager.SyncSources("ambient", provider, nil)
		manager.SyncSources("accent", provider, nil)
		manager.SetProgress("ambient", 1)
		manager.SetProgress("accent", progress)
		manager.Update(dt)

		nextTexture, err := surface.GetCurrentTexture()
		if err != nil {
			logger.Errorf("GetCurrentTexture failed: %v", err)
			continue
		}
		frameView, err := nextTexture.CreateView(nil)
		if err != nil {
			nextTexture.Release()
			continue
		}

		encoder, err := device.CreateCommandEncoder(nil)
		if err != nil {
			frameView.Release()
			nextTexture.Release()
			continue
		}

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       frameView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.02, G: 0.02, B: 0.04, A: 1},
			}},
		})
		backend.Draw(pass)
		if err := pass.End(); err != nil {
			logger.Errorf("render pass End failed: %v", err)
		}

		cmd, err := encoder.Finish(nil)
		if err == nil {
			queue.Submit(cmd)
			surface.Present()
		}

		frameView.Release()
		nextTexture.Release()
	}
}
