package render

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/aurafx/aura"
)

// particleInstance matches the WGSL instance layout in particles.wgsl:
// pos_size (xyz position, w size), vel_spawn (xyz velocity, w spawn time),
// misc (lifetime, rotation, seed, unused).
type particleInstance struct {
	PosSize  [4]float32
	VelSpawn [4]float32
	Misc     [4]float32
}

// Handle is the wgpu-backed drawable for one effect layer.
type Handle struct {
	backend *Backend

	uniformBuf  *wgpu.Buffer
	bindGroup   *wgpu.BindGroup
	instanceBuf *wgpu.Buffer
	instanceCap int
	count       int

	scratch  []particleInstance
	released bool
}

var _ aura.RenderHandle = (*Handle)(nil)

// UploadInstances packs the live slots into the instance buffer, growing it
// with headroom when the layer outgrows the current allocation.
func (h *Handle) UploadInstances(data aura.InstanceData) {
	if h.released {
		return
	}
	h.count = data.Count
	if data.Count == 0 {
		return
	}

	if cap(h.scratch) < data.Count {
		h.scratch = make([]particleInstance, 0, data.Count)
	}
	h.scratch = h.scratch[:data.Count]
	for i := 0; i < data.Count; i++ {
		p := data.Position[i]
		v := data.Velocity[i]
		h.scratch[i] = particleInstance{
			PosSize:  [4]float32{p.X(), p.Y(), p.Z(), data.Size[i]},
			VelSpawn: [4]float32{v.X(), v.Y(), v.Z(), data.SpawnTime[i]},
			Misc:     [4]float32{data.Lifetime[i], data.Rotation[i], data.Seed[i], 0},
		}
	}

	stride := int(unsafe.Sizeof(particleInstance{}))
	if h.instanceBuf == nil || h.instanceCap < data.Count {
		if h.instanceBuf != nil {
			h.instanceBuf.Release()
		}
		h.instanceCap = data.Count + 64
		h.instanceBuf, _ = h.backend.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "ParticleInstanceBuffer",
			Size:  uint64(h.instanceCap * stride),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
	}

	byteLen := data.Count * stride
	h.backend.queue.WriteBuffer(h.instanceBuf, 0,
		unsafe.Slice((*byte)(unsafe.Pointer(&h.scratch[0])), byteLen))
}

// SetTime writes the global time into the layer's uniform block.
func (h *Handle) SetTime(t float32) {
	if h.released {
		return
	}
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(t))
	h.backend.queue.WriteBuffer(h.uniformBuf, 112, buf[:])
}

// Dispose releases the handle's buffers and unregisters it from the backend
// draw list. Safe to call repeatedly.
func (h *Handle) Dispose() {
	if h.released {
		return
	}
	h.released = true
	h.count = 0
	h.backend.dropHandle(h)
	if h.instanceBuf != nil {
		h.instanceBuf.Release()
		h.instanceBuf = nil
	}
	if h.bindGroup != nil {
		h.bindGroup.Release()
		h.bindGroup = nil
	}
	if h.uniformBuf != nil {
		h.uniformBuf.Release()
		h.uniformBuf = nil
	}
}

func (h *Handle) writeColor(color mgl32.Vec3, opacity float32) {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(color.X()))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(color.Y()))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(color.Z()))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(opacity))
	h.backend.queue.WriteBuffer(h.uniformBuf, 96, buf[:])
}

func putFloat32(dst []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
}
