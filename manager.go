package aura

import "github.com/go-gl/mathgl/mgl32"

// Manager orchestrates every effect layer across categories. It owns the
// category registry outright: no globals, one instance per host.
//
// The contract is frame-synchronous and single-threaded: call the sync and
// broadcast methods as inputs arrive, then Update exactly once per frame.
// Nothing here locks; ownership of every emitter stays with the registry
// until the reap pass removes it.
type Manager struct {
	log      Logger
	factory  HandleFactory
	registry map[Category][]*Emitter
	time     float32
}

// NewManager creates an empty manager. A nil factory backs every layer with
// the headless NopHandle; a nil logger discards.
func NewManager(factory HandleFactory, log Logger) *Manager {
	if factory == nil {
		factory = NopHandleFactory
	}
	return &Manager{
		log:      orNop(log),
		factory:  factory,
		registry: make(map[Category][]*Emitter),
	}
}

// StartLayers appends one emitter per config to the category. Additive:
// layers already running under the category are not disturbed, so composite
// effects can stack.
func (m *Manager) StartLayers(category Category, configs []LayerConfig) {
	for _, cfg := range configs {
		handle, err := m.factory(cfg)
		if err != nil {
			m.log.Errorf("layer start failed for %q: %v", category, err)
			continue
		}
		em := NewEmitter(cfg, handle)
		m.registry[category] = append(m.registry[category], em)
		m.log.Debugf("layer %s started under %q (capacity %d)", em.Id, category, cfg.Capacity)
	}
}

// StopLayers gracefully stops every layer in the category: spawning ceases,
// live particles drain out, and each emitter self-removes once empty.
func (m *Manager) StopLayers(category Category) {
	for _, em := range m.registry[category] {
		em.StopSpawning()
	}
}

// ForceStop interrupts the category: every emitter is disposed immediately
// and the list is dropped. No draining window.
func (m *Manager) ForceStop(category Category) {
	ems, ok := m.registry[category]
	if !ok {
		return
	}
	for _, em := range ems {
		em.Dispose()
	}
	delete(m.registry, category)
}

// SyncSources filters the frame's source elements per emitter (category plus
// the emitter's target filter), converts them into render space via
// transform, and hands each emitter its working set.
func (m *Manager) SyncSources(category Category, provider SourceProvider, transform TransformFunc) {
	ems := m.registry[category]
	if len(ems) == 0 || provider == nil {
		return
	}
	elements := provider.SourceElements()

	var points [MaxSourcesPerEmitter]mgl32.Vec3
	for _, em := range ems {
		filter := em.Config().TargetFilter
		n := 0
		for _, el := range elements {
			if el.Category != category {
				continue
			}
			if filter != "" && el.Model != filter {
				continue
			}
			p := el.Position
			if transform != nil {
				p = transform(p)
			}
			points[n] = p
			n++
			if n == MaxSourcesPerEmitter {
				break
			}
		}
		em.SetSourcePositions(points[:n])
	}
}

// SetProgress broadcasts gesture progress to the category. On the frame
// progress first becomes positive, each layer's configured one-shot burst
// fires, exactly once per layer activation.
func (m *Manager) SetProgress(category Category, progress float32) {
	for _, em := range m.registry[category] {
		em.SetProgress(progress)
		if progress > 0 {
			em.fireBurstOnce(m.time)
		}
	}
}

// SetEnergy broadcasts an explicit energy scalar to the category, overriding
// the progress-curve spawn multiplier from this point on.
func (m *Manager) SetEnergy(category Category, energy float32) {
	for _, em := range m.registry[category] {
		em.SetEnergy(energy)
	}
}

// Update advances every emitter by dt (clamped at MaxFrameDt), then reaps
// dead emitters and drops categories whose lists empty out. Call once per
// frame.
func (m *Manager) Update(dt float32) {
	if dt < 0 {
		dt = 0
	}
	if dt > MaxFrameDt {
		dt = MaxFrameDt
	}
	m.time += dt

	for _, ems := range m.registry {
		for _, em := range ems {
			em.Update(dt, m.time)
		}
	}

	// Reap after the advance pass so a dead emitter is removed the same
	// frame it drains.
	for category, ems := range m.registry {
		alive := ems[:0]
		for _, em := range ems {
			if em.IsDead() {
				em.Dispose()
				m.log.Debugf("layer %s drained, removed from %q", em.Id, category)
				continue
			}
			alive = append(alive, em)
		}
		if len(alive) == 0 {
			delete(m.registry, category)
		} else {
			m.registry[category] = alive
		}
	}
}

// HasActiveSources reports whether any emitter holds live particles or is
// actively spawning with sources present.
func (m *Manager) HasActiveSources() bool {
	for _, ems := range m.registry {
		for _, em := range ems {
			if em.active > 0 || (em.spawning && em.sourceCount > 0) {
				return true
			}
		}
	}
	return false
}

// ActiveCategories returns the categories with at least one layer, for
// introspection.
func (m *Manager) ActiveCategories() []Category {
	out := make([]Category, 0, len(m.registry))
	for category := range m.registry {
		out = append(out, category)
	}
	return out
}

// Emitters returns the category's layers in start order. The slice is owned
// by the registry; callers must not mutate it.
func (m *Manager) Emitters(category Category) []*Emitter {
	return m.registry[category]
}

// Dispose force-disposes everything. Shutdown path.
func (m *Manager) Dispose() {
	for category := range m.registry {
		m.ForceStop(category)
	}
}
