// Package plugin defines the content renderer contract and the registry
// that builds configured plugin instances.
package plugin

import (
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"inkd/internal/config"
)

// RenderContext carries the device facts a renderer may need. It is
// constructed once per cycle by the refresh task.
type RenderContext struct {
	Width    int
	Height   int
	Location *time.Location
}

// Renderer produces one frame for a point in time.
//
// Render should be deterministic for inputs that have not semantically
// changed, so that identical content keeps a stable fingerprint across
// cycles and redundant repaints are skipped.
type Renderer interface {
	Type() string
	Render(rc RenderContext, now time.Time) (image.Image, error)
}

// Factory builds a renderer instance from its configured settings.
type Factory func(settings map[string]any) (Renderer, error)

// Registry maps renderer types to factories and configured instance names
// to built renderers. Build runs on config reload while the refresh worker
// resolves instances, so all access goes through the lock.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Renderer
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		instances: map[string]Renderer{},
	}
}

// Register installs a factory for a renderer type. Later registrations of
// the same type win (tests use this to stub builtins).
func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typ] = f
}

// Build constructs all configured instances, failing fast on unknown types
// or bad settings. The instance set is replaced atomically: on error the
// previous set stays live, and instances for plugins removed from the
// config do not survive a rebuild.
func (r *Registry) Build(cfgs []config.PluginConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]Renderer, len(cfgs))
	for _, pc := range cfgs {
		f, ok := r.factories[pc.Type]
		if !ok {
			return fmt.Errorf("plugin %q: unknown type %q (have %v)", pc.Name, pc.Type, r.typesLocked())
		}
		inst, err := f(pc.Settings)
		if err != nil {
			return fmt.Errorf("plugin %q: %w", pc.Name, err)
		}
		next[pc.Name] = inst
	}
	r.instances = next
	return nil
}

// Get returns the renderer instance for a configured name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	inst, ok := r.instances[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin %q: not configured", name)
	}
	return inst, nil
}

// Types lists the registered renderer types (sorted, for error messages).
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typesLocked()
}

func (r *Registry) typesLocked() []string {
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Names lists the configured instance names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instances))
	for n := range r.instances {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
