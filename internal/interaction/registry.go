// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package interaction

import (
	"log/slog"
	"sync"

	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/world"
)

// Registry holds interaction modules in a fixed registration order decided
// at startup. Order is part of the deployed configuration: resolution stops
// at the first module that claims an object, so earlier modules shadow later
// ones on overlapping opcodes.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a module. A duplicate name is allowed but logged; the
// earlier registration keeps priority.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.modules {
		if existing.Name() == m.Name() {
			slog.Warn("module name already registered; earlier registration keeps priority",
				"module", m.Name())
			break
		}
	}
	r.modules = append(r.modules, m)
}

// PrepareWorld fans the world-preparation hook out to every module, in
// registration order.
func (r *Registry) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {
	r.mu.RLock()
	modules := r.modules
	r.mu.RUnlock()

	for _, m := range modules {
		m.PrepareWorld(levelID, objectIDs, p)
	}
}

// Resolve returns the first module, in registration order, whose CanHandle
// accepts the (player, interactionID, object) combination. No later module
// is consulted once one claims: first-match-wins, not best-match.
func (r *Registry) Resolve(p *player.Player, interactionID string, obj *world.NetworkedObject) (Module, bool) {
	r.mu.RLock()
	modules := r.modules
	r.mu.RUnlock()

	for _, m := range modules {
		if m.CanHandle(p, interactionID, obj) {
			return m, true
		}
	}
	return nil, false
}

// Modules returns the registered modules in order. The returned slice is a
// copy and safe to modify.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}
