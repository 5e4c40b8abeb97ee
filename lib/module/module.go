// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package module

import (
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
)

// Module is the capability every sensor source exposes to the recorder.
// The recorder polls Usable and DataFrame once per tick; modules update
// both from their own goroutines, so implementations must be safe for
// concurrent use.
type Module interface {
	// Name is the key under which the module's frame appears in each
	// recorded entry. Unique within a Registry.
	Name() string

	// Usable reports whether the module currently has a connected,
	// readable source. Unusable modules are left out of entries.
	Usable() bool

	// DataFrame returns a snapshot of the module's latest reading. The
	// value is serialized as JSON; it must not be mutated after being
	// returned.
	DataFrame() any

	// Details returns a serial number or hardware name. Informational
	// only.
	Details() string
}

// State is an embeddable usability flag that announces every transition
// on a Publisher. Modules embed it to satisfy Module.Usable.
type State struct {
	usable atomic.Bool

	mu        sync.Mutex
	publisher events.Publisher
	clock     clock.Clock
	name      string
	details   string
}

// Bind sets the identity and destination for transition events. Call it
// before the module's goroutines start. A nil publisher discards
// events; a nil clock uses the real clock.
func (s *State) Bind(name, details string, publisher events.Publisher, clk clock.Clock) {
	if publisher == nil {
		publisher = events.Discard
	}
	if clk == nil {
		clk = clock.Real()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.details = details
	s.publisher = publisher
	s.clock = clk
}

// Usable reports the current flag.
func (s *State) Usable() bool { return s.usable.Load() }

// SetUsable sets the flag. When the value changes, a ModuleUsable or
// ModuleUnusable event is published. Setting the current value again is
// not a transition and publishes nothing.
func (s *State) SetUsable(usable bool) {
	if s.usable.Swap(usable) == usable {
		return
	}

	s.mu.Lock()
	publisher, clk, name, details := s.publisher, s.clock, s.name, s.details
	s.mu.Unlock()
	if publisher == nil {
		return
	}

	kind := events.ModuleUnusable
	if usable {
		kind = events.ModuleUsable
	}
	publisher.Publish(events.Event{
		Kind:    kind,
		Time:    clk.Now(),
		Module:  name,
		Details: details,
	})
}

// Registry is an ordered set of modules. Entries list module frames in
// registration order. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	byName  map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Module)}
}

// Register adds a module. Fails if the name is empty or already taken.
func (r *Registry) Register(module Module) error {
	name := module.Name()
	if name == "" {
		return fault.Config("module name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fault.Config("module %q is already registered", name)
	}
	r.modules = append(r.modules, module)
	r.byName[name] = module
	return nil
}

// Modules returns the registered modules in registration order. The
// slice is a copy.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Module(nil), r.modules...)
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	module, ok := r.byName[name]
	return module, ok
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
