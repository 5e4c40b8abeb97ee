// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package module

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/recorder/lib/clock"
	"github.com/bureau-foundation/recorder/lib/events"
	"github.com/bureau-foundation/recorder/lib/fault"
)

type stubModule struct {
	State
	name string
}

func (m *stubModule) Name() string    { return m.name }
func (m *stubModule) DataFrame() any  { return map[string]int{"v": 1} }
func (m *stubModule) Details() string { return "stub-0001" }

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(event events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) kinds() []events.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var kinds []events.Kind
	for _, event := range l.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	module := &stubModule{name: "Stub"}
	module.Bind(module.Name(), module.Details(), log, fake)

	if module.Usable() {
		t.Fatal("new module should not be usable")
	}

	module.SetUsable(true)
	module.SetUsable(true)
	module.SetUsable(false)
	module.SetUsable(false)
	module.SetUsable(true)

	got := log.kinds()
	want := []events.Kind{events.ModuleUsable, events.ModuleUnusable, events.ModuleUsable}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	first := log.events[0]
	if first.Module != "Stub" || first.Details != "stub-0001" {
		t.Errorf("event identity = %q/%q", first.Module, first.Details)
	}
	if !first.Time.Equal(fake.Now()) {
		t.Errorf("event time = %v, want %v", first.Time, fake.Now())
	}
	if !module.Usable() {
		t.Error("module should end usable")
	}
}

func TestStateUnbound(t *testing.T) {
	t.Parallel()

	var state State
	state.SetUsable(true)
	if !state.Usable() {
		t.Error("unbound state should still track the flag")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	for _, name := range []string{"Shimmer", "Eye", "Audio"} {
		if err := registry.Register(&stubModule{name: name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	modules := registry.Modules()
	if len(modules) != 3 || registry.Len() != 3 {
		t.Fatalf("len = %d/%d, want 3", len(modules), registry.Len())
	}
	for i, name := range []string{"Shimmer", "Eye", "Audio"} {
		if modules[i].Name() != name {
			t.Errorf("modules[%d] = %s, want %s", i, modules[i].Name(), name)
		}
	}

	if module, ok := registry.Get("Eye"); !ok || module.Name() != "Eye" {
		t.Errorf("Get(Eye) = %v, %v", module, ok)
	}
	if _, ok := registry.Get("Missing"); ok {
		t.Error("Get(Missing) should fail")
	}

	modules[0] = nil
	if registry.Modules()[0] == nil {
		t.Error("Modules should return a copy")
	}
}

func TestRegistryRejects(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if err := registry.Register(&stubModule{name: "Shimmer"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		module string
	}{
		{"duplicate", "Shimmer"},
		{"empty", ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := registry.Register(&stubModule{name: test.module})
			if !errors.Is(err, fault.ErrConfig) {
				t.Errorf("Register(%q) = %v, want config error", test.module, err)
			}
		})
	}
	if registry.Len() != 1 {
		t.Errorf("len = %d after rejected registrations", registry.Len())
	}
}
