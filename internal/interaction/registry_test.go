// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/player/playertest"
	"github.com/wildmere/wildmere/internal/world"
)

// fakeModule is a scriptable Module for dispatch tests.
type fakeModule struct {
	name      string
	canHandle func(p *player.Player, interactionID string, obj *world.NetworkedObject) bool
	validity  Validity
	handle    func(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec Context) bool
	success   func(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool

	preparedLevels []string
}

func (m *fakeModule) Name() string { return m.name }

func (m *fakeModule) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {
	m.preparedLevels = append(m.preparedLevels, levelID)
}

func (m *fakeModule) CanHandle(p *player.Player, interactionID string, obj *world.NetworkedObject) bool {
	if m.canHandle == nil {
		return false
	}
	return m.canHandle(p, interactionID, obj)
}

func (m *fakeModule) IsDataRequestValid(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) Validity {
	return m.validity
}

func (m *fakeModule) HandleCommand(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec Context) bool {
	if m.handle == nil {
		return false
	}
	return m.handle(p, interactionID, obj, node, parent, ec)
}

func (m *fakeModule) HandleInteractionSuccess(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool {
	if m.success == nil {
		return true
	}
	return m.success(p, interactionID, obj, state)
}

// claimAll returns a module that claims every object.
func claimAll(name string) *fakeModule {
	return &fakeModule{
		name:     name,
		validity: ValidityValid,
		canHandle: func(*player.Player, string, *world.NetworkedObject) bool {
			return true
		},
	}
}

func testObject(id string) *world.NetworkedObject {
	return world.NewNetworkedObject(id, "meadow", []string{"1"}, map[string][]*world.StateNode{
		"1": {{Opcode: "84", Params: []string{"1", "4", "2201"}}},
	})
}

func TestRegistryResolveOrder(t *testing.T) {
	t.Parallel()

	p, _ := playertest.NewPlayer("rook", "meadow")
	obj := testObject("obj-1")

	tests := []struct {
		name       string
		modules    []*fakeModule
		wantModule string
		wantOK     bool
	}{
		{
			name:    "no modules registered",
			modules: nil,
			wantOK:  false,
		},
		{
			name: "no module claims",
			modules: []*fakeModule{
				{name: "aloof"},
			},
			wantOK: false,
		},
		{
			name: "single claimer",
			modules: []*fakeModule{
				{name: "aloof"},
				claimAll("eager"),
			},
			wantModule: "eager",
			wantOK:     true,
		},
		{
			name: "earlier registration shadows later on overlap",
			modules: []*fakeModule{
				claimAll("first"),
				claimAll("second"),
			},
			wantModule: "first",
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := NewRegistry()
			for _, m := range tt.modules {
				reg.Register(m)
			}

			got, ok := reg.Resolve(p, "use", obj)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantModule, got.Name())
			}
		})
	}
}

func TestRegistryRegistrationOrderIsDeployOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		reg.Register(&fakeModule{name: name})
	}

	var names []string
	for _, m := range reg.Modules() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestRegistryDuplicateNameKeepsEarlierPriority(t *testing.T) {
	t.Parallel()

	p, _ := playertest.NewPlayer("rook", "meadow")
	obj := testObject("obj-1")

	first := claimAll("dup")
	second := claimAll("dup")

	reg := NewRegistry()
	reg.Register(first)
	reg.Register(second)

	got, ok := reg.Resolve(p, "use", obj)
	require.True(t, ok)
	assert.Same(t, Module(first), got)
	assert.Len(t, reg.Modules(), 2)
}

func TestRegistryPrepareWorldFansOutInOrder(t *testing.T) {
	t.Parallel()

	p, _ := playertest.NewPlayer("rook", "meadow")

	m1 := &fakeModule{name: "one"}
	m2 := &fakeModule{name: "two"}

	reg := NewRegistry()
	reg.Register(m1)
	reg.Register(m2)

	reg.PrepareWorld("meadow", []string{"obj-1", "obj-2"}, p)

	assert.Equal(t, []string{"meadow"}, m1.preparedLevels)
	assert.Equal(t, []string{"meadow"}, m2.preparedLevels)
}
