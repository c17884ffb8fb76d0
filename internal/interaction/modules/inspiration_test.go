// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player/playertest"
	"github.com/wildmere/wildmere/internal/protocol"
	"github.com/wildmere/wildmere/internal/world"
)

func inspirationObject(id string, params ...string) *world.NetworkedObject {
	return world.NewNetworkedObject(id, "meadow", []string{"1"}, map[string][]*world.StateNode{
		"1": {{Opcode: "84", Params: params}},
	})
}

func TestInspirationCanHandle(t *testing.T) {
	t.Parallel()

	p, _ := playertest.NewPlayer("rook", "meadow")
	m := NewInspirationModule()

	tests := []struct {
		name string
		obj  *world.NetworkedObject
		want bool
	}{
		{
			name: "matching node",
			obj:  inspirationObject("shrine", "1", "4", "555"),
			want: true,
		},
		{
			name: "wrong subcode",
			obj:  inspirationObject("shrine", "2", "4", "555"),
			want: false,
		},
		{
			name: "wrong mode",
			obj:  inspirationObject("shrine", "1", "9", "555"),
			want: false,
		},
		{
			name: "too few params",
			obj:  inspirationObject("shrine", "1", "4"),
			want: false,
		},
		{
			name: "no matching opcode anywhere",
			obj: world.NewNetworkedObject("rock", "meadow", []string{"1"}, map[string][]*world.StateNode{
				"1": {{Opcode: "7", Params: []string{"1", "4", "555"}}},
			}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m.CanHandle(p, "use", tt.obj))
		})
	}
}

func TestInspirationBranchChildChecksParentParams(t *testing.T) {
	t.Parallel()

	p, _ := playertest.NewPlayer("rook", "meadow")
	m := NewInspirationModule()

	// The grant node sits under a gate node; the subcode pair and def id live
	// on the gate, not on the grant node itself.
	obj := world.NewNetworkedObject("shrine", "meadow", []string{"1"}, map[string][]*world.StateNode{
		"1": {{
			Opcode: "1",
			Params: []string{"1", "4", "777"},
			Branches: map[string][]*world.StateNode{
				"true": {{Opcode: "84", Params: []string{"ignored"}}},
			},
		}},
	})

	require.True(t, m.CanHandle(p, "use", obj))

	var applied bool
	obj.Visit(func(node, parent *world.StateNode) bool {
		applied = m.HandleCommand(p, "use", obj, node, parent, make(interaction.Context))
		return applied
	})
	require.True(t, applied)
	assert.True(t, p.Inventory.HasItem(777))
}

func TestInspirationGrantIsIdempotent(t *testing.T) {
	t.Parallel()

	p, conn := playertest.NewPlayer("rook", "meadow")
	m := NewInspirationModule()
	obj := inspirationObject("shrine", "1", "4", "555")

	run := func() bool {
		var applied bool
		obj.Visit(func(node, parent *world.StateNode) bool {
			applied = m.HandleCommand(p, "use", obj, node, parent, make(interaction.Context))
			return applied
		})
		return applied
	}

	require.True(t, run())
	assert.True(t, p.Inventory.HasItem(555))
	itemsAfterFirst := p.Inventory.Items()

	// Replayed request succeeds but does not grant twice.
	require.True(t, run())
	assert.Equal(t, itemsAfterFirst, p.Inventory.Items())

	// Both passes still pushed an inventory listing.
	packets := conn.Packets()
	require.Len(t, packets, 2)
	upd, ok := packets[0].(protocol.InventoryUpdate)
	require.True(t, ok)
	require.Len(t, upd.Items, 1)
	assert.Equal(t, 555, upd.Items[0].DefID)
	assert.Equal(t, 1, upd.Items[0].Quantity)
}

func TestInspirationRejectsMalformedDefID(t *testing.T) {
	t.Parallel()

	m := NewInspirationModule()

	tests := []struct {
		name  string
		defID string
	}{
		{name: "non-numeric", defID: "abc"},
		{name: "negative", defID: "-5"},
		{name: "signed", defID: "+5"},
		{name: "empty", defID: ""},
		{name: "embedded space", defID: "5 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, conn := playertest.NewPlayer("rook", "meadow")
			obj := inspirationObject("shrine", "1", "4", tt.defID)

			var applied bool
			obj.Visit(func(node, parent *world.StateNode) bool {
				applied = m.HandleCommand(p, "use", obj, node, parent, make(interaction.Context))
				return applied
			})

			assert.False(t, applied)
			assert.Empty(t, p.Inventory.Items())
			assert.Empty(t, conn.Packets())
		})
	}
}

func TestInspirationValidityDelegatesToClaim(t *testing.T) {
	t.Parallel()

	p, _ := playertest.NewPlayer("rook", "meadow")
	m := NewInspirationModule()

	owned := inspirationObject("shrine", "1", "4", "555")
	assert.Equal(t, interaction.ValidityValid, m.IsDataRequestValid(p, "use", owned, 3))

	foreign := inspirationObject("shrine", "9", "9", "555")
	assert.Equal(t, interaction.ValidityInvalid, m.IsDataRequestValid(p, "use", foreign, 3))
}

func TestParseDefID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "0", want: 0, wantOK: true},
		{in: "555", want: 555, wantOK: true},
		{in: "007", want: 7, wantOK: true},
		{in: "", wantOK: false},
		{in: "-1", wantOK: false},
		{in: "+1", wantOK: false},
		{in: "1e3", wantOK: false},
		{in: " 1", wantOK: false},
		// Wider than int64; a wrapped value must not sneak through as a
		// small positive def id.
		{in: "99999999999999999999", wantOK: false},
		{in: "9223372036854775808", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := parseDefID(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}
