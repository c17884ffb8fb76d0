// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package luamod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player/playertest"
	"github.com/wildmere/wildmere/internal/world"
)

// fountainScript grants collectible 900 once per player for opcode 77 nodes.
const fountainScript = `
function matches(node)
  return node.opcode == "77" and #node.params == 1 and node.params[1] == "grant"
end

function handle(player, node, ctx)
  if wildmere.has_item(900) then
    return true
  end
  if not wildmere.add_item(900, 1) then
    return false
  end
  wildmere.send_inventory()
  return true
end

function on_success(player)
  wildmere.log("fountain visited by " .. player.name)
end
`

func fountainObject() *world.NetworkedObject {
	return world.NewNetworkedObject("fountain-1", "meadow", []string{"1"}, map[string][]*world.StateNode{
		"1": {{Opcode: "77", Params: []string{"grant"}}},
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fountain.lua")
	require.NoError(t, os.WriteFile(path, []byte(fountainScript), 0o600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fountain", m.Name())
}

func TestNewRejectsBrokenScripts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
	}{
		{name: "syntax error", code: `function matches(`},
		{name: "missing matches", code: `function handle(p, n, c) return true end`},
		{name: "missing handle", code: `function matches(n) return true end`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New("broken", tt.code)
			assert.Error(t, err)
		})
	}
}

func TestScriptedClaimAndGrant(t *testing.T) {
	t.Parallel()

	m, err := New("fountain", fountainScript)
	require.NoError(t, err)

	p, conn := playertest.NewPlayer("rook", "meadow")
	obj := fountainObject()

	require.True(t, m.CanHandle(p, "use", obj))
	assert.Equal(t, interaction.ValidityValid, m.IsDataRequestValid(p, "use", obj, 0))

	run := func() bool {
		var applied bool
		obj.Visit(func(node, parent *world.StateNode) bool {
			applied = m.HandleCommand(p, "use", obj, node, parent, make(interaction.Context))
			return applied
		})
		return applied
	}

	require.True(t, run())
	assert.True(t, p.Inventory.HasItem(900))
	require.Len(t, conn.Packets(), 1)

	// Replay grants nothing further and sends nothing further.
	require.True(t, run())
	items := p.Inventory.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Len(t, conn.Packets(), 1)

	assert.True(t, m.HandleInteractionSuccess(p, "use", obj, 0))
}

func TestScriptedClaimRefusesForeignTrees(t *testing.T) {
	t.Parallel()

	m, err := New("fountain", fountainScript)
	require.NoError(t, err)

	p, _ := playertest.NewPlayer("rook", "meadow")
	obj := world.NewNetworkedObject("rock", "meadow", []string{"1"}, map[string][]*world.StateNode{
		"1": {{Opcode: "7", Params: []string{"grant"}}},
	})

	assert.False(t, m.CanHandle(p, "use", obj))
	assert.Equal(t, interaction.ValidityInvalid, m.IsDataRequestValid(p, "use", obj, 0))
}

func TestScriptRuntimeErrorFailsClosed(t *testing.T) {
	t.Parallel()

	m, err := New("volatile", `
function matches(node)
  return node.opcode == "77"
end

function handle(player, node, ctx)
  error("collaborator exploded")
end
`)
	require.NoError(t, err)

	p, _ := playertest.NewPlayer("rook", "meadow")
	obj := fountainObject()

	var applied bool
	obj.Visit(func(node, parent *world.StateNode) bool {
		applied = m.HandleCommand(p, "use", obj, node, parent, make(interaction.Context))
		return applied
	})
	assert.False(t, applied)
	assert.Empty(t, p.Inventory.Items())
}

func TestScriptScratchContextRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := New("counter", `
function matches(node)
  return node.opcode == "77"
end

function handle(player, node, ctx)
  ctx.note = "visited"
  return true
end
`)
	require.NoError(t, err)

	p, _ := playertest.NewPlayer("rook", "meadow")
	obj := fountainObject()

	ec := make(interaction.Context)
	var applied bool
	obj.Visit(func(node, parent *world.StateNode) bool {
		applied = m.HandleCommand(p, "use", obj, node, parent, ec)
		return applied
	})
	require.True(t, applied)
	assert.Equal(t, "visited", ec["note"])
}

func TestSandboxBlocksUnsafeLibraries(t *testing.T) {
	t.Parallel()

	_, err := New("escape", `
function matches(node) return false end
function handle(p, n, c) return false end
os.remove("/tmp/x")
`)
	assert.Error(t, err, "os library must not be available")
}
