// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package luamod

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/protocol"
	"github.com/wildmere/wildmere/internal/world"
)

// Compile-time interface check.
var _ interaction.Module = (*Module)(nil)

// Module is one Lua-scripted interaction module. The script defines:
//
//	matches(node) -> bool      claim predicate, called per visited tree node
//	handle(player, node, ctx) -> bool   gameplay effect for one matched node
//	on_success(player)         optional completion hook
//
// A node table carries opcode, params (array), and parent (another node
// table, or nil at a state-group root). The ctx table is the per-pass scratch
// store; values a parent's handle leaves there are visible to its branch
// children within the same pass. Player state is reached through the
// wildmere.* host functions registered into every state.
type Module struct {
	name    string
	code    string
	factory *stateFactory
}

// LoadFile reads and validates a Lua module script. The module name is the
// file name without its extension.
func LoadFile(path string) (*Module, error) {
	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("luamod").With("path", path).Hint("failed to read script").Wrap(err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(name, string(code))
}

// New creates a scripted module from source, validating the syntax in a
// throwaway state.
func New(name, code string) (*Module, error) {
	m := &Module{
		name:    name,
		code:    code,
		factory: newStateFactory(),
	}

	L, err := m.factory.newState()
	if err != nil {
		return nil, oops.In("luamod").With("module", name).Hint("failed to create validation state").Wrap(err)
	}
	defer L.Close()
	if err := L.DoString(code); err != nil {
		return nil, oops.In("luamod").With("module", name).Hint("syntax error").Wrap(err)
	}
	if L.GetGlobal("matches").Type() != lua.LTFunction {
		return nil, oops.In("luamod").With("module", name).New("script does not define matches(node)")
	}
	if L.GetGlobal("handle").Type() != lua.LTFunction {
		return nil, oops.In("luamod").With("module", name).New("script does not define handle(player, node, ctx)")
	}
	return m, nil
}

// Name implements interaction.Module.
func (m *Module) Name() string { return m.name }

// PrepareWorld implements interaction.Module. Scripts hold no per-level
// state; each call runs in a fresh Lua state.
func (m *Module) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {}

// CanHandle walks the tree calling the script's matches predicate per node.
// A script error fails closed: the object is simply not claimed.
func (m *Module) CanHandle(p *player.Player, interactionID string, obj *world.NetworkedObject) bool {
	L, err := m.prepare(p)
	if err != nil {
		m.logScriptError("can_handle", err)
		return false
	}
	defer L.Close()

	matches := L.GetGlobal("matches")
	return obj.Visit(func(node, parent *world.StateNode) bool {
		ok, err := m.callMatches(L, matches, node, parent)
		if err != nil {
			m.logScriptError("matches", err)
			return false
		}
		return ok
	})
}

// IsDataRequestValid implements interaction.Module, delegating to CanHandle.
func (m *Module) IsDataRequestValid(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) interaction.Validity {
	if m.CanHandle(p, interactionID, obj) {
		return interaction.ValidityValid
	}
	return interaction.ValidityInvalid
}

// HandleCommand re-checks the script's matches predicate on the node, then
// runs handle. Script errors refuse the node with no effect.
func (m *Module) HandleCommand(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec interaction.Context) bool {
	L, err := m.prepare(p)
	if err != nil {
		m.logScriptError("handle_command", err)
		return false
	}
	defer L.Close()

	ok, err := m.callMatches(L, L.GetGlobal("matches"), node, parent)
	if err != nil || !ok {
		if err != nil {
			m.logScriptError("matches", err)
		}
		return false
	}

	ctxTable := ecToTable(L, ec)
	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("handle"),
		NRet:    1,
		Protect: true,
	}, playerTable(L, p), nodeTable(L, node, parent), ctxTable); err != nil {
		m.logScriptError("handle", err)
		return false
	}
	ret := L.Get(-1)
	L.Pop(1)

	tableToEC(ctxTable, ec)
	return lua.LVAsBool(ret)
}

// HandleInteractionSuccess runs the script's optional on_success hook.
func (m *Module) HandleInteractionSuccess(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool {
	L, err := m.prepare(p)
	if err != nil {
		m.logScriptError("handle_success", err)
		return false
	}
	defer L.Close()

	hook := L.GetGlobal("on_success")
	if hook.Type() != lua.LTFunction {
		return true
	}
	if err := L.CallByParam(lua.P{
		Fn:      hook,
		NRet:    0,
		Protect: true,
	}, playerTable(L, p)); err != nil {
		m.logScriptError("on_success", err)
		return false
	}
	return true
}

// prepare creates a fresh state, registers the wildmere.* host functions
// bound to the given player, and loads the script.
func (m *Module) prepare(p *player.Player) (*lua.LState, error) {
	L, err := m.factory.newState()
	if err != nil {
		return nil, err
	}
	registerHostFunctions(L, m.name, p)
	if err := L.DoString(m.code); err != nil {
		L.Close()
		return nil, err
	}
	return L, nil
}

func (m *Module) callMatches(L *lua.LState, matches lua.LValue, node, parent *world.StateNode) (bool, error) {
	if err := L.CallByParam(lua.P{
		Fn:      matches,
		NRet:    1,
		Protect: true,
	}, nodeTable(L, node, parent)); err != nil {
		return false, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (m *Module) logScriptError(op string, err error) {
	slog.Error("lua module script error",
		"module", m.name,
		"operation", op,
		"error", err,
	)
}

// registerHostFunctions installs the wildmere.* API bound to one player.
func registerHostFunctions(L *lua.LState, module string, p *player.Player) {
	t := L.NewTable()

	L.SetField(t, "has_item", L.NewFunction(func(L *lua.LState) int {
		defID := L.CheckInt(1)
		L.Push(lua.LBool(p.Inventory.HasItem(defID)))
		return 1
	}))
	L.SetField(t, "add_item", L.NewFunction(func(L *lua.LState) int {
		defID := L.CheckInt(1)
		qty := L.CheckInt(2)
		if err := p.Inventory.AddItem(defID, qty); err != nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}))
	L.SetField(t, "remove_item", L.NewFunction(func(L *lua.LState) int {
		defID := L.CheckInt(1)
		qty := L.CheckInt(2)
		if err := p.Inventory.RemoveItem(defID, qty); err != nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}))
	L.SetField(t, "balance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(p.Wallet.Balance()))
		return 1
	}))
	L.SetField(t, "deduct", L.NewFunction(func(L *lua.LState) int {
		amount := L.CheckInt(1)
		if err := p.Wallet.Deduct(amount); err != nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}))
	L.SetField(t, "deposit", L.NewFunction(func(L *lua.LState) int {
		p.Wallet.Deposit(L.CheckInt(1))
		return 0
	}))
	L.SetField(t, "send_inventory", L.NewFunction(func(L *lua.LState) int {
		pkt := protocol.InventoryUpdate{Items: p.Inventory.Items()}
		if err := p.Connection().SendPacket(pkt); err != nil {
			slog.Warn("inventory update send failed",
				"player_id", p.ID.String(),
				"module", module,
				"error", err,
			)
		}
		return 0
	}))
	L.SetField(t, "log", L.NewFunction(func(L *lua.LState) int {
		slog.Info("lua module log",
			"module", module,
			"player_id", p.ID.String(),
			"message", L.CheckString(1),
		)
		return 0
	}))

	L.SetGlobal("wildmere", t)
}

// nodeTable converts a tree node (and its parent, one level up) to a Lua
// table.
func nodeTable(L *lua.LState, node, parent *world.StateNode) *lua.LTable {
	t := flatNodeTable(L, node)
	if parent != nil {
		L.SetField(t, "parent", flatNodeTable(L, parent))
	}
	return t
}

func flatNodeTable(L *lua.LState, node *world.StateNode) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "opcode", lua.LString(node.Opcode))
	params := L.NewTable()
	for _, param := range node.Params {
		params.Append(lua.LString(param))
	}
	L.SetField(t, "params", params)
	return t
}

func playerTable(L *lua.LState, p *player.Player) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(p.ID.String()))
	L.SetField(t, "account_id", lua.LString(p.AccountID))
	L.SetField(t, "name", lua.LString(p.Name))
	L.SetField(t, "level_id", lua.LString(p.Level()))
	return t
}

// ecToTable copies string-typed scratch values into a Lua table. Only
// strings, numbers, and booleans cross the boundary; richer Go values stay on
// the Go side.
func ecToTable(L *lua.LState, ec interaction.Context) *lua.LTable {
	t := L.NewTable()
	for k, v := range ec {
		switch val := v.(type) {
		case string:
			L.SetField(t, k, lua.LString(val))
		case int:
			L.SetField(t, k, lua.LNumber(val))
		case float64:
			L.SetField(t, k, lua.LNumber(val))
		case bool:
			L.SetField(t, k, lua.LBool(val))
		}
	}
	return t
}

// tableToEC copies scratch values mutated by the script back out.
func tableToEC(t *lua.LTable, ec interaction.Context) {
	t.ForEach(func(k, v lua.LValue) {
		key := k.String()
		switch val := v.(type) {
		case lua.LString:
			ec[key] = string(val)
		case lua.LNumber:
			ec[key] = float64(val)
		case lua.LBool:
			ec[key] = bool(val)
		}
	})
}
