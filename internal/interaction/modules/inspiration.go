// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package modules contains the shipped interaction modules. Each one claims
// world objects by walking their behavior trees for its own opcode signature
// and applies gameplay effects through the player's collaborators.
package modules

import (
	"log/slog"
	"strconv"

	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/protocol"
	"github.com/wildmere/wildmere/internal/world"
)

// Inspiration node signature: opcode 84, three params, subcode pair (1, 4),
// third param the collectible def id.
const (
	inspirationOpcode  = "84"
	inspirationSubcode = "1"
	inspirationMode    = "4"
)

// InspirationModule grants a collectible the first time a player discovers
// it. Grants are idempotent: a replayed or duplicated request re-sends the
// inventory listing but never grants twice.
type InspirationModule struct{}

// NewInspirationModule creates the collectible-discovery module.
func NewInspirationModule() *InspirationModule {
	return &InspirationModule{}
}

// Name implements interaction.Module.
func (m *InspirationModule) Name() string { return "inspiration" }

// PrepareWorld implements interaction.Module. Discovery state lives entirely
// on the player's inventory, so there is nothing to set up per level.
func (m *InspirationModule) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {}

// CanHandle claims objects whose tree carries an inspiration node. Root-level
// nodes are checked against their own params. For branch children the params
// check reads the PARENT node's params while matching the child's opcode.
// That asymmetry is load-bearing: live level content encodes the subcode pair
// on the gate node above the grant node, and harmonizing the check to the
// child would silently drop claims on that content. The execution walk in
// HandleCommand applies the identical rule so claim and execution can never
// diverge on which nodes match.
func (m *InspirationModule) CanHandle(p *player.Player, interactionID string, obj *world.NetworkedObject) bool {
	return obj.Visit(func(node, parent *world.StateNode) bool {
		return inspirationNodeMatches(node, parent)
	})
}

// IsDataRequestValid implements interaction.Module. The asserted state token
// is ignored; ownership of the object is re-derived from the tree.
func (m *InspirationModule) IsDataRequestValid(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) interaction.Validity {
	if m.CanHandle(p, interactionID, obj) {
		return interaction.ValidityValid
	}
	return interaction.ValidityInvalid
}

// HandleCommand grants the referenced collectible if the player does not own
// it yet, then pushes the updated inventory listing to the client.
func (m *InspirationModule) HandleCommand(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec interaction.Context) bool {
	if !inspirationNodeMatches(node, parent) {
		return false
	}

	paramNode := node
	if parent != nil {
		paramNode = parent
	}
	defID, ok := parseDefID(paramNode.Params[2])
	if !ok {
		return false
	}

	if !p.Inventory.HasItem(defID) {
		if err := p.Inventory.AddItem(defID, 1); err != nil {
			slog.Warn("inspiration grant failed",
				"player_id", p.ID.String(),
				"def_id", defID,
				"error", err,
			)
			return false
		}
	}

	sendInventory(p, m.Name())
	return true
}

// HandleInteractionSuccess implements interaction.Module.
func (m *InspirationModule) HandleInteractionSuccess(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool {
	slog.Debug("inspiration discovery completed",
		"player_id", p.ID.String(),
		"object_id", obj.ID,
	)
	return true
}

// inspirationNodeMatches is the single matching rule shared by CanHandle and
// HandleCommand. Root nodes (parent == nil) check their own params; branch
// children check the parent's params (see CanHandle).
func inspirationNodeMatches(node, parent *world.StateNode) bool {
	if node.Opcode != inspirationOpcode {
		return false
	}
	paramNode := node
	if parent != nil {
		paramNode = parent
	}
	return len(paramNode.Params) == 3 &&
		paramNode.Params[0] == inspirationSubcode &&
		paramNode.Params[1] == inspirationMode
}

// parseDefID parses a non-negative integer literal. Rejects signs, spaces,
// and values that do not fit an int; level content carries def ids as plain
// digit strings and anything else is malformed.
func parseDefID(s string) (int, bool) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// sendInventory pushes the current inventory listing to the player. Sends are
// fire-and-forget; a failed write is the connection layer's problem.
func sendInventory(p *player.Player, module string) {
	pkt := protocol.InventoryUpdate{Items: p.Inventory.Items()}
	if err := p.Connection().SendPacket(pkt); err != nil {
		slog.Warn("inventory update send failed",
			"player_id", p.ID.String(),
			"module", module,
			"error", err,
		)
	}
}
