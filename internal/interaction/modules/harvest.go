// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package modules

import (
	"log/slog"

	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/tables"
	"github.com/wildmere/wildmere/internal/world"
)

// Harvest node signature: opcode 92, two params, subcode 2, second param the
// yield count per gather.
const (
	harvestOpcode  = "92"
	harvestSubcode = "2"
)

// HarvestModule lets players gather resources from world objects. Which item
// def ids an object yields is operator configuration: the first loot rule
// whose glob matches the object id decides, and the tables store hot-swaps
// rules without a restart. Harvesting is repeatable; every accepted pass
// grants another yield.
type HarvestModule struct {
	tables *tables.Store
}

// NewHarvestModule creates the resource-gathering module backed by the given
// tables store.
func NewHarvestModule(store *tables.Store) *HarvestModule {
	return &HarvestModule{tables: store}
}

// Name implements interaction.Module.
func (m *HarvestModule) Name() string { return "harvest" }

// PrepareWorld implements interaction.Module.
func (m *HarvestModule) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {}

// CanHandle claims objects carrying a harvest node anywhere in the tree.
func (m *HarvestModule) CanHandle(p *player.Player, interactionID string, obj *world.NetworkedObject) bool {
	return obj.Visit(func(node, _ *world.StateNode) bool {
		return harvestNodeMatches(node)
	})
}

// IsDataRequestValid implements interaction.Module.
func (m *HarvestModule) IsDataRequestValid(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) interaction.Validity {
	if m.CanHandle(p, interactionID, obj) {
		return interaction.ValidityValid
	}
	return interaction.ValidityInvalid
}

// HandleCommand grants the configured loot for the object. An object with a
// harvest node but no matching loot rule yields nothing; that is an operator
// configuration gap, logged but treated as a refused node.
func (m *HarvestModule) HandleCommand(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec interaction.Context) bool {
	if !harvestNodeMatches(node) {
		return false
	}
	yield, ok := parseDefID(node.Params[1])
	if !ok || yield == 0 {
		return false
	}

	rule, ok := m.tables.Current().LootFor(obj.ID)
	if !ok {
		slog.Warn("harvest node has no loot rule",
			"object_id", obj.ID,
			"level_id", obj.LevelID,
		)
		return false
	}

	for _, defID := range rule.Items {
		if err := p.Inventory.AddItem(defID, yield); err != nil {
			slog.Warn("harvest grant failed",
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
func (m *HarvestModule) HandleInteractionSuccess(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool {
	return true
}

func harvestNodeMatches(node *world.StateNode) bool {
	return node.Opcode == harvestOpcode &&
		len(node.Params) == 2 &&
		node.Params[0] == harvestSubcode
}
