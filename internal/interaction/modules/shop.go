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

// Shop node signature: opcode 12, three params, subcode 5, then the listing
// id and the purchased item's def id.
const (
	shopOpcode  = "12"
	shopSubcode = "5"
)

// ShopModule sells items from world-placed vendor objects. Prices live in the
// hot-reloadable cost table keyed by listing id; a listing with no price is
// not for sale. The wallet deduct and the item grant both happen inside the
// per-player resolution lock, so a player cannot race two purchases against
// one balance.
type ShopModule struct {
	tables *tables.Store
}

// NewShopModule creates the vendor module backed by the given tables store.
func NewShopModule(store *tables.Store) *ShopModule {
	return &ShopModule{tables: store}
}

// Name implements interaction.Module.
func (m *ShopModule) Name() string { return "shop" }

// PrepareWorld implements interaction.Module.
func (m *ShopModule) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {}

// CanHandle claims objects carrying a shop node anywhere in the tree.
func (m *ShopModule) CanHandle(p *player.Player, interactionID string, obj *world.NetworkedObject) bool {
	return obj.Visit(func(node, _ *world.StateNode) bool {
		return shopNodeMatches(node)
	})
}

// IsDataRequestValid implements interaction.Module.
func (m *ShopModule) IsDataRequestValid(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) interaction.Validity {
	if m.CanHandle(p, interactionID, obj) {
		return interaction.ValidityValid
	}
	return interaction.ValidityInvalid
}

// HandleCommand performs one purchase: price lookup, wallet deduct, grant,
// inventory push. An unaffordable or unpriced listing refuses the node with
// no effect; a client that asserts a purchase it cannot pay for is simply
// rejected.
func (m *ShopModule) HandleCommand(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec interaction.Context) bool {
	if !shopNodeMatches(node) {
		return false
	}
	listingID := node.Params[1]
	defID, ok := parseDefID(node.Params[2])
	if !ok {
		return false
	}

	price, ok := m.tables.Current().Cost(listingID)
	if !ok {
		slog.Warn("shop node has no priced listing",
			"object_id", obj.ID,
			"listing_id", listingID,
		)
		return false
	}

	if err := p.Wallet.Deduct(price); err != nil {
		slog.Info("purchase refused",
			"player_id", p.ID.String(),
			"listing_id", listingID,
			"price", price,
			"balance", p.Wallet.Balance(),
		)
		return false
	}
	if err := p.Inventory.AddItem(defID, 1); err != nil {
		// The deduct already landed; give it back rather than leaving the
		// player charged for nothing.
		p.Wallet.Deposit(price)
		slog.Warn("purchase grant failed",
			"player_id", p.ID.String(),
			"def_id", defID,
			"error", err,
		)
		return false
	}

	sendInventory(p, m.Name())
	return true
}

// HandleInteractionSuccess implements interaction.Module.
func (m *ShopModule) HandleInteractionSuccess(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool {
	return true
}

func shopNodeMatches(node *world.StateNode) bool {
	return node.Opcode == shopOpcode &&
		len(node.Params) == 3 &&
		node.Params[0] == shopSubcode
}
