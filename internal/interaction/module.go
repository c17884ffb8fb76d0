// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package interaction implements the authoritative interaction dispatch
// engine: it takes an untrusted client claim ("I triggered step S of object
// O") and decides, from the server-loaded behavior tree attached to that
// object, whether the claim is legitimate and which gameplay effect to apply
// exactly once.
package interaction

import (
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/world"
)

// Validity is the result of a module's authorization gate.
type Validity int

const (
	// ValidityInvalid rejects the request outright.
	ValidityInvalid Validity = iota
	// ValidityValid authorizes execution.
	ValidityValid
	// ValidityDeferred is reserved for features that need more data before
	// deciding. No shipped module returns it yet.
	ValidityDeferred
)

func (v Validity) String() string {
	switch v {
	case ValidityInvalid:
		return "invalid"
	case ValidityValid:
		return "valid"
	case ValidityDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Context is the per-resolution-pass scratch store. It is created fresh for
// each pass, threaded through the node-matching recursion so a parent node's
// handling can leave data for its matched branch children, and discarded
// when the pass completes. Never persisted.
type Context map[string]any

// Module is one self-contained gameplay feature competing to claim world
// objects. Modules are stateless across requests except through the
// execution context; any process-wide configuration they hold must be
// immutable or swapped atomically (see the tables package).
type Module interface {
	// Name identifies the module in logs and metrics.
	Name() string

	// PrepareWorld is invoked once per player-session when a level's object
	// set becomes active. It is fanned out to every registered module
	// unconditionally; modules irrelevant to a level must no-op cheaply.
	PrepareWorld(levelID string, objectIDs []string, p *player.Player)

	// CanHandle reports whether this module owns the object's interactions.
	// It must be a pure tree-walk over obj's state groups (including branch
	// children to whatever depth the feature requires) and must not mutate
	// anything. First registered claimer wins.
	CanHandle(p *player.Player, interactionID string, obj *world.NetworkedObject) bool

	// IsDataRequestValid is the authorization gate, separate from the coarse
	// claim. The client-asserted state token is a hint only; modules
	// re-derive truth from the server-held tree.
	IsDataRequestValid(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) Validity

	// HandleCommand executes the gameplay effect for one matched node. It
	// must independently re-check node's opcode and validate every
	// parameter's shape before acting, and must be idempotent with respect
	// to state already recorded on the player. Returns false, with no
	// effect, when the node is not this module's or fails validation.
	HandleCommand(p *player.Player, interactionID string, obj *world.NetworkedObject, node, parent *world.StateNode, ec Context) bool

	// HandleInteractionSuccess runs after a HandleCommand returned true.
	// Its failure does not unwind already-applied effects.
	HandleInteractionSuccess(p *player.Player, interactionID string, obj *world.NetworkedObject, state int) bool
}
