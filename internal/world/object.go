// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package world holds the server-authoritative behavior trees attached to
// placed level objects. Trees are built once by the loader when a level
// becomes active and are never mutated afterwards; interaction modules only
// ever read them.
package world

import (
	"sort"
)

// MaxTreeDepth bounds visitor recursion. Level content never nests this
// deep; hitting the bound means the bundle is malformed and the remaining
// subtree is skipped rather than recursed into.
const MaxTreeDepth = 32

// StateNode is one node of an object's behavior tree: a content-defined
// opcode, its ordered string parameters, and keyed branch groups of child
// nodes. Opcode semantics are game content, not known to the engine; modules
// must validate parameter arity and shape before acting on them.
type StateNode struct {
	Opcode   string
	Params   []string
	Branches map[string][]*StateNode
}

// BranchKeys returns the node's branch-selector keys in sorted order.
// Sibling order inside each branch is declaration order; the key order of
// the map itself carries no content meaning, so visitors sort it for
// deterministic traversal.
func (n *StateNode) BranchKeys() []string {
	if len(n.Branches) == 0 {
		return nil
	}
	keys := make([]string, 0, len(n.Branches))
	for k := range n.Branches {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NetworkedObject is a world-placed interactive entity: a stable object id,
// the level that owns it, and the state-group roots of its behavior tree.
// Sibling sequences keep their declaration order; first match wins.
type NetworkedObject struct {
	ID        string
	LevelID   string
	StateInfo map[string][]*StateNode

	stateKeys []string // declaration order of state-group keys
}

// NewNetworkedObject creates an object with the given state groups. The
// stateKeys slice records declaration order for deterministic traversal.
func NewNetworkedObject(id, levelID string, stateKeys []string, stateInfo map[string][]*StateNode) *NetworkedObject {
	return &NetworkedObject{
		ID:        id,
		LevelID:   levelID,
		StateInfo: stateInfo,
		stateKeys: stateKeys,
	}
}

// States returns the root sibling sequence for one state-group key.
func (o *NetworkedObject) States(key string) []*StateNode {
	return o.StateInfo[key]
}

// StateKeys returns the state-group keys in declaration order. Objects
// constructed without explicit key order fall back to sorted keys.
func (o *NetworkedObject) StateKeys() []string {
	if len(o.stateKeys) == len(o.StateInfo) {
		return o.stateKeys
	}
	keys := make([]string, 0, len(o.StateInfo))
	for k := range o.StateInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// VisitFunc is called for every node reached during a traversal, together
// with the node's parent (nil for state-group roots). Returning true stops
// the walk.
type VisitFunc func(node, parent *StateNode) bool

// Visit walks every state group of the object depth-first: siblings in
// declaration order, then branches in sorted key order. Recursion is bounded
// by MaxTreeDepth. Returns true if the callback stopped the walk.
func (o *NetworkedObject) Visit(fn VisitFunc) bool {
	for _, key := range o.StateKeys() {
		if visitNodes(o.StateInfo[key], nil, fn, 0) {
			return true
		}
	}
	return false
}

// VisitStates walks a single state group with the same discipline as Visit.
func (o *NetworkedObject) VisitStates(key string, fn VisitFunc) bool {
	return visitNodes(o.StateInfo[key], nil, fn, 0)
}

func visitNodes(nodes []*StateNode, parent *StateNode, fn VisitFunc, depth int) bool {
	if depth >= MaxTreeDepth {
		return false
	}
	for _, node := range nodes {
		if fn(node, parent) {
			return true
		}
		for _, key := range node.BranchKeys() {
			if visitNodes(node.Branches[key], node, fn, depth+1) {
				return true
			}
		}
	}
	return false
}
