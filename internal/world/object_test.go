// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestObject(stateKeys []string, stateInfo map[string][]*StateNode) *NetworkedObject {
	return NewNetworkedObject("obj-1", "grove", stateKeys, stateInfo)
}

func TestVisit_SiblingsInDeclarationOrder(t *testing.T) {
	obj := newTestObject([]string{"0"}, map[string][]*StateNode{
		"0": {
			{Opcode: "1"},
			{Opcode: "2"},
			{Opcode: "3"},
		},
	})

	var visited []string
	obj.Visit(func(node, _ *StateNode) bool {
		visited = append(visited, node.Opcode)
		return false
	})
	assert.Equal(t, []string{"1", "2", "3"}, visited)
}

func TestVisit_BranchesAfterNodeInKeyOrder(t *testing.T) {
	obj := newTestObject([]string{"0"}, map[string][]*StateNode{
		"0": {
			{
				Opcode: "root",
				Branches: map[string][]*StateNode{
					"b": {{Opcode: "from-b"}},
					"a": {{Opcode: "from-a"}},
				},
			},
			{Opcode: "second"},
		},
	})

	var visited []string
	obj.Visit(func(node, _ *StateNode) bool {
		visited = append(visited, node.Opcode)
		return false
	})
	assert.Equal(t, []string{"root", "from-a", "from-b", "second"}, visited)
}

func TestVisit_ParentLinkage(t *testing.T) {
	child := &StateNode{Opcode: "child"}
	root := &StateNode{
		Opcode:   "root",
		Branches: map[string][]*StateNode{"1": {child}},
	}
	obj := newTestObject([]string{"0"}, map[string][]*StateNode{"0": {root}})

	parents := make(map[string]*StateNode)
	obj.Visit(func(node, parent *StateNode) bool {
		parents[node.Opcode] = parent
		return false
	})

	assert.Nil(t, parents["root"])
	assert.Same(t, root, parents["child"])
}

func TestVisit_StopsOnFirstMatch(t *testing.T) {
	obj := newTestObject([]string{"0"}, map[string][]*StateNode{
		"0": {
			{Opcode: "1"},
			{Opcode: "target"},
			{Opcode: "3"},
		},
	})

	var visited []string
	stopped := obj.Visit(func(node, _ *StateNode) bool {
		visited = append(visited, node.Opcode)
		return node.Opcode == "target"
	})

	assert.True(t, stopped)
	assert.Equal(t, []string{"1", "target"}, visited)
}

func TestVisit_StateGroupsInDeclarationOrder(t *testing.T) {
	obj := newTestObject([]string{"z", "a"}, map[string][]*StateNode{
		"z": {{Opcode: "first"}},
		"a": {{Opcode: "second"}},
	})

	var visited []string
	obj.Visit(func(node, _ *StateNode) bool {
		visited = append(visited, node.Opcode)
		return false
	})
	assert.Equal(t, []string{"first", "second"}, visited)
}

func TestVisit_DepthBound(t *testing.T) {
	// Build a chain deeper than MaxTreeDepth; nodes past the bound must be
	// skipped, not recursed into.
	leaf := &StateNode{Opcode: "too-deep"}
	node := leaf
	for range MaxTreeDepth + 5 {
		node = &StateNode{
			Opcode:   "link",
			Branches: map[string][]*StateNode{"1": {node}},
		}
	}
	obj := newTestObject([]string{"0"}, map[string][]*StateNode{"0": {node}})

	found := obj.Visit(func(n, _ *StateNode) bool {
		return n.Opcode == "too-deep"
	})
	assert.False(t, found)
}

func TestVisitStates_OnlyWalksOneGroup(t *testing.T) {
	obj := newTestObject([]string{"0", "1"}, map[string][]*StateNode{
		"0": {{Opcode: "wanted"}},
		"1": {{Opcode: "other"}},
	})

	var visited []string
	obj.VisitStates("0", func(node, _ *StateNode) bool {
		visited = append(visited, node.Opcode)
		return false
	})
	assert.Equal(t, []string{"wanted"}, visited)
}

func TestStates_Lookup(t *testing.T) {
	nodes := []*StateNode{{Opcode: "84", Params: []string{"1", "4", "555"}}}
	obj := newTestObject([]string{"0"}, map[string][]*StateNode{"0": nodes})

	require.Len(t, obj.States("0"), 1)
	assert.Equal(t, "84", obj.States("0")[0].Opcode)
	assert.Nil(t, obj.States("missing"))
}

func TestBranchKeys_Sorted(t *testing.T) {
	node := &StateNode{
		Opcode: "x",
		Branches: map[string][]*StateNode{
			"2": nil, "10": nil, "1": nil,
		},
	}
	assert.Equal(t, []string{"1", "10", "2"}, node.BranchKeys())

	leaf := &StateNode{Opcode: "leaf"}
	assert.Nil(t, leaf.BranchKeys())
}
