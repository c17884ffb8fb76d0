// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package player defines player identity and the collaborator interfaces the
// interaction engine reaches player-owned state through. Inventory and
// currency persistence live outside this repository; the engine only ever
// sees these interfaces.
package player

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Player is one connected player's identity plus handles to the
// collaborators owning their mutable state. The struct itself carries no
// gameplay state beyond the current level and connection binding, both of
// which change across a player's lifetime: the account service allows a
// second login for the same account, so a resolver may rebind the
// connection while another handler is mid-interaction. Level and connection
// access therefore goes through accessors guarded by the player's own lock;
// everything else is set once at resolve time and read-only after.
type Player struct {
	ID        ulid.ULID
	AccountID string
	Name      string

	Inventory Inventory
	Wallet    Wallet

	mu      sync.RWMutex
	levelID string // current level, empty until the first join
	conn    Connection
}

// Level returns the player's current level id, empty before the first join.
func (p *Player) Level() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.levelID
}

// SetLevel records the level the player joined.
func (p *Player) SetLevel(levelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levelID = levelID
}

// Connection returns the currently bound connection, nil before the first
// bind.
func (p *Player) Connection() Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn
}

// BindConnection points the player at a new connection. A duplicate login
// rebinds while the previous connection may still be draining; sends through
// the old connection fail on its own terms.
func (p *Player) BindConnection(conn Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn = conn
}

// Item is one inventory entry.
type Item struct {
	DefID    int `json:"def_id"`
	Quantity int `json:"quantity"`
}

// Inventory is the player-owned item store. Implementations must be safe for
// concurrent use; the engine serializes same-player interactions but other
// subsystems read inventory concurrently.
type Inventory interface {
	// HasItem reports whether the player owns at least one of defID.
	HasItem(defID int) bool
	// AddItem grants quantity of defID.
	AddItem(defID, quantity int) error
	// RemoveItem takes quantity of defID; fails if the player owns less.
	RemoveItem(defID, quantity int) error
	// Items returns a snapshot of the inventory.
	Items() []Item
}

// Wallet is the player-owned currency balance.
type Wallet interface {
	Balance() int
	// Deduct removes amount; fails if the balance is insufficient.
	Deduct(amount int) error
	Deposit(amount int)
}

// Connection sends structured response messages to one client connection.
// Sends are fire-and-forget; there is no reply correlation beyond the
// logical protocol fields.
type Connection interface {
	ID() ulid.ULID
	SendPacket(pkt any) error
}
