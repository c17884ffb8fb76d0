// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package playertest provides player fixtures for tests.
package playertest

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/wildmere/wildmere/internal/core"
	"github.com/wildmere/wildmere/internal/player"
)

// RecordingConnection captures packets sent to a player for assertions.
type RecordingConnection struct {
	id ulid.ULID

	mu      sync.Mutex
	packets []any
	// SendErr, when set, is returned by every SendPacket call.
	SendErr error
}

// NewRecordingConnection creates a connection that records sent packets.
func NewRecordingConnection() *RecordingConnection {
	return &RecordingConnection{id: core.NewULID()}
}

// ID returns the connection id.
func (c *RecordingConnection) ID() ulid.ULID { return c.id }

// SendPacket records the packet.
func (c *RecordingConnection) SendPacket(pkt any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.packets = append(c.packets, pkt)
	return nil
}

// Packets returns a snapshot of everything sent so far.
func (c *RecordingConnection) Packets() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.packets))
	copy(out, c.packets)
	return out
}

// NewPlayer builds a connected player with in-memory collaborators.
func NewPlayer(name, levelID string) (*player.Player, *RecordingConnection) {
	conn := NewRecordingConnection()
	p := &player.Player{
		ID:        core.NewULID(),
		AccountID: "acct-" + name,
		Name:      name,
		Inventory: player.NewMemoryInventory(),
		Wallet:    player.NewMemoryWallet(1000),
	}
	p.SetLevel(levelID)
	p.BindConnection(conn)
	return p, conn
}
