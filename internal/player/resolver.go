// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package player

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

// MemoryResolver hands out players with in-memory collaborators, one per
// account id, surviving reconnects within a process lifetime. Production
// deployments replace this with a resolver backed by the account service.
type MemoryResolver struct {
	startingBalance int

	mu        sync.Mutex
	byAccount map[string]*Player
	newULID   func() ulid.ULID
}

// NewMemoryResolver creates a resolver granting each new player the given
// starting balance.
func NewMemoryResolver(startingBalance int, newULID func() ulid.ULID) *MemoryResolver {
	return &MemoryResolver{
		startingBalance: startingBalance,
		byAccount:       make(map[string]*Player),
		newULID:         newULID,
	}
}

// ResolvePlayer returns the player for an account, creating one on first
// sight. The connection is rebound on every call; inventory and wallet
// persist across reconnects.
func (r *MemoryResolver) ResolvePlayer(_ context.Context, accountID, name string, conn Connection) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byAccount[accountID]
	if !ok {
		p = &Player{
			ID:        r.newULID(),
			AccountID: accountID,
			Name:      name,
			Inventory: NewMemoryInventory(),
			Wallet:    NewMemoryWallet(r.startingBalance),
		}
		r.byAccount[accountID] = p
	}
	p.BindConnection(conn)
	return p, nil
}
