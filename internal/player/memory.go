// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package player

import (
	"sort"
	"sync"

	"github.com/samber/oops"
)

// Error codes for player-owned state mutations.
const (
	CodeInsufficientItems = "INSUFFICIENT_ITEMS"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
)

// MemoryInventory is an in-memory Inventory. The real deployment backs
// inventories with the account service; this implementation serves tests and
// standalone runs.
type MemoryInventory struct {
	mu    sync.RWMutex
	items map[int]int // defID -> quantity
}

// NewMemoryInventory creates an empty in-memory inventory.
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{items: make(map[int]int)}
}

// HasItem reports whether the player owns at least one of defID.
func (inv *MemoryInventory) HasItem(defID int) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.items[defID] > 0
}

// AddItem grants quantity of defID.
func (inv *MemoryInventory) AddItem(defID, quantity int) error {
	if quantity <= 0 {
		return oops.Code(CodeInvalidQuantity).
			With("def_id", defID).
			With("quantity", quantity).
			Errorf("quantity must be positive")
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.items[defID] += quantity
	return nil
}

// RemoveItem takes quantity of defID.
func (inv *MemoryInventory) RemoveItem(defID, quantity int) error {
	if quantity <= 0 {
		return oops.Code(CodeInvalidQuantity).
			With("def_id", defID).
			With("quantity", quantity).
			Errorf("quantity must be positive")
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.items[defID] < quantity {
		return oops.Code(CodeInsufficientItems).
			With("def_id", defID).
			With("have", inv.items[defID]).
			With("want", quantity).
			Errorf("not enough of item %d", defID)
	}
	inv.items[defID] -= quantity
	if inv.items[defID] == 0 {
		delete(inv.items, defID)
	}
	return nil
}

// Items returns a snapshot sorted by def id for stable output.
func (inv *MemoryInventory) Items() []Item {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]Item, 0, len(inv.items))
	for defID, qty := range inv.items {
		out = append(out, Item{DefID: defID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DefID < out[j].DefID })
	return out
}

// MemoryWallet is an in-memory Wallet.
type MemoryWallet struct {
	mu      sync.Mutex
	balance int
}

// NewMemoryWallet creates a wallet with an opening balance.
func NewMemoryWallet(balance int) *MemoryWallet {
	return &MemoryWallet{balance: balance}
}

// Balance returns the current balance.
func (w *MemoryWallet) Balance() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Deduct removes amount from the balance.
func (w *MemoryWallet) Deduct(amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount < 0 || w.balance < amount {
		return oops.Code(CodeInsufficientFunds).
			With("balance", w.balance).
			With("amount", amount).
			Errorf("insufficient funds")
	}
	w.balance -= amount
	return nil
}

// Deposit adds amount to the balance. Negative deposits are ignored.
func (w *MemoryWallet) Deposit(amount int) {
	if amount <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance += amount
}
