// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInventory_AddAndHas(t *testing.T) {
	inv := NewMemoryInventory()
	assert.False(t, inv.HasItem(555))

	require.NoError(t, inv.AddItem(555, 1))
	assert.True(t, inv.HasItem(555))
}

func TestMemoryInventory_AddRejectsNonPositive(t *testing.T) {
	inv := NewMemoryInventory()
	assert.Error(t, inv.AddItem(555, 0))
	assert.Error(t, inv.AddItem(555, -2))
	assert.False(t, inv.HasItem(555))
}

func TestMemoryInventory_Remove(t *testing.T) {
	inv := NewMemoryInventory()
	require.NoError(t, inv.AddItem(7, 3))

	require.NoError(t, inv.RemoveItem(7, 2))
	assert.True(t, inv.HasItem(7))

	require.NoError(t, inv.RemoveItem(7, 1))
	assert.False(t, inv.HasItem(7))
}

func TestMemoryInventory_RemoveMoreThanOwned(t *testing.T) {
	inv := NewMemoryInventory()
	require.NoError(t, inv.AddItem(7, 1))
	assert.Error(t, inv.RemoveItem(7, 2))
	assert.True(t, inv.HasItem(7))
}

func TestMemoryInventory_ItemsSnapshot(t *testing.T) {
	inv := NewMemoryInventory()
	require.NoError(t, inv.AddItem(20, 1))
	require.NoError(t, inv.AddItem(5, 2))

	items := inv.Items()
	require.Len(t, items, 2)
	assert.Equal(t, Item{DefID: 5, Quantity: 2}, items[0])
	assert.Equal(t, Item{DefID: 20, Quantity: 1}, items[1])
}

func TestMemoryWallet_DeductAndDeposit(t *testing.T) {
	w := NewMemoryWallet(100)

	require.NoError(t, w.Deduct(40))
	assert.Equal(t, 60, w.Balance())

	w.Deposit(10)
	assert.Equal(t, 70, w.Balance())
}

func TestMemoryWallet_DeductInsufficient(t *testing.T) {
	w := NewMemoryWallet(10)
	assert.Error(t, w.Deduct(11))
	assert.Error(t, w.Deduct(-1))
	assert.Equal(t, 10, w.Balance())
}

func TestMemoryWallet_DepositIgnoresNonPositive(t *testing.T) {
	w := NewMemoryWallet(10)
	w.Deposit(0)
	w.Deposit(-5)
	assert.Equal(t, 10, w.Balance())
}
