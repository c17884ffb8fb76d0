// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package player

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmere/wildmere/internal/core"
)

type stubConn struct {
	id ulid.ULID
}

func (c *stubConn) ID() ulid.ULID        { return c.id }
func (c *stubConn) SendPacket(any) error { return nil }

func TestPlayer_LevelAndConnectionAccessors(t *testing.T) {
	p := &Player{ID: core.NewULID(), AccountID: "acct-1", Name: "Rook"}

	assert.Empty(t, p.Level())
	assert.Nil(t, p.Connection())

	conn := &stubConn{id: core.NewULID()}
	p.SetLevel("meadow")
	p.BindConnection(conn)

	assert.Equal(t, "meadow", p.Level())
	assert.Same(t, conn, p.Connection())
}

// A second login for the same account rebinds the connection and rejoins
// while the first connection may still be dispatching interactions, so the
// level and connection fields see concurrent readers and writers.
func TestPlayer_ConcurrentRebindAndRead(t *testing.T) {
	p := &Player{ID: core.NewULID(), AccountID: "acct-1", Name: "Rook"}
	p.SetLevel("meadow")
	p.BindConnection(&stubConn{id: core.NewULID()})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				p.SetLevel(fmt.Sprintf("level-%d", i))
				p.BindConnection(&stubConn{id: core.NewULID()})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = p.Level()
				if c := p.Connection(); c != nil {
					_ = c.ID()
				}
			}
		}()
	}
	wg.Wait()

	assert.NotEmpty(t, p.Level())
	assert.NotNil(t, p.Connection())
}

func TestMemoryResolver_RebindsConnectionOnReconnect(t *testing.T) {
	r := NewMemoryResolver(1000, core.NewULID)

	first := &stubConn{id: core.NewULID()}
	p, err := r.ResolvePlayer(context.Background(), "acct-1", "Rook", first)
	require.NoError(t, err)
	assert.Same(t, first, p.Connection())

	second := &stubConn{id: core.NewULID()}
	again, err := r.ResolvePlayer(context.Background(), "acct-1", "Rook", second)
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Same(t, second, p.Connection())
}
