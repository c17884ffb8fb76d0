// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package interaction

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/player/playertest"
	"github.com/wildmere/wildmere/internal/world"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterMetrics(reg)

	assert.Panics(t, func() { RegisterMetrics(reg) }, "double registration must panic")
}

// Interaction ids arrive from the client, so the resolution metrics must not
// grow a series per id.
func TestResolutionMetricsBoundedByModule(t *testing.T) {
	Resolutions.Reset()
	ResolutionDuration.Reset()

	m := claimAll("grabby")
	m.handle = func(*player.Player, string, *world.NetworkedObject, *world.StateNode, *world.StateNode, Context) bool {
		return true
	}
	p, _ := playertest.NewPlayer("rook", "meadow")
	eng, _ := newTestEngine(t, locatorWith(testObject("obj-1")), m)

	for i := 0; i < 50; i++ {
		outcome, err := eng.ResolveInteraction(context.Background(), p, fmt.Sprintf("req-%d", i), "obj-1", 0)
		require.NoError(t, err)
		require.Equal(t, OutcomeApplied, outcome)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(Resolutions))
	assert.Equal(t, 1, testutil.CollectAndCount(ResolutionDuration))
	assert.Equal(t, float64(50), testutil.ToFloat64(Resolutions.WithLabelValues("grabby", "applied")))
}
