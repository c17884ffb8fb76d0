// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package interaction

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Resolutions is the counter for interaction resolution passes.
// Use RegisterMetrics to register this with a Prometheus registry.
var Resolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wildmere_interaction_resolutions_total",
		Help: "Total number of interaction resolution passes by outcome",
	},
	// Interaction ids arrive from the client and are unbounded; only the
	// module name and outcome are safe as label values.
	[]string{"module", "outcome"},
)

// ResolutionDuration is the histogram for resolution pass duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var ResolutionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "wildmere_interaction_resolution_seconds",
		Help:    "Interaction resolution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"module"},
)

// RegisterMetrics registers interaction package metrics with the given
// Prometheus registry. Call once at startup; panics on conflict, following
// prometheus convention.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Resolutions)
	reg.MustRegister(ResolutionDuration)
}
