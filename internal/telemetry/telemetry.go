// Package telemetry exposes Prometheus metrics for the poll/append pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes reported by the poller.
const (
	OutcomeAccepted   = "accepted"
	OutcomeUnchanged  = "unchanged"
	OutcomeFetchError = "fetch_error"
	OutcomeInputError = "input_error"
	OutcomeStoreError = "store_error"
)

var (
	// PollCycles counts completed poll cycles by outcome.
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stocktrack",
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Poll cycles by outcome.",
	}, []string{"outcome"})

	// SnapshotsRetained tracks the current length of the snapshot log.
	SnapshotsRetained = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stocktrack",
		Subsystem: "history",
		Name:      "snapshots_retained",
		Help:      "Number of snapshots currently retained in history.",
	})

	// LastAcceptedTimestamp is the takenAt of the newest accepted snapshot.
	LastAcceptedTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stocktrack",
		Subsystem: "history",
		Name:      "last_accepted_timestamp_seconds",
		Help:      "Unix time of the most recently accepted snapshot.",
	})
)
