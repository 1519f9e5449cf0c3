// Package poller drives the periodic fetch → build → detect → append cycle.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tracklab/stocktrack/internal/feed"
	"github.com/tracklab/stocktrack/internal/history"
	"github.com/tracklab/stocktrack/internal/inventory"
	"github.com/tracklab/stocktrack/internal/telemetry"
)

// Appender is the slice of the history store the poller writes through.
// The accept decision lives inside Append, behind the store's lock, so
// overlapping cycles cannot double-append or lose a change.
type Appender interface {
	Append(snap inventory.Snapshot, fingerprint string) (bool, error)
	RecordEvent(ev history.UpdateEvent) error
	Len() (int, error)
}

// Poller runs poll cycles on a timer and on demand via Kick.
type Poller struct {
	source   feed.Source
	store    Appender
	interval time.Duration
	kick     chan struct{}
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Poller. If interval is <= 0, it defaults to 5 minutes.
func New(source feed.Source, store Appender, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		source:   source,
		store:    store,
		interval: interval,
		kick:     make(chan struct{}, 1),
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// Kick requests an immediate cycle. It never blocks; a kick while one is
// already pending is coalesced.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run executes one cycle immediately, then on every interval tick or kick,
// until ctx is canceled. Cycle failures are logged and counted, never fatal:
// the next tick gets a fresh chance.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		case <-p.kick:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	accepted, err := p.RunOnce(ctx)
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		p.logger.Error("poll cycle failed", "error", err)
	case accepted:
		p.logger.Info("inventory change recorded")
	default:
		p.logger.Debug("inventory unchanged")
	}
}

// RunOnce performs a single fetch-build-detect-append cycle. A cycle that
// fails before Append leaves the history store untouched.
func (p *Poller) RunOnce(ctx context.Context) (bool, error) {
	records, err := p.source.Fetch(ctx)
	if err != nil {
		telemetry.PollCycles.WithLabelValues(telemetry.OutcomeFetchError).Inc()
		return false, fmt.Errorf("fetching inventory: %w", err)
	}
	if err := ctx.Err(); err != nil {
		// Canceled mid-fetch: append nothing.
		return false, err
	}

	snap, err := inventory.BuildSnapshot(records, p.now().UTC())
	if err != nil {
		telemetry.PollCycles.WithLabelValues(telemetry.OutcomeInputError).Inc()
		return false, fmt.Errorf("building snapshot: %w", err)
	}

	accepted, err := p.store.Append(snap, inventory.Fingerprint(records))
	if err != nil {
		telemetry.PollCycles.WithLabelValues(telemetry.OutcomeStoreError).Inc()
		return false, fmt.Errorf("appending snapshot: %w", err)
	}
	if !accepted {
		telemetry.PollCycles.WithLabelValues(telemetry.OutcomeUnchanged).Inc()
		return false, nil
	}

	ev := history.UpdateEvent{
		ID:           uuid.New().String(),
		ObservedAt:   snap.TakenAt,
		ProductCount: snap.ProductCount,
		TotalStock:   snap.TotalOnHand,
	}
	if err := p.store.RecordEvent(ev); err != nil {
		// The snapshot is already durable; losing one change-log line is
		// worth logging but not failing the cycle over.
		p.logger.Warn("recording update event failed", "error", err)
	}

	telemetry.PollCycles.WithLabelValues(telemetry.OutcomeAccepted).Inc()
	telemetry.LastAcceptedTimestamp.Set(float64(snap.TakenAt.Unix()))
	if n, err := p.store.Len(); err == nil {
		telemetry.SnapshotsRetained.Set(float64(n))
	}
	return true, nil
}
