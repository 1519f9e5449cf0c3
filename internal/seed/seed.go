// Package seed generates synthetic inventory history for demos and local
// development. It writes through the same store API as the poller, so seeded
// data obeys the usual dedup, ordering, and retention rules.
package seed

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracklab/stocktrack/internal/history"
	"github.com/tracklab/stocktrack/internal/inventory"
)

// product is a synthetic catalog entry with a drift profile.
type product struct {
	sku       string
	name      string
	category  string
	start     int
	threshold int
	// drift is applied per day; a restock bumps the level back up whenever
	// it would cross zero.
	drift int
}

func catalog() []product {
	return []product{
		{sku: "SKU-" + uuid.NewString()[:8], name: "Widget Pro", category: "Hardware", start: 120, threshold: 25, drift: -7},
		{sku: "SKU-" + uuid.NewString()[:8], name: "Widget Mini", category: "Hardware", start: 60, threshold: 15, drift: -3},
		{sku: "SKU-" + uuid.NewString()[:8], name: "HDMI Cable 2m", category: "Accessories", start: 200, threshold: 40, drift: -11},
		{sku: "SKU-" + uuid.NewString()[:8], name: "USB-C Hub", category: "Accessories", start: 45, threshold: 10, drift: -2},
		{sku: "SKU-" + uuid.NewString()[:8], name: "Label Roll", category: "", start: 300, threshold: 50, drift: -18},
	}
}

// Options controls a seeding run.
type Options struct {
	Days  int
	Force bool
	Now   time.Time // zero means time.Now().UTC()
}

// Run writes Days daily snapshots of synthetic history into store, oldest
// first. It refuses to touch a store that already holds snapshots unless
// Force is set. Returns the number of snapshots appended.
func Run(store *history.Store, opts Options) (int, error) {
	if opts.Days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", opts.Days)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	n, err := store.Len()
	if err != nil {
		return 0, fmt.Errorf("checking store: %w", err)
	}
	if n > 0 && !opts.Force {
		return 0, fmt.Errorf("store already holds %d snapshots; re-run with --force to seed anyway", n)
	}

	products := catalog()
	appended := 0

	for day := opts.Days - 1; day >= 0; day-- {
		at := opts.Now.AddDate(0, 0, -day)
		age := opts.Days - 1 - day

		records := make([]inventory.Record, 0, len(products))
		for _, p := range products {
			level := p.start + p.drift*age
			// Restock cycle: fold negative levels back into a plausible range.
			for level < 0 {
				level += p.start
			}
			var onOrder int
			if level <= p.threshold {
				onOrder = p.start / 2
			}
			records = append(records, inventory.Record{
				SKU:              p.sku,
				Name:             p.name,
				Category:         p.category,
				OnHand:           level,
				OnOrder:          onOrder,
				ReorderThreshold: p.threshold,
			})
		}

		snap, err := inventory.BuildSnapshot(records, at)
		if err != nil {
			return appended, fmt.Errorf("building day %d snapshot: %w", age, err)
		}
		accepted, err := store.Append(snap, inventory.Fingerprint(records))
		if err != nil {
			return appended, fmt.Errorf("appending day %d snapshot: %w", age, err)
		}
		if !accepted {
			continue
		}
		appended++

		ev := history.UpdateEvent{
			ID:           uuid.New().String(),
			ObservedAt:   at,
			ProductCount: snap.ProductCount,
			TotalStock:   snap.TotalOnHand,
		}
		if err := store.RecordEvent(ev); err != nil {
			return appended, fmt.Errorf("recording day %d event: %w", age, err)
		}
	}

	return appended, nil
}
