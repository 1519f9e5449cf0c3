package inventory

import (
	"fmt"
	"time"
)

// CategoryStats is the per-category rollup inside a snapshot.
type CategoryStats struct {
	OnHand        int `json:"onHand"`
	OnOrder       int `json:"onOrder"`
	ItemCount     int `json:"itemCount"`
	LowStockCount int `json:"lowStockCount"`
}

// EntityStats is the per-product rollup inside a snapshot.
type EntityStats struct {
	OnHand           int    `json:"onHand"`
	OnOrder          int    `json:"onOrder"`
	ReorderThreshold int    `json:"reorderThreshold"`
	Category         string `json:"category"`
	Name             string `json:"name"`
}

// Snapshot is one immutable, timestamped rollup of the full inventory.
// Snapshots are built once and never mutated after being appended to history.
type Snapshot struct {
	TakenAt       time.Time                `json:"takenAt"`
	TotalOnHand   int                      `json:"totalOnHand"`
	TotalOnOrder  int                      `json:"totalOnOrder"`
	ProductCount  int                      `json:"productCount"`
	LowStockCount int                      `json:"lowStockCount"`
	ByCategory    map[string]CategoryStats `json:"byCategory"`
	ByEntity      map[string]EntityStats   `json:"byEntity"`
}

// BuildSnapshot rolls a record batch up into a Snapshot in a single pass.
// An empty batch is an input fault: a feed that fetched zero rows is a broken
// fetch, not an observation of an empty warehouse, so no snapshot is built.
func BuildSnapshot(records []Record, now time.Time) (Snapshot, error) {
	if len(records) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty record batch", ErrInvalidInput)
	}
	if err := Validate(records); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TakenAt:      now,
		ProductCount: len(records),
		ByCategory:   make(map[string]CategoryStats),
		ByEntity:     make(map[string]EntityStats, len(records)),
	}

	for _, r := range records {
		category := r.Category
		if category == "" {
			category = DefaultCategory
		}

		snap.TotalOnHand += r.OnHand
		snap.TotalOnOrder += r.OnOrder

		cat := snap.ByCategory[category]
		cat.OnHand += r.OnHand
		cat.OnOrder += r.OnOrder
		cat.ItemCount++
		if r.LowStock() {
			cat.LowStockCount++
			snap.LowStockCount++
		}
		snap.ByCategory[category] = cat

		snap.ByEntity[r.SKU] = EntityStats{
			OnHand:           r.OnHand,
			OnOrder:          r.OnOrder,
			ReorderThreshold: r.ReorderThreshold,
			Category:         category,
			Name:             r.Name,
		}
	}

	return snap, nil
}
