package history

import (
	"iter"
	"time"

	"github.com/tracklab/stocktrack/internal/inventory"
)

type viewKind int

const (
	viewTotal viewKind = iota
	viewCategory
	viewEntity
)

// View selects which projection of each snapshot a query produces.
type View struct {
	kind viewKind
	key  string
}

// TotalView projects whole-inventory totals.
func TotalView() View { return View{kind: viewTotal} }

// CategoryView projects one category's rollup. Snapshots predating the
// category's first appearance are absent from the result, not padded.
func CategoryView(name string) View { return View{kind: viewCategory, key: name} }

// EntityView projects one product's values by SKU.
func EntityView(sku string) View { return View{kind: viewEntity, key: sku} }

// Window bounds a query in time.
type Window struct {
	since time.Time
	all   bool
}

// AllTime covers every retained snapshot.
func AllTime() Window { return Window{all: true} }

// LastDays covers snapshots taken within the last n days of now. A window
// wider than retained history simply yields everything retained.
func LastDays(n int, now time.Time) Window {
	return Window{since: now.AddDate(0, 0, -n)}
}

func (w Window) contains(at time.Time) bool {
	return w.all || !at.Before(w.since)
}

// Point is one (timestamp, value-set) tuple produced by a query. Views fill
// the fields that apply: Total and Category both carry LowStock, Category
// carries ItemCount, Entity carries ReorderThreshold.
type Point struct {
	At               time.Time `json:"at"`
	OnHand           int       `json:"onHand"`
	OnOrder          int       `json:"onOrder"`
	LowStock         int       `json:"lowStock,omitempty"`
	ItemCount        int       `json:"itemCount,omitempty"`
	ReorderThreshold int       `json:"reorderThreshold,omitempty"`
}

func (v View) project(snap inventory.Snapshot) (Point, bool) {
	switch v.kind {
	case viewCategory:
		c, ok := snap.ByCategory[v.key]
		if !ok {
			return Point{}, false
		}
		return Point{
			At:        snap.TakenAt,
			OnHand:    c.OnHand,
			OnOrder:   c.OnOrder,
			LowStock:  c.LowStockCount,
			ItemCount: c.ItemCount,
		}, true
	case viewEntity:
		e, ok := snap.ByEntity[v.key]
		if !ok {
			return Point{}, false
		}
		return Point{
			At:               snap.TakenAt,
			OnHand:           e.OnHand,
			OnOrder:          e.OnOrder,
			ReorderThreshold: e.ReorderThreshold,
		}, true
	default:
		return Point{
			At:       snap.TakenAt,
			OnHand:   snap.TotalOnHand,
			OnOrder:  snap.TotalOnOrder,
			LowStock: snap.LowStockCount,
		}, true
	}
}

// Query projects the retained snapshots through view within win, oldest
// first. The returned sequence is lazy and restartable: each range re-reads
// the store, and it never mutates it. Load errors surface as an empty
// sequence; callers that need to distinguish use Snapshots directly.
func (s *Store) Query(view View, win Window) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		snaps, err := s.Snapshots()
		if err != nil {
			s.logger.Error("history query failed to load snapshots", "error", err)
			return
		}
		for _, snap := range snaps {
			if !win.contains(snap.TakenAt) {
				continue
			}
			p, ok := view.project(snap)
			if !ok {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// QueryPoints collects a query into a slice, for callers that need the whole
// series at once (the HTTP and MCP layers).
func (s *Store) QueryPoints(view View, win Window) []Point {
	var points []Point
	for p := range s.Query(view, win) {
		points = append(points, p)
	}
	return points
}

// EntitySummary derives start/end values and their delta for one SKU from
// the first and last points of the filtered series. A SKU absent from the
// earliest snapshots contributes nothing before it first appears, so the
// delta is measured from its true first observation, never from zero.
type EntitySummary struct {
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
	StartValue int       `json:"startValue"`
	EndValue   int       `json:"endValue"`
	Delta      int       `json:"delta"`
	Points     int       `json:"points"`
}

// SummarizeEntity computes the EntitySummary for sku within win. ok is false
// when the SKU never appears inside the window.
func (s *Store) SummarizeEntity(sku string, win Window) (EntitySummary, bool) {
	var (
		sum   EntitySummary
		first = true
	)
	for p := range s.Query(EntityView(sku), win) {
		if first {
			sum.FirstSeen = p.At
			sum.StartValue = p.OnHand
			first = false
		}
		sum.LastSeen = p.At
		sum.EndValue = p.OnHand
		sum.Points++
	}
	if first {
		return EntitySummary{}, false
	}
	sum.SKU = sku
	sum.Delta = sum.EndValue - sum.StartValue

	// Name and category come from the newest snapshot that knows the SKU.
	if snaps, err := s.Snapshots(); err == nil {
		for i := len(snaps) - 1; i >= 0; i-- {
			if e, ok := snaps[i].ByEntity[sku]; ok {
				sum.Name = e.Name
				sum.Category = e.Category
				break
			}
		}
	}
	return sum, true
}
