package history

import (
	"testing"
	"time"

	"github.com/tracklab/stocktrack/internal/inventory"
)

// seededStore appends three snapshots at days 1, 2, 3 with totals 100, 80, 120.
// SKU-NEW appears only from day 2 (onHand 30) and drops to 10 on day 3.
func seededStore(t *testing.T) *Store {
	t.Helper()
	s := New(newFakeKV())

	snaps := []inventory.Snapshot{
		{
			TakenAt:     day(1),
			TotalOnHand: 100, TotalOnOrder: 5, LowStockCount: 1,
			ByCategory: map[string]inventory.CategoryStats{
				"Hardware": {OnHand: 100, OnOrder: 5, ItemCount: 2, LowStockCount: 1},
			},
			ByEntity: map[string]inventory.EntityStats{
				"SKU-1": {OnHand: 100, Category: "Hardware", Name: "Widget"},
			},
		},
		{
			TakenAt:     day(2),
			TotalOnHand: 80, TotalOnOrder: 10, LowStockCount: 2,
			ByCategory: map[string]inventory.CategoryStats{
				"Hardware":    {OnHand: 50, OnOrder: 10, ItemCount: 2, LowStockCount: 2},
				"Accessories": {OnHand: 30, ItemCount: 1},
			},
			ByEntity: map[string]inventory.EntityStats{
				"SKU-1":   {OnHand: 50, Category: "Hardware", Name: "Widget"},
				"SKU-NEW": {OnHand: 30, ReorderThreshold: 12, Category: "Accessories", Name: "Adapter"},
			},
		},
		{
			TakenAt:     day(3),
			TotalOnHand: 120, TotalOnOrder: 0, LowStockCount: 1,
			ByCategory: map[string]inventory.CategoryStats{
				"Hardware":    {OnHand: 110, ItemCount: 2},
				"Accessories": {OnHand: 10, ItemCount: 1, LowStockCount: 1},
			},
			ByEntity: map[string]inventory.EntityStats{
				"SKU-1":   {OnHand: 110, Category: "Hardware", Name: "Widget"},
				"SKU-NEW": {OnHand: 10, ReorderThreshold: 12, Category: "Accessories", Name: "Adapter"},
			},
		},
	}
	for i, snap := range snaps {
		if _, err := s.Append(snap, []string{"fp1", "fp2", "fp3"}[i]); err != nil {
			t.Fatalf("seeding snapshot %d: %v", i, err)
		}
	}
	return s
}

func TestQueryTotalWindowed(t *testing.T) {
	s := seededStore(t)

	// Queried an hour after the day-3 snapshot: the last 2 days cover days 2
	// and 3 only. Day 1 sits just outside the window; the inclusive boundary
	// case is covered separately below.
	points := s.QueryPoints(TotalView(), LastDays(2, day(3).Add(time.Hour)))

	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if !points[0].At.Equal(day(2)) || points[0].OnHand != 80 {
		t.Errorf("points[0] = %+v, want (day2, 80)", points[0])
	}
	if !points[1].At.Equal(day(3)) || points[1].OnHand != 120 {
		t.Errorf("points[1] = %+v, want (day3, 120)", points[1])
	}
}

func TestQueryTotalAllTime(t *testing.T) {
	s := seededStore(t)

	points := s.QueryPoints(TotalView(), AllTime())
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	if points[0].OnHand != 100 || points[0].LowStock != 1 || points[0].OnOrder != 5 {
		t.Errorf("points[0] = %+v", points[0])
	}
}

func TestQueryWindowWiderThanHistory(t *testing.T) {
	s := seededStore(t)

	points := s.QueryPoints(TotalView(), LastDays(365, day(3)))
	if len(points) != 3 {
		t.Errorf("len(points) = %d, want all 3 retained", len(points))
	}
}

func TestQueryCategorySkipsAbsentSnapshots(t *testing.T) {
	s := seededStore(t)

	// Accessories first appears on day 2; day 1 must be absent, not zero.
	points := s.QueryPoints(CategoryView("Accessories"), AllTime())
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if !points[0].At.Equal(day(2)) || points[0].OnHand != 30 || points[0].ItemCount != 1 {
		t.Errorf("points[0] = %+v", points[0])
	}
}

func TestQueryUnknownKeyEmpty(t *testing.T) {
	s := seededStore(t)

	if points := s.QueryPoints(CategoryView("Ghost"), AllTime()); len(points) != 0 {
		t.Errorf("unknown category yielded %d points", len(points))
	}
	if points := s.QueryPoints(EntityView("SKU-GHOST"), AllTime()); len(points) != 0 {
		t.Errorf("unknown SKU yielded %d points", len(points))
	}
}

func TestQueryEmptyStore(t *testing.T) {
	s := New(newFakeKV())
	if points := s.QueryPoints(TotalView(), AllTime()); len(points) != 0 {
		t.Errorf("empty store yielded %d points", len(points))
	}
}

func TestEntityDeltaIgnoresAbsence(t *testing.T) {
	s := seededStore(t)

	points := s.QueryPoints(EntityView("SKU-NEW"), AllTime())
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if !points[0].At.Equal(day(2)) || points[0].OnHand != 30 {
		t.Errorf("points[0] = %+v, want (day2, 30)", points[0])
	}
	if !points[1].At.Equal(day(3)) || points[1].OnHand != 10 {
		t.Errorf("points[1] = %+v, want (day3, 10)", points[1])
	}

	sum, ok := s.SummarizeEntity("SKU-NEW", AllTime())
	if !ok {
		t.Fatal("SummarizeEntity reported no data")
	}
	// Delta from first observation (30), not from a false zero on day 1.
	if sum.Delta != -20 {
		t.Errorf("Delta = %d, want -20", sum.Delta)
	}
	if sum.StartValue != 30 || sum.EndValue != 10 || sum.Points != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Name != "Adapter" || sum.Category != "Accessories" {
		t.Errorf("summary identity = %q/%q", sum.Name, sum.Category)
	}
}

func TestSummarizeEntityAbsent(t *testing.T) {
	s := seededStore(t)
	if _, ok := s.SummarizeEntity("SKU-GHOST", AllTime()); ok {
		t.Error("SummarizeEntity reported data for unknown SKU")
	}
}

func TestQueryRestartable(t *testing.T) {
	s := seededStore(t)
	seq := s.Query(TotalView(), AllTime())

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if first, second := count(), count(); first != 3 || second != 3 {
		t.Errorf("ranging twice = %d then %d points, want 3 and 3", first, second)
	}
}

func TestQueryEarlyStop(t *testing.T) {
	s := seededStore(t)

	var got []Point
	for p := range s.Query(TotalView(), AllTime()) {
		got = append(got, p)
		break
	}
	if len(got) != 1 || got[0].OnHand != 100 {
		t.Errorf("early stop got %+v", got)
	}
}

func TestQueryDoesNotMutateStore(t *testing.T) {
	s := seededStore(t)

	before, err := s.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	_ = s.QueryPoints(EntityView("SKU-1"), LastDays(1, day(3)))
	after, err := s.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(before) != len(after) {
		t.Error("query changed snapshot count")
	}
}

func TestLastDaysBoundaryInclusive(t *testing.T) {
	s := seededStore(t)

	// takenAt >= now - N days: day(1) is exactly 2 days before day(3).
	points := s.QueryPoints(TotalView(), Window{since: day(3).AddDate(0, 0, -2)})
	if len(points) != 3 {
		t.Errorf("boundary snapshot excluded: got %d points", len(points))
	}
}
