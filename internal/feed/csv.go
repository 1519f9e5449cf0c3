// Package feed fetches and parses inventory exports into typed records.
// It is the only boundary the tracker awaits on; everything downstream of it
// is synchronous.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tracklab/stocktrack/internal/inventory"
)

// Column names are matched case-insensitively with spaces and underscores
// stripped, so "On Order", "on_order", and "OnOrder" all resolve. "catergory"
// is the misspelled header some older exports still carry.
var columnAliases = map[string]string{
	"sku":              "sku",
	"productname":      "name",
	"name":             "name",
	"category":         "category",
	"catergory":        "category",
	"onhand":           "onHand",
	"onorder":          "onOrder",
	"reorderthreshold": "reorderThreshold",
	"reorderat":        "reorderThreshold",
}

func canonicalColumn(header string) (string, bool) {
	key := strings.ToLower(header)
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "_", "")
	name, ok := columnAliases[strings.TrimSpace(key)]
	return name, ok
}

// ParseCSV reads an inventory export. The first row is the header; unknown
// columns are ignored. Numeric cells that are blank or unparseable contribute
// 0. A data row without a SKU fails the whole batch: rows that cannot be
// keyed cannot be tracked.
func ParseCSV(r io.Reader) ([]inventory.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: export has no header row", inventory.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int)
	for i, h := range header {
		if name, ok := canonicalColumn(h); ok {
			columns[name] = i
		}
	}
	if _, ok := columns["sku"]; !ok {
		return nil, fmt.Errorf("%w: export has no SKU column", inventory.ErrInvalidInput)
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []inventory.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		sku := cell(row, "sku")
		if sku == "" {
			return nil, fmt.Errorf("%w: row %d has no SKU", inventory.ErrInvalidInput, line)
		}

		records = append(records, inventory.Record{
			SKU:              sku,
			Name:             cell(row, "name"),
			Category:         cell(row, "category"),
			OnHand:           parseCount(cell(row, "onHand")),
			OnOrder:          parseCount(cell(row, "onOrder")),
			ReorderThreshold: parseCount(cell(row, "reorderThreshold")),
		})
	}

	inventory.Normalize(records)
	return records, nil
}

// parseCount maps blank or malformed numeric cells to 0 rather than failing
// the batch; a missing quantity is an unknown, not a broken export.
func parseCount(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
