// Package inventory defines the typed inventory records fetched from a feed
// and the pure rollup/fingerprint operations computed over them.
package inventory

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a record batch is structurally unusable.
var ErrInvalidInput = errors.New("invalid inventory input")

// DefaultCategory is the label records without a category are grouped under.
const DefaultCategory = "Uncategorized"

// Record is one product row from an inventory feed. Numeric fields absent in
// the feed are carried as 0; a blank category is carried as DefaultCategory.
type Record struct {
	SKU              string
	Name             string
	Category         string
	OnHand           int
	OnOrder          int
	ReorderThreshold int
}

// LowStock reports whether the record is at or below its reorder threshold.
func (r Record) LowStock() bool {
	return r.OnHand <= r.ReorderThreshold
}

// Normalize applies the input-boundary defaults in place: a missing category
// becomes DefaultCategory. It does not touch numeric fields; those default to
// zero at the parse boundary.
func Normalize(records []Record) {
	for i := range records {
		if records[i].Category == "" {
			records[i].Category = DefaultCategory
		}
	}
}

// Validate checks that every record carries a SKU. A batch with an
// unidentifiable row cannot be summarized or fingerprinted.
func Validate(records []Record) error {
	for i, r := range records {
		if r.SKU == "" {
			return fmt.Errorf("%w: record %d has no SKU", ErrInvalidInput, i)
		}
	}
	return nil
}
