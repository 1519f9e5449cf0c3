package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Fingerprint digests the change-relevant projection of a record batch:
// the (SKU, onHand, onOrder) triples. Records are sorted by SKU before
// digesting so a feed returning the same rows in a different order produces
// the same fingerprint. Names, categories, and thresholds do not participate;
// only stock movement counts as a change.
func Fingerprint(records []Record) string {
	triples := make([]string, len(records))
	for i, r := range records {
		triples[i] = fmt.Sprintf("%s\x1f%d\x1f%d", r.SKU, r.OnHand, r.OnOrder)
	}
	sort.Strings(triples)

	h := sha256.New()
	for _, t := range triples {
		h.Write([]byte(t))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Changed reports whether a batch with fingerprint current should be recorded
// given the previously stored fingerprint. The first ever observation
// (previous == "") is always a change.
func Changed(current, previous string) bool {
	return previous == "" || current != previous
}
