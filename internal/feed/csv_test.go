package feed

import (
	"errors"
	"strings"
	"testing"

	"github.com/tracklab/stocktrack/internal/inventory"
)

const sampleExport = `SKU,ProductName,Category,OnHand,On Order,ReorderThreshold
WID-001,Widget,Hardware,40,10,15
WID-002,Gadget,Hardware,5,20,10
CBL-001,Cable,Accessories,200,,50
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	want := inventory.Record{SKU: "WID-001", Name: "Widget", Category: "Hardware", OnHand: 40, OnOrder: 10, ReorderThreshold: 15}
	if records[0] != want {
		t.Errorf("records[0] = %+v, want %+v", records[0], want)
	}
	// Blank "On Order" cell contributes 0.
	if records[2].OnOrder != 0 {
		t.Errorf("blank OnOrder = %d, want 0", records[2].OnOrder)
	}
}

func TestParseCSVLegacyCategoryHeader(t *testing.T) {
	// Older exports carry the misspelled "Catergory" header.
	export := "SKU,ProductName,Catergory,OnHand\nWID-001,Widget,Hardware,40\n"
	records, err := ParseCSV(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if records[0].Category != "Hardware" {
		t.Errorf("Category = %q via legacy header", records[0].Category)
	}
}

func TestParseCSVHeaderAliases(t *testing.T) {
	export := "sku,name,category,on_hand,on order,reorder_at\nA,Thing,Tools,7,2,3\n"
	records, err := ParseCSV(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	want := inventory.Record{SKU: "A", Name: "Thing", Category: "Tools", OnHand: 7, OnOrder: 2, ReorderThreshold: 3}
	if records[0] != want {
		t.Errorf("records[0] = %+v, want %+v", records[0], want)
	}
}

func TestParseCSVBlankCategoryDefaults(t *testing.T) {
	export := "SKU,Category,OnHand\nA,,12\n"
	records, err := ParseCSV(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if records[0].Category != inventory.DefaultCategory {
		t.Errorf("Category = %q, want %q", records[0].Category, inventory.DefaultCategory)
	}
}

func TestParseCSVMalformedNumeric(t *testing.T) {
	export := "SKU,OnHand,OnOrder\nA,not-a-number,3\n"
	records, err := ParseCSV(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if records[0].OnHand != 0 || records[0].OnOrder != 3 {
		t.Errorf("records[0] = %+v", records[0])
	}
}

func TestParseCSVMissingSKUColumn(t *testing.T) {
	export := "ProductName,OnHand\nWidget,40\n"
	_, err := ParseCSV(strings.NewReader(export))
	if !errors.Is(err, inventory.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParseCSVRowWithoutSKU(t *testing.T) {
	export := "SKU,OnHand\nA,1\n,2\n"
	_, err := ParseCSV(strings.NewReader(export))
	if !errors.Is(err, inventory.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	if !errors.Is(err, inventory.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	records, err := ParseCSV(strings.NewReader("SKU,OnHand\n"))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestParseCSVIgnoresUnknownColumns(t *testing.T) {
	export := "SKU,Warehouse,OnHand\nA,East,9\n"
	records, err := ParseCSV(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if records[0].OnHand != 9 {
		t.Errorf("OnHand = %d, want 9", records[0].OnHand)
	}
}
