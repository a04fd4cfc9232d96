package inventory

import (
	"errors"
	"strings"
	"testing"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

func TestParseSalesCSV(t *testing.T) {
	sheet := strings.Join([]string{
		"Activation Code,Product,Product Sub Category",
		"SN-001,SmartTV,Netflix",
		"SN-002,SmartTV,Prime",
	}, "\n")

	records, err := ParseSalesCSV(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ActivationCode != "SN-001" || records[0].ProductSubCategory != "Netflix" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].Status != models.SalesAvailable {
		t.Fatalf("imported records must start available, got %s", records[0].Status)
	}
}

func TestParseSalesCSVHeaderAliases(t *testing.T) {
	// Operators export from different tools; header spelling varies.
	for _, header := range []string{"activation_code", "Code", "Serial Number", "ACTIVATION-CODE"} {
		sheet := header + "\nSN-001\n"
		records, err := ParseSalesCSV(strings.NewReader(sheet))
		if err != nil {
			t.Fatalf("header %q rejected: %v", header, err)
		}
		if records[0].ActivationCode != "SN-001" {
			t.Fatalf("header %q: unexpected record %+v", header, records[0])
		}
	}
}

func TestParseSalesCSVMissingCodeColumn(t *testing.T) {
	sheet := "Product,Category\nSmartTV,Netflix\n"
	if _, err := ParseSalesCSV(strings.NewReader(sheet)); err == nil {
		t.Fatal("expected an error for a sheet without a code column")
	}
}

func TestParseSalesCSVRowErrors(t *testing.T) {
	var rowErr *RowError

	// Empty code cites the row.
	sheet := "code\nSN-001\n\"\"\n"
	_, err := ParseSalesCSV(strings.NewReader(sheet))
	if !errors.As(err, &rowErr) || rowErr.Row != 2 {
		t.Fatalf("expected a row error at row 2, got %v", err)
	}

	// Duplicate cites both rows.
	sheet = "code\nSN-001\nSN-001\n"
	_, err = ParseSalesCSV(strings.NewReader(sheet))
	if !errors.As(err, &rowErr) || rowErr.Row != 2 {
		t.Fatalf("expected a duplicate error at row 2, got %v", err)
	}
	if !strings.Contains(rowErr.Msg, "row 1") {
		t.Fatalf("duplicate error must cite the first occurrence, got %q", rowErr.Msg)
	}
}

func TestParseSalesCSVEmptySheet(t *testing.T) {
	if _, err := ParseSalesCSV(strings.NewReader("code\n")); err == nil {
		t.Fatal("expected an error for a sheet with no data rows")
	}
}

func TestParseKeysCSV(t *testing.T) {
	sheet := strings.Join([]string{
		"OTT Code,Platform",
		"KEY-001,Netflix",
		"KEY-002,Prime",
	}, "\n")

	keys, err := ParseKeysCSV(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[1].ActivationCode != "KEY-002" || keys[1].Product != "Prime" {
		t.Fatalf("unexpected second key: %+v", keys[1])
	}
	if keys[0].Status != models.KeyAvailable {
		t.Fatalf("imported keys must start available, got %s", keys[0].Status)
	}
}

func TestParseKeysCSVDuplicate(t *testing.T) {
	var rowErr *RowError
	sheet := "key\nKEY-001\nKEY-001\n"
	_, err := ParseKeysCSV(strings.NewReader(sheet))
	if !errors.As(err, &rowErr) || rowErr.Row != 2 {
		t.Fatalf("expected a duplicate error at row 2, got %v", err)
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	// Trailing columns may be missing entirely; only the code is required.
	sheet := "code,product,category\nSN-001\nSN-002,SmartTV\n"
	records, err := ParseSalesCSV(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("ragged rows must parse: %v", err)
	}
	if records[0].Product != "" || records[1].Product != "SmartTV" {
		t.Fatalf("unexpected products: %+v", records)
	}
}
