package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

// RowError cites the offending spreadsheet row (1-based, header excluded).
type RowError struct {
	Row int
	Msg string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Msg)
}

// Header aliases accepted by the importer. Operators export these sheets
// from several tools, so column names are matched loosely: lowercased with
// spaces, underscores and dashes removed.
var (
	salesCodeAliases    = []string{"activationcode", "code", "serialnumber"}
	salesProductAliases = []string{"product", "productname", "item"}
	salesSubCatAliases  = []string{"productsubcategory", "subcategory", "category"}

	keyCodeAliases    = []string{"activationcode", "code", "ottcode", "key"}
	keyProductAliases = []string{"product", "platform", "ottplatform"}
)

func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(h)
}

func findColumn(headers []string, aliases []string) int {
	for i, h := range headers {
		c := canonicalHeader(h)
		for _, a := range aliases {
			if c == a {
				return i
			}
		}
	}
	return -1
}

// ParseSalesCSV reads a sales-ledger sheet. Required column: activation
// code (any alias). Product columns are optional.
func ParseSalesCSV(r io.Reader) ([]models.SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	codeCol := findColumn(headers, salesCodeAliases)
	if codeCol < 0 {
		return nil, fmt.Errorf("no activation code column found (accepted: %s)", strings.Join(salesCodeAliases, ", "))
	}
	productCol := findColumn(headers, salesProductAliases)
	subCatCol := findColumn(headers, salesSubCatAliases)

	var records []models.SalesRecord
	seen := make(map[string]int)
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Row: row + 1, Msg: err.Error()}
		}
		row++

		code := strings.TrimSpace(cell(fields, codeCol))
		if code == "" {
			return nil, &RowError{Row: row, Msg: "empty activation code"}
		}
		if prev, dup := seen[code]; dup {
			return nil, &RowError{Row: row, Msg: fmt.Sprintf("duplicate activation code %q (first seen at row %d)", code, prev)}
		}
		seen[code] = row

		records = append(records, models.SalesRecord{
			ActivationCode:     code,
			Product:            strings.TrimSpace(cell(fields, productCol)),
			ProductSubCategory: strings.TrimSpace(cell(fields, subCatCol)),
			Status:             models.SalesAvailable,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("sheet contains no data rows")
	}
	return records, nil
}

// ParseKeysCSV reads a key-inventory sheet. Required column: activation
// code. A product/platform column is optional.
func ParseKeysCSV(r io.Reader) ([]models.Key, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	codeCol := findColumn(headers, keyCodeAliases)
	if codeCol < 0 {
		return nil, fmt.Errorf("no activation code column found (accepted: %s)", strings.Join(keyCodeAliases, ", "))
	}
	productCol := findColumn(headers, keyProductAliases)

	var keys []models.Key
	seen := make(map[string]int)
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Row: row + 1, Msg: err.Error()}
		}
		row++

		code := strings.TrimSpace(cell(fields, codeCol))
		if code == "" {
			return nil, &RowError{Row: row, Msg: "empty activation code"}
		}
		if prev, dup := seen[code]; dup {
			return nil, &RowError{Row: row, Msg: fmt.Sprintf("duplicate key %q (first seen at row %d)", code, prev)}
		}
		seen[code] = row

		keys = append(keys, models.Key{
			ActivationCode: code,
			Product:        strings.TrimSpace(cell(fields, productCol)),
			Status:         models.KeyAvailable,
		})
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("sheet contains no data rows")
	}
	return keys, nil
}

func cell(fields []string, col int) string {
	if col < 0 || col >= len(fields) {
		return ""
	}
	return fields[col]
}
