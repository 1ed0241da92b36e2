// Package tabular decodes raw table extracts into records. Two wire formats
// exist across jurisdictions: plain CSV exports (sometimes Windows-1252
// encoded) and the NHTSA CrashAPI JSON envelope.
package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

// DecodeCSV parses a CSV extract into raw records keyed by header name.
// Short rows leave their trailing columns absent; extra cells are dropped.
// Set windows1252 for extracts that are not UTF-8 encoded.
func DecodeCSV(data []byte, windows1252 bool) ([]domain.RawRecord, error) {
	var r io.Reader = bytes.NewReader(data)
	if windows1252 {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	copy(columns, header)

	var records []domain.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec := make(domain.RawRecord, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// crashAPIEnvelope is the CrashAPI response shape: result sets nested one
// level deep, every cell loosely typed.
type crashAPIEnvelope struct {
	Results [][]map[string]any `json:"Results"`
}

// DecodeCrashAPI parses a CrashAPI JSON extract into raw records. All result
// sets are flattened; cell values are rendered back to text so the records
// enter normalization exactly like CSV rows do.
func DecodeCrashAPI(data []byte) ([]domain.RawRecord, error) {
	var envelope crashAPIEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse crashapi response: %w", err)
	}

	var records []domain.RawRecord
	for _, set := range envelope.Results {
		for _, row := range set {
			rec := make(domain.RawRecord, len(row))
			for col, v := range row {
				rec[col] = cellText(v)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
