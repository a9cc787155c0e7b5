package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV decodes a CSV export of the sheet. Spreadsheet exports often carry
// a byte order mark and ragged rows; both are accepted.
func ParseCSV(data []byte) (Decoded, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return Decoded{}, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return Decode(rows)
}

// EncodeCSV renders rows as CSV bytes, one line per row.
func EncodeCSV(rows ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
