package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadRecords reads a CSV payload and extracts the classification and match fields of every row.
// Columns are located by header name, ignoring case, surrounding whitespace and a UTF-8 BOM.
// Rows may carry extra trailing fields. A malformed row, or one too short to hold
// both columns, fails the whole read; partial results are never returned.
func ReadRecords(r io.Reader, cols Columns) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: "records", Err: errors.New("empty payload")}
		}
		return nil, &ParseError{Source: "records", Err: err}
	}

	ci := columnIndex(header, cols.Classification)
	if ci < 0 {
		return nil, &ParseError{Source: "records", Err: fmt.Errorf("column %q not found in header", cols.Classification)}
	}
	mi := columnIndex(header, cols.Match)
	if mi < 0 {
		return nil, &ParseError{Source: "records", Err: fmt.Errorf("column %q not found in header", cols.Match)}
	}

	need := max(ci, mi) + 1

	var records []RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Source: "records", Err: err}
		}
		if len(row) < need {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{Source: "records", Err: fmt.Errorf("record on line %d: %d fields, need %d", line, len(row), need)}
		}
		records = append(records, RawRecord{
			Classification: row[ci],
			Match:          row[mi],
		})
	}
	return records, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
