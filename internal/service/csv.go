package service

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// writeQuotedCSV writes a BOM followed by rows, every field double-quoted with
// embedded quotes doubled, lines ended by "\n".
func writeQuotedCSV(w io.Writer, rows [][]string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(field, `"`, `""`))
			bw.WriteByte('"')
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// readCSV parses comma separated text, tolerating a BOM, ragged rows and
// stray quotes. Blank lines are dropped.
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if !isEmptyRow(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
