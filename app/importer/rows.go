package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidCSV is returned when the upload cannot be decoded as a CSV export.
var ErrInvalidCSV = errors.New("invalid CSV export")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one export line keyed by column header.
type Row map[string]string

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(r[column])
}

// ReadCSV decodes an export with a header row. Spreadsheet tools often prepend a
// UTF-8 byte order mark; it is dropped.
//
// Only an unreadable header fails the whole file. A data record the decoder
// rejects is reported as a MalformedRowError and left as a nil Row in its place,
// so the rows after it keep their numbers.
func ReadCSV(r io.Reader) ([]Row, []*MalformedRowError, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty file", ErrInvalidCSV)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	var rowErrs []*MalformedRowError
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			rows = append(rows, nil)
			rowErrs = append(rowErrs, &MalformedRowError{Row: len(rows), Reason: pe.Err.Error()})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		row := make(Row, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}
