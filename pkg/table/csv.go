package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/nexas/pkg/codec"
)

// WriteCSV writes t as CSV: a header row of column type names, then one row
// per record.
func WriteCSV(w io.Writer, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(t.Types))
	for i, typ := range t.Types {
		header[i] = typ.String()
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(t.Types))
	for _, rec := range t.Records {
		for j, v := range rec {
			row[j] = v.String()
		}
		if len(row) == 1 && row[0] == "" {
			// A lone empty field would be a blank line, which readers skip.
			cw.Flush()
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return fmt.Errorf("failed to write csv record: %w", err)
			}
			continue
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) || (err == nil && len(header) == 0) {
		return nil, codec.InvalidArgument("", "missing header row")
	}
	if err != nil {
		return nil, codec.InvalidArgument("", "parse csv: %v", err)
	}

	t := &Table{Types: make([]ValueType, len(header)), Records: make([][]Value, 0)}
	for i, name := range header {
		typ, err := ParseValueType(name)
		if err != nil {
			return nil, codec.InvalidArgument(fmt.Sprintf("types[%d]", i), "%v", err)
		}
		t.Types[i] = typ
	}

	for i := 0; ; i++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, codec.InvalidArgument(fmt.Sprintf("records[%d]", i), "parse csv: %v", err)
		}
		rec := make([]Value, len(row))
		for j, cell := range row {
			v, err := t.Types[j].parseCell(cell)
			if err != nil {
				return nil, codec.WrapField(err, fmt.Sprintf("records[%d][%d]", i, j))
			}
			rec[j] = v
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}
