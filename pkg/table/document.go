package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/ssargent/nexas/pkg/codec"
)

type document struct {
	Types   []ValueType         `json:"types"`
	Records [][]json.RawMessage `json:"records"`
}

// inputDocument also reads tables written by the original NeXAS tools, which
// store type tags as numbers and every cell as a {Type, StringValue,
// IntegerValue} object. Key matching is case-insensitive.
type inputDocument struct {
	Types   []columnType        `json:"types"`
	Records [][]json.RawMessage `json:"records"`
}

type columnType ValueType

// UnmarshalJSON accepts a type name or its numeric tag
func (c *columnType) UnmarshalJSON(b []byte) error {
	var tag int32
	if err := json.Unmarshal(b, &tag); err == nil {
		if !ValueType(tag).Valid() {
			return fmt.Errorf("unknown column type %d", tag)
		}
		*c = columnType(tag)
		return nil
	}
	var t ValueType
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*c = columnType(t)
	return nil
}

type objectCell struct {
	Type         columnType
	StringValue  *string
	IntegerValue *json.Number
}

// MarshalDocument renders t as an indented JSON document. String cells become
// JSON strings and integer cells JSON numbers.
func MarshalDocument(t *Table) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	doc := document{
		Types:   t.Types,
		Records: make([][]json.RawMessage, len(t.Records)),
	}
	if doc.Types == nil {
		doc.Types = []ValueType{}
	}
	for i, rec := range t.Records {
		row := make([]json.RawMessage, len(rec))
		for j, v := range rec {
			if v.Type == String {
				if !utf8.ValidString(v.Text) {
					return nil, codec.InvalidArgument(fmt.Sprintf("records[%d][%d]", i, j),
						"string is not valid UTF-8; decode with the matching text encoding")
				}
				b, err := marshalString(v.Text)
				if err != nil {
					return nil, err
				}
				row[j] = b
				continue
			}
			row[j] = json.RawMessage(strconv.FormatInt(v.Int, 10))
		}
		doc.Records[i] = row
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalString(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalDocument builds a Table from a JSON document, checking every cell
// against its column type.
func UnmarshalDocument(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var doc *inputDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, codec.InvalidArgument("", "parse document: %v", err)
	}
	if doc == nil {
		return nil, codec.InvalidArgument("", "document is null")
	}
	if dec.More() {
		return nil, codec.InvalidArgument("", "unexpected content after the document")
	}

	t := &Table{Types: make([]ValueType, len(doc.Types)), Records: make([][]Value, 0, len(doc.Records))}
	for i, c := range doc.Types {
		t.Types[i] = ValueType(c)
	}
	for i, row := range doc.Records {
		field := fmt.Sprintf("records[%d]", i)
		if len(row) != len(t.Types) {
			return nil, codec.InvalidArgument(field, "record has %d values, table has %d columns", len(row), len(t.Types))
		}
		rec := make([]Value, len(row))
		for j, raw := range row {
			v, err := t.Types[j].cellFromJSON(raw)
			if err != nil {
				return nil, codec.WrapField(err, fmt.Sprintf("%s[%d]", field, j))
			}
			rec[j] = v
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func (t ValueType) cellFromJSON(raw json.RawMessage) (Value, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Value{}, codec.InvalidArgument("", "value is null")
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return t.cellFromObject(raw)
	}
	if t == String {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, codec.InvalidArgument("", "expected a string for %s column", t)
		}
		return StringValue(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return Value{}, codec.InvalidArgument("", "expected an integer for %s column", t)
	}
	return t.parseCell(n.String())
}

func (t ValueType) cellFromObject(raw json.RawMessage) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var cell objectCell
	if err := dec.Decode(&cell); err != nil {
		return Value{}, codec.InvalidArgument("", "parse cell: %v", err)
	}
	if ValueType(cell.Type) != t {
		return Value{}, codec.InvalidArgument("", "cell of type %s in %s column", ValueType(cell.Type), t)
	}
	if t == String {
		if cell.StringValue == nil {
			return Value{}, codec.InvalidArgument("", "StringValue is missing")
		}
		return StringValue(*cell.StringValue), nil
	}
	if cell.IntegerValue == nil {
		return Value{}, codec.InvalidArgument("", "IntegerValue is missing")
	}
	return t.parseCell(cell.IntegerValue.String())
}
