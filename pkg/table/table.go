// Package table converts the engine's flat configuration tables.
//
// A table file starts with an int32 column count followed by one int32 type
// tag per column. Records follow until the end of input; each record holds one
// value per column, encoded according to the column type.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ssargent/nexas/pkg/codec"
)

// ValueType is the type tag of a table column
type ValueType int32

// Column types as stored in the file
const (
	String ValueType = iota + 1
	Int32
	Int8
	Int64
	Int16
)

var valueTypeNames = map[ValueType]string{
	String: "String",
	Int32:  "Int32",
	Int8:   "Int8",
	Int64:  "Int64",
	Int16:  "Int16",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return "ValueType(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the known column types
func (t ValueType) Valid() bool {
	_, ok := valueTypeNames[t]
	return ok
}

// ParseValueType resolves a column type name such as "Int32". Matching is
// case-insensitive.
func ParseValueType(name string) (ValueType, error) {
	for t, n := range valueTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown column type %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (t ValueType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown column type %d", int32(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *ValueType) UnmarshalText(text []byte) error {
	v, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// bounds returns the inclusive integer range of an integer column type
func (t ValueType) bounds() (lo, hi int64) {
	switch t {
	case Int8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

// Value is one cell. Text is used by String columns, Int by every other type.
type Value struct {
	Type ValueType
	Text string
	Int  int64
}

// StringValue builds a String cell
func StringValue(s string) Value {
	return Value{Type: String, Text: s}
}

// IntValue builds an integer cell of type t
func IntValue(t ValueType, v int64) Value {
	return Value{Type: t, Int: v}
}

func (v Value) String() string {
	if v.Type == String {
		return v.Text
	}
	return strconv.FormatInt(v.Int, 10)
}

// Table is a decoded configuration table
type Table struct {
	Types   []ValueType
	Records [][]Value
}

// Validate checks that t can be encoded: every column type is known, every
// record has one value per column of the matching type, integers fit their
// column and strings contain no NUL.
func (t *Table) Validate() error {
	if t == nil {
		return codec.InvalidArgument("table", "table is nil")
	}
	for i, typ := range t.Types {
		if !typ.Valid() {
			return codec.InvalidArgument(fmt.Sprintf("types[%d]", i), "unknown column type %d", int32(typ))
		}
	}
	for i, rec := range t.Records {
		if len(rec) != len(t.Types) {
			return codec.InvalidArgument(fmt.Sprintf("records[%d]", i),
				"record has %d values, table has %d columns", len(rec), len(t.Types))
		}
		for j, v := range rec {
			if err := t.Types[j].check(v); err != nil {
				return codec.WrapField(err, fmt.Sprintf("records[%d][%d]", i, j))
			}
		}
	}
	return nil
}

func (t ValueType) check(v Value) error {
	if v.Type != t {
		return codec.InvalidArgument("", "value of type %s in %s column", v.Type, t)
	}
	if t == String {
		if i := strings.IndexByte(v.Text, 0); i >= 0 {
			return codec.InvalidArgument("", "string contains NUL at byte %d", i)
		}
		return nil
	}
	if lo, hi := t.bounds(); v.Int < lo || v.Int > hi {
		return codec.InvalidArgument("", "%d out of range for %s (%d..%d)", v.Int, t, lo, hi)
	}
	return nil
}

// parseCell converts the text form of a cell, as found in CSV, into a Value
func (t ValueType) parseCell(s string) (Value, error) {
	if t == String {
		return StringValue(s), nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Value{}, codec.InvalidArgument("", "%q is not an integer", s)
	}
	v := IntValue(t, n)
	if err := t.check(v); err != nil {
		return Value{}, err
	}
	return v, nil
}
