package table

import (
	"fmt"

	"golang.org/x/text/encoding"

	"github.com/ssargent/nexas/pkg/codec"
)

// Option configures a Codec
type Option func(*Codec)

// WithTextEncoding transcodes String cells through enc
func WithTextEncoding(enc encoding.Encoding) Option {
	return func(c *Codec) {
		c.text = enc
	}
}

// Codec reads and writes binary tables. It is safe for concurrent use.
type Codec struct {
	text encoding.Encoding
}

// NewCodec creates a table codec
func NewCodec(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = NewCodec()

// Decode decodes data with the default codec
func Decode(data []byte) (*Table, error) {
	return defaultCodec.Decode(data)
}

// Encode encodes t with the default codec
func Encode(t *Table) ([]byte, error) {
	return defaultCodec.Encode(t)
}

// Decode parses a complete table file
func (c *Codec) Decode(data []byte) (*Table, error) {
	r := codec.NewReader(data, codec.WithTextEncoding(c.text))

	types, err := codec.ReadSequence(r, readValueType)
	if err != nil {
		return nil, codec.WrapField(err, "types")
	}

	t := &Table{Types: types, Records: make([][]Value, 0)}
	if len(types) == 0 {
		if r.Remaining() > 0 {
			return nil, &codec.Error{
				Kind:    codec.KindTrailingData,
				Message: fmt.Sprintf("%d bytes of records in a table with no columns", r.Remaining()),
				Offset:  int64(r.Offset()),
			}
		}
		return t, nil
	}

	for i := 0; r.Remaining() > 0; i++ {
		rec, err := readRecord(r, types)
		if err != nil {
			return nil, codec.WrapField(err, fmt.Sprintf("records[%d]", i))
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func readValueType(r *codec.Reader) (ValueType, error) {
	v, err := r.ReadInt32()
	return ValueType(v), err
}

func readRecord(r *codec.Reader, types []ValueType) ([]Value, error) {
	rec := make([]Value, len(types))
	for j, typ := range types {
		v, err := readValue(r, typ)
		if err != nil {
			return nil, codec.WrapField(err, fmt.Sprintf("[%d]", j))
		}
		rec[j] = v
	}
	return rec, nil
}

func readValue(r *codec.Reader, typ ValueType) (Value, error) {
	switch typ {
	case String:
		s, err := r.ReadCString()
		return StringValue(s), err
	case Int32:
		n, err := r.ReadInt32()
		return IntValue(typ, int64(n)), err
	case Int8:
		n, err := r.ReadUint8()
		return IntValue(typ, int64(n)), err
	case Int64:
		n, err := r.ReadInt64()
		return IntValue(typ, n), err
	case Int16:
		n, err := r.ReadInt16()
		return IntValue(typ, int64(n)), err
	default:
		return Value{}, &codec.Error{
			Kind:    codec.KindInvalidArgument,
			Message: fmt.Sprintf("unknown column type %d", int32(typ)),
			Offset:  int64(r.Offset()),
		}
	}
}

// Encode serializes t after validating it
func (c *Codec) Encode(t *Table) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	w := codec.NewWriter(codec.WithTextEncoding(c.text))
	if err := codec.WriteSequence(w, t.Types, writeValueType); err != nil {
		return nil, codec.WrapField(err, "types")
	}
	for i, rec := range t.Records {
		for j, v := range rec {
			if err := writeValue(w, v); err != nil {
				return nil, codec.WrapField(err, fmt.Sprintf("records[%d][%d]", i, j))
			}
		}
	}
	return w.Bytes(), nil
}

func writeValueType(w *codec.Writer, t ValueType) error {
	w.WriteInt32(int32(t))
	return nil
}

func writeValue(w *codec.Writer, v Value) error {
	switch v.Type {
	case String:
		return w.WriteCString(v.Text)
	case Int32:
		w.WriteInt32(int32(v.Int))
	case Int8:
		w.WriteUint8(uint8(v.Int))
	case Int64:
		w.WriteInt64(v.Int)
	case Int16:
		w.WriteInt16(int16(v.Int))
	default:
		return codec.InvalidArgument("", "unknown column type %d", int32(v.Type))
	}
	return nil
}
