package script

import (
	"fmt"
	"strconv"

	"golang.org/x/text/encoding"

	"github.com/ssargent/nexas/pkg/codec"
)

// functionTailLimit is the number of trailing bytes at or below which the
// function list is considered finished. The container has no function count.
const functionTailLimit = 4

// Option configures a Codec
type Option func(*Codec)

// WithTextEncoding transcodes every string through enc. nil keeps strings
// byte-for-byte.
func WithTextEncoding(enc encoding.Encoding) Option {
	return func(c *Codec) {
		c.text = enc
	}
}

// WithLenientHeader accepts any value for the ninth header byte, as the engine
// does. Files with a non-zero ninth byte then re-encode with a zero there.
func WithLenientHeader() Option {
	return func(c *Codec) {
		c.lenientHeader = true
	}
}

// Codec handles serialization and deserialization of compiled scripts. A Codec
// holds no per-call state and is safe for concurrent use.
type Codec struct {
	text          encoding.Encoding
	lenientHeader bool
}

// NewCodec creates a new script codec instance
func NewCodec(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = NewCodec()

// Decode decodes data with the default codec
func Decode(data []byte) (*Script, error) {
	return defaultCodec.Decode(data)
}

// Encode encodes s with the default codec
func Encode(s *Script) ([]byte, error) {
	return defaultCodec.Encode(s)
}

// Decode parses a complete compiled script. It never returns a partial Script.
func (c *Codec) Decode(data []byte) (*Script, error) {
	r := codec.NewReader(data, codec.WithTextEncoding(c.text))

	if err := c.readHeader(r); err != nil {
		return nil, err
	}

	s := &Script{}
	if err := readSections(r, s.sections()); err != nil {
		return nil, err
	}

	s.Functions = make([]*Function, 0)
	for i := 0; r.Remaining() > functionTailLimit; i++ {
		f, err := readFunction(r)
		if err != nil {
			return nil, codec.WrapField(err, "functions["+strconv.Itoa(i)+"]")
		}
		s.Functions = append(s.Functions, f)
	}

	if n := r.Remaining(); n != 0 {
		return nil, &codec.Error{
			Kind:    codec.KindTrailingData,
			Message: fmt.Sprintf("%d unread bytes after the last function record", n),
			Offset:  int64(r.Offset()),
		}
	}

	return s, nil
}

func (c *Codec) readHeader(r *codec.Reader) error {
	if r.Remaining() < HeaderSize {
		return &codec.Error{
			Kind:    codec.KindInvalidHeader,
			Message: fmt.Sprintf("input is %d bytes, shorter than the %d-byte header", r.Remaining(), HeaderSize),
			Offset:  0,
		}
	}

	header, err := r.ReadBytes(HeaderSize)
	if err != nil {
		return err
	}
	if string(header[:len(Magic)]) != Magic {
		return &codec.Error{
			Kind:    codec.KindInvalidHeader,
			Message: fmt.Sprintf("expected %q, got %q", Magic, header[:len(Magic)]),
			Offset:  0,
		}
	}
	if !c.lenientHeader && header[len(Magic)] != 0 {
		return &codec.Error{
			Kind:    codec.KindInvalidHeader,
			Message: fmt.Sprintf("header terminator is 0x%02x, expected 0x00", header[len(Magic)]),
			Offset:  int64(len(Magic)),
		}
	}
	return nil
}

// Encode serializes s. s is validated first; nothing is produced for an
// invalid Script.
func (c *Codec) Encode(s *Script) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	w := codec.NewWriter(codec.WithTextEncoding(c.text))
	w.WriteBytes([]byte(Magic))
	w.WriteUint8(0)

	if err := writeSections(w, s.sections()); err != nil {
		return nil, err
	}
	for i, f := range s.Functions {
		if err := writeFunction(w, f); err != nil {
			return nil, codec.WrapField(err, "functions["+strconv.Itoa(i)+"]")
		}
	}

	return w.Bytes(), nil
}
