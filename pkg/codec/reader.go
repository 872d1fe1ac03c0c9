package codec

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/text/encoding"
)

// FixedBlockSize is the size of every opaque fixed block
const FixedBlockSize = 68

// FixedBlock is an opaque 68-byte payload
type FixedBlock [FixedBlockSize]byte

// NewFixedBlock copies b into a FixedBlock. b must be exactly FixedBlockSize bytes.
func NewFixedBlock(b []byte) (FixedBlock, error) {
	var fb FixedBlock
	if len(b) != FixedBlockSize {
		return fb, InvalidArgument("", "fixed block must be %d bytes, got %d", FixedBlockSize, len(b))
	}
	copy(fb[:], b)
	return fb, nil
}

// Option configures a Reader or Writer
type Option func(*options)

type options struct {
	text encoding.Encoding
}

// WithTextEncoding transcodes cstrings through enc. A nil enc keeps the default
// byte-for-byte behaviour.
func WithTextEncoding(enc encoding.Encoding) Option {
	return func(o *options) {
		o.text = enc
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reader decodes primitives from an in-memory little-endian stream
type Reader struct {
	data   []byte
	offset int
	text   encoding.Encoding
}

// NewReader creates a reader positioned at the start of data
func NewReader(data []byte, opts ...Option) *Reader {
	o := applyOptions(opts)
	return &Reader{data: data, text: o.text}
}

// Offset returns the current read offset
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// ReadBytes reads exactly n bytes. The returned slice aliases the input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, newError(KindMalformedLength, r.offset, "negative byte count %d", n)
	}
	if r.Remaining() < n {
		return nil, newError(KindUnexpectedEOF, r.offset, "need %d bytes, %d remain", n, r.Remaining())
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// ReadUint8 reads one unsigned byte
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt16 reads a little-endian int16
func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// ReadInt32 reads a little-endian int32
func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadInt64 reads a little-endian int64
func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadCString reads bytes up to (and consuming) the next NUL byte.
func (r *Reader) ReadCString() (string, error) {
	start := r.offset
	n := bytes.IndexByte(r.data[start:], 0)
	if n < 0 {
		return "", newError(KindUnexpectedEOF, start, "unterminated string")
	}
	raw := r.data[start : start+n]
	r.offset = start + n + 1

	if r.text == nil || len(raw) == 0 {
		return string(raw), nil
	}
	decoded, err := r.text.NewDecoder().Bytes(raw)
	if err != nil {
		return "", newError(KindInvalidArgument, start, "decode string: %v", err)
	}
	// Invalid input decodes to U+FFFD instead of failing; only text that
	// encodes back to the same bytes is accepted.
	again, err := r.text.NewEncoder().Bytes(decoded)
	if err != nil || !bytes.Equal(again, raw) {
		return "", newError(KindInvalidArgument, start, "string is not valid %s text", r.text)
	}
	return string(decoded), nil
}

// ReadFixedBlock reads one 68-byte block
func (r *Reader) ReadFixedBlock() (FixedBlock, error) {
	var fb FixedBlock
	b, err := r.ReadBytes(FixedBlockSize)
	if err != nil {
		return fb, err
	}
	copy(fb[:], b)
	return fb, nil
}

// ReadCount reads a non-negative int32 element count
func (r *Reader) ReadCount() (int, error) {
	start := r.offset
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, newError(KindMalformedLength, start, "negative count %d", n)
	}
	return int(n), nil
}

// maxPrealloc bounds the capacity ReadSequence reserves up front
const maxPrealloc = 1024

// ReadSequence reads a count prefix followed by that many elements. The element
// path of a failing element is reported as "[i]".
func ReadSequence[T any](r *Reader, read func(*Reader) (T, error)) ([]T, error) {
	count, err := r.ReadCount()
	if err != nil {
		return nil, err
	}

	// The count is untrusted; larger sequences grow through append.
	items := make([]T, 0, min(count, r.Remaining(), maxPrealloc))
	for i := 0; i < count; i++ {
		item, err := read(r)
		if err != nil {
			return nil, WrapField(err, indexField(i))
		}
		items = append(items, item)
	}
	return items, nil
}
