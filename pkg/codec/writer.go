package codec

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

// Writer encodes primitives into a growing little-endian buffer
type Writer struct {
	buf  []byte
	text encoding.Encoding
}

// NewWriter creates an empty writer
func NewWriter(opts ...Option) *Writer {
	o := applyOptions(opts)
	return &Writer{buf: make([]byte, 0, 4096), text: o.text}
}

// Bytes returns the encoded bytes. The slice is owned by the writer until the
// writer is discarded.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteBytes appends raw bytes
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUint8 appends one byte
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteInt16 appends a little-endian int16
func (w *Writer) WriteInt16(v int16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
}

// WriteInt32 appends a little-endian int32
func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteInt64 appends a little-endian int64
func (w *Writer) WriteInt64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

// WriteCString appends s followed by a NUL terminator. Strings containing NUL
// cannot be represented and are rejected.
func (w *Writer) WriteCString(s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return InvalidArgument("", "string contains NUL at byte %d", i)
	}
	if w.text != nil && s != "" {
		encoded, err := w.text.NewEncoder().String(s)
		if err != nil {
			return InvalidArgument("", "encode string %q: %v", s, err)
		}
		s = encoded
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return nil
}

// WriteFixedBlock appends a 68-byte block verbatim
func (w *Writer) WriteFixedBlock(fb FixedBlock) error {
	w.buf = append(w.buf, fb[:]...)
	return nil
}

// WriteCount appends an int32 element count
func (w *Writer) WriteCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return &Error{Kind: KindMalformedLength, Message: "count " + strconv.Itoa(n) + " out of range", Offset: -1}
	}
	w.WriteInt32(int32(n))
	return nil
}

// WriteSequence appends len(items) followed by every element in order.
func WriteSequence[T any](w *Writer, items []T, write func(*Writer, T) error) error {
	if err := w.WriteCount(len(items)); err != nil {
		return err
	}
	for i, item := range items {
		if err := write(w, item); err != nil {
			return WrapField(err, indexField(i))
		}
	}
	return nil
}

// WriteInt32Element adapts WriteInt32 to WriteSequence
func WriteInt32Element(w *Writer, v int32) error {
	w.WriteInt32(v)
	return nil
}

func indexField(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
