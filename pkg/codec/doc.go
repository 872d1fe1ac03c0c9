// Package codec provides the primitive binary codec shared by the NeXAS script and
// config-table formats.
//
// Every NeXAS container is a flat little-endian stream built from a handful of
// primitives:
//
//	int8 / int16 / int32 / int64   little-endian, signed (int8 is read unsigned)
//	cstring                        encoded text followed by a single 0x00 byte
//	fixed block                    exactly 68 opaque bytes
//	counted sequence               int32 count N, then N homogeneous elements
//
// # Reading
//
// A Reader walks an in-memory byte slice and tracks its offset, so the caller can
// ask how many bytes remain. The script decoder depends on that to run its
// end-of-stream heuristic.
//
//	r := codec.NewReader(data)
//	names, err := codec.ReadSequence(r, (*codec.Reader).ReadCString)
//	if err != nil {
//	    return err
//	}
//
// # Writing
//
// A Writer appends to a growing buffer. Counts are always derived from the length
// of the slice being written; there is no way to write a count and its elements
// separately.
//
//	w := codec.NewWriter()
//	if err := codec.WriteSequence(w, names, (*codec.Writer).WriteCString); err != nil {
//	    return err
//	}
//	out := w.Bytes()
//
// # Text
//
// Strings are passed through byte-for-byte by default. The engine's files are
// UTF-8 in this mode and a decoded string keeps any invalid byte sequence intact.
// Files produced for older Japanese or Chinese releases can be read with
// WithTextEncoding and one of the encodings returned by LookupTextEncoding.
//
// # Error Handling
//
// All failures are *Error values carrying an ErrorKind, the byte offset where the
// problem was detected and, when known, the field path. Use errors.Is against the
// sentinel values (ErrInvalidHeader, ErrMalformedLength, ErrUnexpectedEOF,
// ErrTrailingData, ErrInvalidArgument) to branch on the kind.
package codec
