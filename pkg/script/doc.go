// Package script decodes and encodes NeXAS compiled scripts.
//
// A compiled script is a single little-endian container:
//
//	"VER-1.00\x00"                               9-byte header
//	unknownInts           int32 N; N × int32
//	unknownPairs          int32 N; N × (int32,int32)
//	opcodes               int32 N; N × (int32,int32)
//	constantStrings       int32 N; N × cstring
//	variableDeclarations  int32 N; N × cstring
//	parameterDeclarations int32 N; N × cstring
//	unknownBlocks         int32 N; N × 68-byte block
//	function records until 4 or fewer bytes remain:
//	  id int32, then unknownPairs, opcodes, constantStrings,
//	  localVariableDeclarations, parameterDeclarations, unknownBlocks
//
// The container has no function count. The decoder keeps reading function records
// while more than four bytes remain and then requires the stream to be fully
// consumed. Real files always end exactly after the last record, so a tail of one
// to four bytes is reported as TrailingData instead of being dropped.
//
// Decoding and encoding share one ordered list of sections per entity, so the
// two directions cannot drift apart. For every Script s that passes Validate,
// Decode(Encode(s)) equals s. For every byte slice b that Decode accepts with
// the default options, Encode(Decode(b)) equals b.
//
// MarshalDocument and UnmarshalDocument map a Script to and from the editable
// JSON document used by the extract and rebuild commands.
package script
