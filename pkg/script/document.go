package script

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/ssargent/nexas/pkg/codec"
)

// scriptDocument is the JSON shape of a Script. Values that must not be null
// are decoded through pointers or json.Number so a missing value can be told
// apart from a zero.
type scriptDocument struct {
	UnknownInts           []json.Number       `json:"unknownInts"`
	UnknownPairs          [][]json.Number     `json:"unknownPairs"`
	Opcodes               [][]json.Number     `json:"opcodes"`
	ConstantStrings       []*string           `json:"constantStrings"`
	VariableDeclarations  []*string           `json:"variableDeclarations"`
	ParameterDeclarations []*string           `json:"parameterDeclarations"`
	UnknownBlocks         [][]byte            `json:"unknownBlocks"`
	Functions             []*functionDocument `json:"functions"`
}

type functionDocument struct {
	ID                        json.Number     `json:"id"`
	UnknownPairs              [][]json.Number `json:"unknownPairs"`
	Opcodes                   [][]json.Number `json:"opcodes"`
	ConstantStrings           []*string       `json:"constantStrings"`
	LocalVariableDeclarations []*string       `json:"localVariableDeclarations"`
	ParameterDeclarations     []*string       `json:"parameterDeclarations"`
	UnknownBlocks             [][]byte        `json:"unknownBlocks"`
}

// MarshalDocument renders s as an indented JSON document. Every sequence is
// written as an array, never null.
func MarshalDocument(s *Script) ([]byte, error) {
	if s == nil {
		return nil, codec.InvalidArgument("script", "script is nil")
	}

	doc := scriptDocument{
		UnknownInts:   intsToDoc(s.UnknownInts),
		UnknownPairs:  pairsToDoc(s.UnknownPairs),
		Opcodes:       pairsToDoc(s.Opcodes),
		UnknownBlocks: blocksToDoc(s.UnknownBlocks),
		Functions:     make([]*functionDocument, 0, len(s.Functions)),
	}

	var err error
	if doc.ConstantStrings, err = stringsToDoc("constantStrings", s.ConstantStrings); err != nil {
		return nil, err
	}
	if doc.VariableDeclarations, err = stringsToDoc("variableDeclarations", s.VariableDeclarations); err != nil {
		return nil, err
	}
	if doc.ParameterDeclarations, err = stringsToDoc("parameterDeclarations", s.ParameterDeclarations); err != nil {
		return nil, err
	}

	for i, f := range s.Functions {
		field := "functions[" + strconv.Itoa(i) + "]"
		if f == nil {
			return nil, codec.InvalidArgument(field, "function is nil")
		}
		fd, err := functionToDoc(f)
		if err != nil {
			return nil, codec.WrapField(err, field)
		}
		doc.Functions = append(doc.Functions, fd)
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

func functionToDoc(f *Function) (*functionDocument, error) {
	fd := &functionDocument{
		ID:            json.Number(strconv.FormatInt(int64(f.ID), 10)),
		UnknownPairs:  pairsToDoc(f.UnknownPairs),
		Opcodes:       pairsToDoc(f.Opcodes),
		UnknownBlocks: blocksToDoc(f.UnknownBlocks),
	}

	var err error
	if fd.ConstantStrings, err = stringsToDoc("constantStrings", f.ConstantStrings); err != nil {
		return nil, err
	}
	if fd.LocalVariableDeclarations, err = stringsToDoc("localVariableDeclarations", f.LocalVariableDeclarations); err != nil {
		return nil, err
	}
	if fd.ParameterDeclarations, err = stringsToDoc("parameterDeclarations", f.ParameterDeclarations); err != nil {
		return nil, err
	}
	return fd, nil
}

// UnmarshalDocument builds a Script from a JSON document. Omitted or null
// sections load as empty sequences.
func UnmarshalDocument(data []byte) (*Script, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc *scriptDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, codec.InvalidArgument("", "parse document: %v", err)
	}
	if doc == nil {
		return nil, codec.InvalidArgument("", "document is null")
	}
	if dec.More() {
		return nil, codec.InvalidArgument("", "unexpected content after the document")
	}

	s := &Script{Functions: make([]*Function, 0, len(doc.Functions))}

	var err error
	if s.UnknownInts, err = intsFromDoc("unknownInts", doc.UnknownInts); err != nil {
		return nil, err
	}
	if s.UnknownPairs, err = pairsFromDoc("unknownPairs", doc.UnknownPairs); err != nil {
		return nil, err
	}
	if s.Opcodes, err = pairsFromDoc("opcodes", doc.Opcodes); err != nil {
		return nil, err
	}
	if s.ConstantStrings, err = stringsFromDoc("constantStrings", doc.ConstantStrings); err != nil {
		return nil, err
	}
	if s.VariableDeclarations, err = stringsFromDoc("variableDeclarations", doc.VariableDeclarations); err != nil {
		return nil, err
	}
	if s.ParameterDeclarations, err = stringsFromDoc("parameterDeclarations", doc.ParameterDeclarations); err != nil {
		return nil, err
	}
	if s.UnknownBlocks, err = blocksFromDoc("unknownBlocks", doc.UnknownBlocks); err != nil {
		return nil, err
	}

	for i, fd := range doc.Functions {
		field := "functions[" + strconv.Itoa(i) + "]"
		if fd == nil {
			return nil, codec.InvalidArgument(field, "function is null")
		}
		f, err := functionFromDoc(fd)
		if err != nil {
			return nil, codec.WrapField(err, field)
		}
		s.Functions = append(s.Functions, f)
	}

	return s, nil
}

func functionFromDoc(fd *functionDocument) (*Function, error) {
	if fd.ID == "" {
		return nil, codec.InvalidArgument("id", "id is required")
	}
	id, err := int32FromDoc("id", fd.ID)
	if err != nil {
		return nil, err
	}

	f := &Function{ID: id}
	if f.UnknownPairs, err = pairsFromDoc("unknownPairs", fd.UnknownPairs); err != nil {
		return nil, err
	}
	if f.Opcodes, err = pairsFromDoc("opcodes", fd.Opcodes); err != nil {
		return nil, err
	}
	if f.ConstantStrings, err = stringsFromDoc("constantStrings", fd.ConstantStrings); err != nil {
		return nil, err
	}
	if f.LocalVariableDeclarations, err = stringsFromDoc("localVariableDeclarations", fd.LocalVariableDeclarations); err != nil {
		return nil, err
	}
	if f.ParameterDeclarations, err = stringsFromDoc("parameterDeclarations", fd.ParameterDeclarations); err != nil {
		return nil, err
	}
	if f.UnknownBlocks, err = blocksFromDoc("unknownBlocks", fd.UnknownBlocks); err != nil {
		return nil, err
	}
	return f, nil
}

func intsToDoc(values []int32) []json.Number {
	out := make([]json.Number, len(values))
	for i, v := range values {
		out[i] = json.Number(strconv.FormatInt(int64(v), 10))
	}
	return out
}

func pairsToDoc(pairs []IntPair) [][]json.Number {
	out := make([][]json.Number, len(pairs))
	for i, p := range pairs {
		out[i] = intsToDoc([]int32{p.First, p.Second})
	}
	return out
}

func stringsToDoc(field string, values []string) ([]*string, error) {
	out := make([]*string, len(values))
	for i := range values {
		if !utf8.ValidString(values[i]) {
			return nil, codec.InvalidArgument(field+"["+strconv.Itoa(i)+"]",
				"string is not valid UTF-8; decode with the matching text encoding")
		}
		out[i] = &values[i]
	}
	return out, nil
}

func blocksToDoc(blocks []codec.FixedBlock) [][]byte {
	out := make([][]byte, len(blocks))
	for i := range blocks {
		out[i] = blocks[i][:]
	}
	return out
}

func int32FromDoc(field string, n json.Number) (int32, error) {
	v, err := strconv.ParseInt(string(n), 10, 32)
	if err != nil {
		return 0, codec.InvalidArgument(field, "%q is not a 32-bit integer", string(n))
	}
	return int32(v), nil
}

func intsFromDoc(field string, values []json.Number) ([]int32, error) {
	out := make([]int32, len(values))
	for i, n := range values {
		v, err := int32FromDoc(field+"["+strconv.Itoa(i)+"]", n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func pairsFromDoc(field string, values [][]json.Number) ([]IntPair, error) {
	out := make([]IntPair, len(values))
	for i, pair := range values {
		elem := field + "[" + strconv.Itoa(i) + "]"
		if len(pair) != 2 {
			return nil, codec.InvalidArgument(elem, "pair must have exactly 2 integers, got %d", len(pair))
		}
		ints, err := intsFromDoc(elem, pair)
		if err != nil {
			return nil, err
		}
		out[i] = IntPair{First: ints[0], Second: ints[1]}
	}
	return out, nil
}

func stringsFromDoc(field string, values []*string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			return nil, codec.InvalidArgument(field+"["+strconv.Itoa(i)+"]", "string is null")
		}
		out[i] = *v
	}
	return out, nil
}

func blocksFromDoc(field string, values [][]byte) ([]codec.FixedBlock, error) {
	out := make([]codec.FixedBlock, len(values))
	for i, b := range values {
		fb, err := codec.NewFixedBlock(b)
		if err != nil {
			return nil, codec.WrapField(err, field+"["+strconv.Itoa(i)+"]")
		}
		out[i] = fb
	}
	return out, nil
}
