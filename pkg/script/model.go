package script

import (
	"strconv"
	"strings"

	"github.com/ssargent/nexas/pkg/codec"
)

// Magic is the 8-byte signature at the start of every compiled script
const Magic = "VER-1.00"

// HeaderSize is the size of Magic plus its NUL terminator
const HeaderSize = len(Magic) + 1

// IntPair is an ordered pair of signed 32-bit integers. For opcodes First is the
// command and Second its argument.
type IntPair struct {
	First  int32
	Second int32
}

// Script is the root of a decoded compiled script
type Script struct {
	UnknownInts           []int32
	UnknownPairs          []IntPair
	Opcodes               []IntPair
	ConstantStrings       []string
	VariableDeclarations  []string
	ParameterDeclarations []string
	UnknownBlocks         []codec.FixedBlock
	Functions             []*Function
}

// Function is one function record of a Script
type Function struct {
	ID                        int32
	UnknownPairs              []IntPair
	Opcodes                   []IntPair
	ConstantStrings           []string
	LocalVariableDeclarations []string
	ParameterDeclarations     []string
	UnknownBlocks             []codec.FixedBlock
}

// Validate checks that s can be encoded: it must be non-nil, contain no nil
// functions, and none of its strings may contain a NUL byte.
func (s *Script) Validate() error {
	if s == nil {
		return codec.InvalidArgument("script", "script is nil")
	}
	for _, f := range []struct {
		name   string
		values []string
	}{
		{"constantStrings", s.ConstantStrings},
		{"variableDeclarations", s.VariableDeclarations},
		{"parameterDeclarations", s.ParameterDeclarations},
	} {
		if err := validateStrings(f.name, f.values); err != nil {
			return err
		}
	}
	for i, fn := range s.Functions {
		field := "functions[" + strconv.Itoa(i) + "]"
		if fn == nil {
			return codec.InvalidArgument(field, "function is nil")
		}
		if err := fn.Validate(); err != nil {
			return codec.WrapField(err, field)
		}
	}
	return nil
}

// Validate checks that f can be encoded.
func (f *Function) Validate() error {
	if f == nil {
		return codec.InvalidArgument("", "function is nil")
	}
	for _, field := range []struct {
		name   string
		values []string
	}{
		{"constantStrings", f.ConstantStrings},
		{"localVariableDeclarations", f.LocalVariableDeclarations},
		{"parameterDeclarations", f.ParameterDeclarations},
	} {
		if err := validateStrings(field.name, field.values); err != nil {
			return err
		}
	}
	return nil
}

func validateStrings(name string, values []string) error {
	for i, v := range values {
		if j := strings.IndexByte(v, 0); j >= 0 {
			return codec.InvalidArgument(name+"["+strconv.Itoa(i)+"]", "string contains NUL at byte %d", j)
		}
	}
	return nil
}
