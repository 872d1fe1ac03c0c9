package script

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ssargent/nexas/pkg/codec"
)

func genPair() gopter.Gen {
	return gopter.CombineGens(gen.Int32(), gen.Int32()).Map(func(v []interface{}) IntPair {
		return IntPair{First: v[0].(int32), Second: v[1].(int32)}
	})
}

// textRunes mixes ASCII with kana and kanji so both text encodings see
// multi-byte characters.
var textRunes = []rune("abcdefgXYZ 019_ぁあいうえおかきくけこさしアイウエオ日本語漢字文字列")

// genText draws from textRunes without a sieve. Slices of sieved strings
// apply the first element's sieve to every element and discard the rest.
func genText() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(textRunes)-1)).Map(func(idx []int) string {
		rs := make([]rune, len(idx))
		for i, j := range idx {
			rs[i] = textRunes[j]
		}
		return string(rs)
	})
}

func genBlock() gopter.Gen {
	return gen.SliceOfN(codec.FixedBlockSize, gen.UInt8()).Map(func(b []uint8) codec.FixedBlock {
		var fb codec.FixedBlock
		copy(fb[:], b)
		return fb
	})
}

func genFunction() gopter.Gen {
	return gen.StructPtr(reflect.TypeOf(&Function{}), map[string]gopter.Gen{
		"ID":                        gen.Int32(),
		"UnknownPairs":              gen.SliceOf(genPair()),
		"Opcodes":                   gen.SliceOf(genPair()),
		"ConstantStrings":           gen.SliceOf(genText()),
		"LocalVariableDeclarations": gen.SliceOf(genText()),
		"ParameterDeclarations":     gen.SliceOf(genText()),
		"UnknownBlocks":             gen.SliceOf(genBlock()),
	})
}

func genScript() gopter.Gen {
	return gen.StructPtr(reflect.TypeOf(&Script{}), map[string]gopter.Gen{
		"UnknownInts":           gen.SliceOf(gen.Int32()),
		"UnknownPairs":          gen.SliceOf(genPair()),
		"Opcodes":               gen.SliceOf(genPair()),
		"ConstantStrings":       gen.SliceOf(genText()),
		"VariableDeclarations":  gen.SliceOf(genText()),
		"ParameterDeclarations": gen.SliceOf(genText()),
		"UnknownBlocks":         gen.SliceOf(genBlock()),
		"Functions":             gen.SliceOf(genFunction()),
	})
}

func scriptParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.MaxSize = 8
	return parameters
}

func TestGenerators_NeverDiscard(t *testing.T) {
	params := gopter.DefaultGenParameters()
	params.MaxSize = 8
	for _, tc := range []struct {
		name string
		g    gopter.Gen
	}{
		{"text", genText()},
		{"text slice", gen.SliceOf(genText())},
		{"function", genFunction()},
		{"script", genScript()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 500; i++ {
				if _, ok := tc.g(params).Retrieve(); !ok {
					t.Fatalf("sample %d was discarded", i)
				}
			}
		})
	}
}

// Decode(Encode(s)) reproduces s for every well-formed script.
func TestProperty_DecodeInvertsEncode(t *testing.T) {
	properties := gopter.NewProperties(scriptParameters())

	properties.Property("decode(encode(s)) == s", prop.ForAll(
		func(s *Script) bool {
			data, err := Encode(s)
			if err != nil {
				t.Logf("encode: %v", err)
				return false
			}
			decoded, err := Decode(data)
			if err != nil {
				t.Logf("decode: %v", err)
				return false
			}
			if diff := cmp.Diff(s, decoded, equateEmpty); diff != "" {
				t.Logf("mismatch (-want +got):\n%s", diff)
				return false
			}
			return true
		},
		genScript(),
	))

	properties.TestingRun(t)
}

// Any byte stream that decodes re-encodes to exactly the same bytes.
func TestProperty_ByteExactReencode(t *testing.T) {
	properties := gopter.NewProperties(scriptParameters())

	properties.Property("encode(decode(b)) == b", prop.ForAll(
		func(s *Script) bool {
			data, err := Encode(s)
			if err != nil {
				return false
			}
			decoded, err := Decode(bytes.Clone(data))
			if err != nil {
				return false
			}
			again, err := Encode(decoded)
			return err == nil && bytes.Equal(data, again)
		},
		genScript(),
	))

	properties.Property("encoded length never leaves a 1-4 byte tail", prop.ForAll(
		func(s *Script) bool {
			data, err := Encode(s)
			if err != nil {
				return false
			}
			// Function records are at least 28 bytes, so the decoder's tail
			// heuristic never misreads a well-formed stream.
			return len(s.Functions) == 0 || len(data) >= HeaderSize+7*4+28*len(s.Functions)
		},
		genScript(),
	))

	properties.TestingRun(t)
}

// The JSON document preserves every value of a script with UTF-8 strings.
func TestProperty_DocumentRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(scriptParameters())

	properties.Property("unmarshal(marshal(s)) == s", prop.ForAll(
		func(s *Script) bool {
			doc, err := MarshalDocument(s)
			if err != nil {
				t.Logf("marshal: %v", err)
				return false
			}
			back, err := UnmarshalDocument(doc)
			if err != nil {
				t.Logf("unmarshal: %v", err)
				return false
			}
			return cmp.Equal(s, back, equateEmpty)
		},
		genScript(),
	))

	properties.Property("document path preserves the binary form", prop.ForAll(
		func(s *Script) bool {
			data, err := Encode(s)
			if err != nil {
				return false
			}
			doc, err := MarshalDocument(s)
			if err != nil {
				return false
			}
			back, err := UnmarshalDocument(doc)
			if err != nil {
				return false
			}
			rebuilt, err := Encode(back)
			return err == nil && bytes.Equal(data, rebuilt)
		},
		genScript(),
	))

	properties.TestingRun(t)
}
