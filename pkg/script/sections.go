package script

import (
	"github.com/ssargent/nexas/pkg/codec"
)

// section is one counted sequence of a Script or Function. The same descriptor
// drives both directions, which keeps the read and write order identical.
type section struct {
	name  string
	read  func(*codec.Reader) error
	write func(*codec.Writer) error
}

func readPair(r *codec.Reader) (IntPair, error) {
	first, err := r.ReadInt32()
	if err != nil {
		return IntPair{}, err
	}
	second, err := r.ReadInt32()
	if err != nil {
		return IntPair{}, err
	}
	return IntPair{First: first, Second: second}, nil
}

func writePair(w *codec.Writer, p IntPair) error {
	w.WriteInt32(p.First)
	w.WriteInt32(p.Second)
	return nil
}

func intSection(name string, dst *[]int32) section {
	return section{
		name: name,
		read: func(r *codec.Reader) (err error) {
			*dst, err = codec.ReadSequence(r, (*codec.Reader).ReadInt32)
			return err
		},
		write: func(w *codec.Writer) error {
			return codec.WriteSequence(w, *dst, codec.WriteInt32Element)
		},
	}
}

func pairSection(name string, dst *[]IntPair) section {
	return section{
		name: name,
		read: func(r *codec.Reader) (err error) {
			*dst, err = codec.ReadSequence(r, readPair)
			return err
		},
		write: func(w *codec.Writer) error {
			return codec.WriteSequence(w, *dst, writePair)
		},
	}
}

func stringSection(name string, dst *[]string) section {
	return section{
		name: name,
		read: func(r *codec.Reader) (err error) {
			*dst, err = codec.ReadSequence(r, (*codec.Reader).ReadCString)
			return err
		},
		write: func(w *codec.Writer) error {
			return codec.WriteSequence(w, *dst, (*codec.Writer).WriteCString)
		},
	}
}

func blockSection(name string, dst *[]codec.FixedBlock) section {
	return section{
		name: name,
		read: func(r *codec.Reader) (err error) {
			*dst, err = codec.ReadSequence(r, (*codec.Reader).ReadFixedBlock)
			return err
		},
		write: func(w *codec.Writer) error {
			return codec.WriteSequence(w, *dst, (*codec.Writer).WriteFixedBlock)
		},
	}
}

// sections lists the top-level sections in wire order
func (s *Script) sections() []section {
	return []section{
		intSection("unknownInts", &s.UnknownInts),
		pairSection("unknownPairs", &s.UnknownPairs),
		pairSection("opcodes", &s.Opcodes),
		stringSection("constantStrings", &s.ConstantStrings),
		stringSection("variableDeclarations", &s.VariableDeclarations),
		stringSection("parameterDeclarations", &s.ParameterDeclarations),
		blockSection("unknownBlocks", &s.UnknownBlocks),
	}
}

// sections lists the function record sections following the id, in wire order
func (f *Function) sections() []section {
	return []section{
		pairSection("unknownPairs", &f.UnknownPairs),
		pairSection("opcodes", &f.Opcodes),
		stringSection("constantStrings", &f.ConstantStrings),
		stringSection("localVariableDeclarations", &f.LocalVariableDeclarations),
		stringSection("parameterDeclarations", &f.ParameterDeclarations),
		blockSection("unknownBlocks", &f.UnknownBlocks),
	}
}

func readSections(r *codec.Reader, sections []section) error {
	for _, sec := range sections {
		if err := sec.read(r); err != nil {
			return codec.WrapField(err, sec.name)
		}
	}
	return nil
}

func writeSections(w *codec.Writer, sections []section) error {
	for _, sec := range sections {
		if err := sec.write(w); err != nil {
			return codec.WrapField(err, sec.name)
		}
	}
	return nil
}

func readFunction(r *codec.Reader) (*Function, error) {
	id, err := r.ReadInt32()
	if err != nil {
		return nil, codec.WrapField(err, "id")
	}
	f := &Function{ID: id}
	if err := readSections(r, f.sections()); err != nil {
		return nil, err
	}
	return f, nil
}

func writeFunction(w *codec.Writer, f *Function) error {
	w.WriteInt32(f.ID)
	return writeSections(w, f.sections())
}
