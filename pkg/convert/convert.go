// Package convert binds the script and table codecs to batch operations and
// to the byte-level conversions served over HTTP.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ssargent/nexas/pkg/batch"
	"github.com/ssargent/nexas/pkg/codec"
	"github.com/ssargent/nexas/pkg/config"
	"github.com/ssargent/nexas/pkg/script"
	"github.com/ssargent/nexas/pkg/table"
)

// Table text formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Operation names used in logs, metrics and the journal
const (
	OpExtract      = "extract"
	OpRebuild      = "rebuild"
	OpTableExtract = "table-extract"
	OpTableRebuild = "table-rebuild"
)

// Converter performs every conversion the tool offers
type Converter struct {
	scripts *script.Codec
	tables  *table.Codec
	ext     config.Extensions
}

// New builds a Converter from the codec and extension settings of cfg
func New(cfg *config.Config) (*Converter, error) {
	enc, err := codec.LookupTextEncoding(cfg.Codec.TextEncoding)
	if err != nil {
		return nil, err
	}

	scriptOpts := []script.Option{script.WithTextEncoding(enc)}
	if cfg.Codec.LenientHeader {
		scriptOpts = append(scriptOpts, script.WithLenientHeader())
	}

	return &Converter{
		scripts: script.NewCodec(scriptOpts...),
		tables:  table.NewCodec(table.WithTextEncoding(enc)),
		ext:     cfg.Extensions,
	}, nil
}

// DecodeScript converts a compiled script into its JSON document
func (c *Converter) DecodeScript(data []byte) ([]byte, error) {
	s, err := c.scripts.Decode(data)
	if err != nil {
		return nil, err
	}
	return script.MarshalDocument(s)
}

// EncodeScript converts a JSON document into a compiled script
func (c *Converter) EncodeScript(doc []byte) ([]byte, error) {
	s, err := script.UnmarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	return c.scripts.Encode(s)
}

// DecodeTable converts a binary table into format
func (c *Converter) DecodeTable(data []byte, format string) ([]byte, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	t, err := c.tables.Decode(data)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		var buf bytes.Buffer
		if err := table.WriteCSV(&buf, t); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return table.MarshalDocument(t)
}

// EncodeTable converts a table in format into its binary form
func (c *Converter) EncodeTable(data []byte, format string) ([]byte, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	var (
		t   *table.Table
		err error
	)
	if format == FormatCSV {
		t, err = table.ReadCSV(bytes.NewReader(data))
	} else {
		t, err = table.UnmarshalDocument(data)
	}
	if err != nil {
		return nil, err
	}
	return c.tables.Encode(t)
}

func checkFormat(format string) error {
	switch format {
	case FormatJSON, FormatCSV:
		return nil
	default:
		return fmt.Errorf("unsupported table format %q (want %s or %s)", format, FormatJSON, FormatCSV)
	}
}

// Extract returns the operation converting compiled scripts to documents
func (c *Converter) Extract() batch.Operation {
	return batch.Operation{
		Name:       OpExtract,
		SourceExts: []string{c.ext.Script},
		TargetExt:  c.ext.Document,
		Convert: func(ctx context.Context, src string, data []byte) ([]byte, error) {
			return c.DecodeScript(data)
		},
	}
}

// Rebuild returns the operation converting documents back to compiled scripts
func (c *Converter) Rebuild() batch.Operation {
	return batch.Operation{
		Name:       OpRebuild,
		SourceExts: []string{c.ext.Document},
		TargetExt:  c.ext.Output,
		Convert: func(ctx context.Context, src string, data []byte) ([]byte, error) {
			return c.EncodeScript(data)
		},
	}
}

// TableExtract returns the operation converting binary tables to format
func (c *Converter) TableExtract(format string) (batch.Operation, error) {
	if err := checkFormat(format); err != nil {
		return batch.Operation{}, err
	}
	target := c.ext.Document
	if format == FormatCSV {
		target = c.ext.CSV
	}
	return batch.Operation{
		Name:       OpTableExtract,
		SourceExts: []string{c.ext.Table},
		TargetExt:  target,
		Convert: func(ctx context.Context, src string, data []byte) ([]byte, error) {
			return c.DecodeTable(data, format)
		},
	}, nil
}

// TableRebuild returns the operation converting JSON and CSV tables back to
// binary. The input format follows the source extension.
func (c *Converter) TableRebuild() batch.Operation {
	return batch.Operation{
		Name:       OpTableRebuild,
		SourceExts: []string{c.ext.Document, c.ext.CSV},
		TargetExt:  c.ext.Output,
		Convert: func(ctx context.Context, src string, data []byte) ([]byte, error) {
			format, err := c.formatOf(src)
			if err != nil {
				return nil, err
			}
			return c.EncodeTable(data, format)
		},
	}
}

func (c *Converter) formatOf(path string) (string, error) {
	ext := filepath.Ext(path)
	switch {
	case strings.EqualFold(ext, c.ext.Document):
		return FormatJSON, nil
	case strings.EqualFold(ext, c.ext.CSV):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("extension %q not supported", ext)
	}
}
