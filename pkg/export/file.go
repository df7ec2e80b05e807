package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"gopkg.in/yaml.v3"
)

// fileSink writes each table to a single file, replacing previous content.
type fileSink struct {
	name   string
	path   string
	encode func(io.Writer, Table) error
}

// NewCSVSink writes tables as CSV with a header row.
func NewCSVSink(path string) Sink {
	return &fileSink{name: string(FormatCSV), path: path, encode: encodeCSV}
}

// NewJSONSink writes tables as a JSON array of objects keyed by header.
func NewJSONSink(path string) Sink {
	return &fileSink{name: string(FormatJSON), path: path, encode: encodeJSON}
}

// NewYAMLSink writes tables as a YAML sequence of mappings in column order.
func NewYAMLSink(path string) Sink {
	return &fileSink{name: string(FormatYAML), path: path, encode: encodeYAML}
}

func (s *fileSink) Name() string { return s.name }

func (s *fileSink) Write(ctx context.Context, t Table) error {
	if err := ctx.Err(); err != nil {
		return &model.CancelledError{Err: err}
	}
	if err := s.write(t); err != nil {
		return &model.DeliveryError{Sink: s.name, Err: err}
	}
	return nil
}

// write encodes into a temporary file next to the target and renames it
// into place, so a failed export leaves any previous file untouched.
func (s *fileSink) write(t Table) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	w := bufio.NewWriter(f)
	if err := s.encode(w, t); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// checkRows rejects rows whose width differs from the header row.
func checkRows(t Table) error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d fields, want %d", i+1, len(row), len(t.Columns))
		}
	}
	return nil
}

func (s *fileSink) Close() error { return nil }

func encodeCSV(w io.Writer, t Table) error {
	if err := checkRows(t); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func encodeJSON(w io.Writer, t Table) error {
	if err := checkRows(t); err != nil {
		return err
	}
	headers := t.Headers()
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			obj[h] = row[i]
		}
		out = append(out, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func encodeYAML(w io.Writer, t Table) error {
	if err := checkRows(t); err != nil {
		return err
	}
	headers := t.Headers()
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range t.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, h := range headers {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: h},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: row[i]},
			)
		}
		seq.Content = append(seq.Content, m)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
