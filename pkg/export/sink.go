package export

import (
	"context"
	"fmt"
)

// Format selects an export sink.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatYAML, FormatSQLite}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Sink receives exported tables.
type Sink interface {
	// Name returns the sink identifier.
	Name() string

	// Write stores one table.
	Write(ctx context.Context, t Table) error

	// Close releases resources.
	Close() error
}

// Open creates the sink for a format writing to path.
func Open(format Format, path string) (Sink, error) {
	switch format {
	case FormatCSV:
		return NewCSVSink(path), nil
	case FormatJSON:
		return NewJSONSink(path), nil
	case FormatYAML:
		return NewYAMLSink(path), nil
	case FormatSQLite:
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
