// Package rdfexport writes the contents of a graph store to an RDF file.
package rdfexport

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360studio/stbgraph/export"
	"github.com/c360studio/stbgraph/graph"
	"github.com/cockroachdb/errors"
)

// WriteFile streams every statement of store to path in format and returns
// how many were written. The file is closed on every path; a failure part
// way leaves a partial file behind.
func WriteFile(path string, store graph.Store, format export.Format) (n int, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.Wrapf(err, "create output directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, errors.WithHint(
			errors.Wrapf(err, "create output %s", path),
			"check output.path in the configuration")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close output %s", path)
		}
	}()

	w, err := export.NewWriter(format, f)
	if err != nil {
		return 0, err
	}

	n, err = export.WriteAll(w, store.Quads())
	if err != nil {
		return n, errors.Wrapf(err, "write %s", path)
	}
	return n, nil
}

// Sink writes a store to the configured file.
type Sink struct {
	config Config
	logger *slog.Logger
}

// NewSink creates a sink. A nil logger uses slog.Default().
func NewSink(config Config, logger *slog.Logger) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid output config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{config: config, logger: logger}, nil
}

// Path returns the output file.
func (s *Sink) Path() string {
	return s.config.Path
}

// Format returns the serialization format.
func (s *Sink) Format() export.Format {
	return s.config.GetFormat()
}

// Write serializes store to the output file.
func (s *Sink) Write(store graph.Store) (int, error) {
	format := s.config.GetFormat()
	n, err := WriteFile(s.config.Path, store, format)
	if err != nil {
		return n, err
	}

	s.logger.Debug("Wrote graph",
		"path", s.config.Path,
		"format", format,
		"statements", n)
	return n, nil
}
