package rdfexport

import (
	"strings"

	"github.com/c360studio/stbgraph/export"
	"github.com/cockroachdb/errors"
)

// DefaultPath is where the expanded graph is written.
const DefaultPath = "data/transformed.nq"

// Config holds configuration for the RDF file sink.
type Config struct {
	// Path is the output file.
	Path string `yaml:"path" toml:"path" mapstructure:"path"`

	// Format is the serialization format (nquads/ntriples/turtle).
	Format string `yaml:"format" toml:"format" mapstructure:"format"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("output.path is required")
	}
	if c.Format != "" {
		if _, err := export.ParseFormat(c.Format); err != nil {
			return err
		}
	}
	return nil
}

// GetFormat returns the configured format. An empty format is taken from the
// output file extension, falling back to N-Quads.
func (c *Config) GetFormat() export.Format {
	if f, err := export.ParseFormat(c.Format); err == nil {
		return f
	}
	if f, ok := export.FormatForPath(c.Path); ok {
		return f
	}
	return export.FormatNQuads
}

// DefaultConfig returns the default configuration for the sink.
func DefaultConfig() Config {
	return Config{Path: DefaultPath}
}
