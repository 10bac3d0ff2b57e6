// Package config provides configuration loading and management for stbgraph.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/stbgraph/vocabulary/stb"
	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the complete stbgraph configuration
type Config struct {
	Source     SourceConfig   `yaml:"source" toml:"source"`
	Ontology   OntologyConfig `yaml:"ontology" toml:"ontology"`
	Rules      RulesConfig    `yaml:"rules" toml:"rules"`
	Output     OutputConfig   `yaml:"output" toml:"output"`
	Namespaces stb.Namespaces `yaml:"namespaces" toml:"namespaces"`
	Store      StoreConfig    `yaml:"store" toml:"store"`
	Reasoner   ReasonerConfig `yaml:"reasoner" toml:"reasoner"`
	TriplyDB   TriplyDBConfig `yaml:"triplydb" toml:"triplydb"`
	NATS       NATSConfig     `yaml:"nats" toml:"nats"`
	Metrics    MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Watch      WatchConfig    `yaml:"watch" toml:"watch"`
}

// SourceConfig selects the input workbooks
type SourceConfig struct {
	// Path is a workbook file or a doublestar glob
	Path string `yaml:"path" toml:"path"`
	// Sheet is the worksheet holding the rows
	Sheet string `yaml:"sheet" toml:"sheet"`
}

// OntologyConfig locates the Turtle ontology
type OntologyConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// RulesConfig locates the N3 rule set
type RulesConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// OutputConfig configures the serialized graph
type OutputConfig struct {
	Path string `yaml:"path" toml:"path"`
	// Format is nquads, ntriples or turtle
	Format string `yaml:"format" toml:"format"`
}

// StoreConfig selects the statement store
type StoreConfig struct {
	// Backend is memory or sqlite
	Backend string `yaml:"backend" toml:"backend"`
	// Path is the SQLite file (empty = in-memory database)
	Path string `yaml:"path" toml:"path"`
}

// ReasonerConfig selects the inference engine
type ReasonerConfig struct {
	// Engine is builtin or eye
	Engine string `yaml:"engine" toml:"engine"`
	// EyePath is the eye executable
	EyePath string `yaml:"eye_path" toml:"eye_path"`
	// EyeArgs are extra arguments passed to eye
	EyeArgs []string `yaml:"eye_args,omitempty" toml:"eye_args,omitempty"`
}

// TriplyDBConfig configures the upload target
type TriplyDBConfig struct {
	// URL is the TriplyDB API endpoint
	URL     string `yaml:"url" toml:"url"`
	Account string `yaml:"account" toml:"account"`
	Dataset string `yaml:"dataset" toml:"dataset"`
	// Token is the API token; usually supplied through TRIPLYDB_TOKEN
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`
	// AccessLevel is used when the dataset has to be created
	AccessLevel  string   `yaml:"access_level" toml:"access_level"`
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval"`
}

// NATSConfig configures the run-completed event
type NATSConfig struct {
	// URL is the NATS server URL (empty = no event)
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
}

// MetricsConfig configures the Prometheus textfile
type MetricsConfig struct {
	// Textfile is written after each run (empty = disabled)
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Reasoner engines.
const (
	EngineBuiltin = "builtin"
	EngineEye     = "eye"
)

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:  "data/STB_1_mei_2014.xls",
			Sheet: "STB april 2014",
		},
		Ontology: OntologyConfig{Path: "ontology/stb.ttl"},
		Rules:    RulesConfig{Path: "ontology/rdfs.n3"},
		Output: OutputConfig{
			Path: "data/transformed.nq",
		},
		Namespaces: stb.DefaultNamespaces(),
		Store:      StoreConfig{Backend: BackendMemory},
		Reasoner: ReasonerConfig{
			Engine:  EngineBuiltin,
			EyePath: "eye",
		},
		TriplyDB: TriplyDBConfig{
			URL:          "https://api.triplydb.com",
			AccessLevel:  "public",
			PollInterval: Duration(2 * time.Second),
		},
		NATS: NATSConfig{
			Subject: "stb.graph.run.completed",
		},
		Watch: WatchConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return errors.New("source.path is required")
	}
	if c.Source.Sheet == "" {
		return errors.New("source.sheet is required")
	}
	if c.Ontology.Path == "" {
		return errors.New("ontology.path is required")
	}
	if c.Rules.Path == "" {
		return errors.New("rules.path is required")
	}
	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "nquads", "ntriples", "turtle":
	default:
		return errors.Newf("output.format %q is not supported (valid: nquads, ntriples, turtle)", c.Output.Format)
	}
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return errors.Newf("store.backend %q is not supported (valid: memory, sqlite)", c.Store.Backend)
	}
	switch c.Reasoner.Engine {
	case EngineBuiltin:
	case EngineEye:
		if c.Reasoner.EyePath == "" {
			return errors.New("reasoner.eye_path is required for the eye engine")
		}
	default:
		return errors.Newf("reasoner.engine %q is not supported (valid: builtin, eye)", c.Reasoner.Engine)
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return errors.New("nats.subject is required when nats.url is set")
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must not be negative")
	}
	return nil
}

// ValidateUpload checks the settings the TriplyDB upload needs
func (c *Config) ValidateUpload() error {
	var missing []string
	if c.TriplyDB.URL == "" {
		missing = append(missing, "triplydb.url")
	}
	if c.TriplyDB.Token == "" {
		missing = append(missing, "triplydb.token (TRIPLYDB_TOKEN)")
	}
	if c.TriplyDB.Account == "" {
		missing = append(missing, "triplydb.account (TRIPLYDB_USERNAME)")
	}
	if c.TriplyDB.Dataset == "" {
		missing = append(missing, "triplydb.dataset (TRIPLYDB_DATASET)")
	}
	if len(missing) > 0 {
		return errors.WithHint(
			errors.Newf("missing upload settings: %s", strings.Join(missing, ", ")),
			"set them in stbgraph.yaml or through the environment")
	}
	if c.TriplyDB.PollInterval <= 0 {
		return errors.New("triplydb.poll_interval must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or TOML file, picked by extension.
// Keys the file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadLayer reads path into an empty Config so that only the keys the file
// sets are non-zero. The loader merges layers on top of the defaults.
func loadLayer(path string) (*Config, error) {
	config := &Config{}
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

// SaveToFile saves configuration to a YAML or TOML file, picked by extension
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	mergeString(&c.Source.Path, other.Source.Path)
	mergeString(&c.Source.Sheet, other.Source.Sheet)
	mergeString(&c.Ontology.Path, other.Ontology.Path)
	mergeString(&c.Rules.Path, other.Rules.Path)
	mergeString(&c.Output.Path, other.Output.Path)
	mergeString(&c.Output.Format, other.Output.Format)

	mergeString(&c.Namespaces.Definitions, other.Namespaces.Definitions)
	mergeString(&c.Namespaces.Identifiers, other.Namespaces.Identifiers)
	mergeString(&c.Namespaces.InferredGraph, other.Namespaces.InferredGraph)

	mergeString(&c.Store.Backend, other.Store.Backend)
	mergeString(&c.Store.Path, other.Store.Path)

	mergeString(&c.Reasoner.Engine, other.Reasoner.Engine)
	mergeString(&c.Reasoner.EyePath, other.Reasoner.EyePath)
	if len(other.Reasoner.EyeArgs) > 0 {
		c.Reasoner.EyeArgs = other.Reasoner.EyeArgs
	}

	mergeString(&c.TriplyDB.URL, other.TriplyDB.URL)
	mergeString(&c.TriplyDB.Account, other.TriplyDB.Account)
	mergeString(&c.TriplyDB.Dataset, other.TriplyDB.Dataset)
	mergeString(&c.TriplyDB.Token, other.TriplyDB.Token)
	mergeString(&c.TriplyDB.AccessLevel, other.TriplyDB.AccessLevel)
	if other.TriplyDB.PollInterval != 0 {
		c.TriplyDB.PollInterval = other.TriplyDB.PollInterval
	}

	mergeString(&c.NATS.URL, other.NATS.URL)
	mergeString(&c.NATS.Subject, other.NATS.Subject)
	mergeString(&c.Metrics.Textfile, other.Metrics.Textfile)
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Duration is a time.Duration written as a Go duration string ("2s").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	*d = Duration(v)
	return nil
}
