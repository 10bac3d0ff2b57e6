package config

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "stbgraph.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/stbgraph"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes the environment overrides (STBGRAPH_OUTPUT_PATH)
	EnvPrefix = "STBGRAPH"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger     *slog.Logger
	configFile string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// SetConfigFile replaces the project config search with an explicit file.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/stbgraph/config.yaml)
// 3. Project config (stbgraph.yaml in current or parent directories, or the explicit file)
// 4. Environment variables (STBGRAPH_*, TRIPLYDB_*)
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := loadLayer(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	if l.configFile != "" {
		projectConfig, err := loadLayer(l.configFile)
		if err != nil {
			return nil, errors.WithHint(err, "check the --config flag")
		}
		l.logger.Debug("Loaded config file", slog.String("path", l.configFile))
		config.Merge(projectConfig)
	} else if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if projectConfig, err := loadLayer(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Environment overrides
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	config.Merge(env)

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, errors.WithHint(err, "fix the value in stbgraph.yaml or the matching STBGRAPH_ variable")
	}

	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return errors.New("cannot determine home directory")
	}

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	// Create default config
	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for stbgraph.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// envAliases are the variable names the upload script has always used.
var envAliases = map[string]string{
	"triplydb.token":   "TRIPLYDB_TOKEN",
	"triplydb.account": "TRIPLYDB_USERNAME",
	"triplydb.dataset": "TRIPLYDB_DATASET",
}

// loadEnv returns a Config holding only the values set in the environment.
func loadEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	env := &Config{}
	strs := map[string]*string{
		"source.path":               &env.Source.Path,
		"source.sheet":              &env.Source.Sheet,
		"ontology.path":             &env.Ontology.Path,
		"rules.path":                &env.Rules.Path,
		"output.path":               &env.Output.Path,
		"output.format":             &env.Output.Format,
		"namespaces.definitions":    &env.Namespaces.Definitions,
		"namespaces.identifiers":    &env.Namespaces.Identifiers,
		"namespaces.inferred_graph": &env.Namespaces.InferredGraph,
		"store.backend":             &env.Store.Backend,
		"store.path":                &env.Store.Path,
		"reasoner.engine":           &env.Reasoner.Engine,
		"reasoner.eye_path":         &env.Reasoner.EyePath,
		"triplydb.url":              &env.TriplyDB.URL,
		"triplydb.account":          &env.TriplyDB.Account,
		"triplydb.dataset":          &env.TriplyDB.Dataset,
		"triplydb.token":            &env.TriplyDB.Token,
		"triplydb.access_level":     &env.TriplyDB.AccessLevel,
		"nats.url":                  &env.NATS.URL,
		"nats.subject":              &env.NATS.Subject,
		"metrics.textfile":          &env.Metrics.Textfile,
	}
	durations := map[string]*Duration{
		"triplydb.poll_interval": &env.TriplyDB.PollInterval,
		"watch.debounce":         &env.Watch.Debounce,
	}

	bind := func(key string) error {
		if alias, ok := envAliases[key]; ok {
			// The prefixed name wins over the alias.
			return v.BindEnv(key, envName(key), alias)
		}
		return v.BindEnv(key)
	}

	for key, dst := range strs {
		if err := bind(key); err != nil {
			return nil, errors.Wrapf(err, "bind %s", key)
		}
		*dst = strings.TrimSpace(v.GetString(key))
	}
	for key, dst := range durations {
		if err := bind(key); err != nil {
			return nil, errors.Wrapf(err, "bind %s", key)
		}
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			continue
		}
		if err := dst.UnmarshalText([]byte(raw)); err != nil {
			return nil, errors.WithHintf(err, "check %s", envName(key))
		}
	}

	if err := bind("reasoner.eye_args"); err != nil {
		return nil, errors.Wrap(err, "bind reasoner.eye_args")
	}
	if raw := strings.TrimSpace(v.GetString("reasoner.eye_args")); raw != "" {
		env.Reasoner.EyeArgs = strings.Fields(raw)
	}

	return env, nil
}

// envName returns the prefixed variable name for a config key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
