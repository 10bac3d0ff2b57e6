package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/c360studio/stbgraph/config"
	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/pipeline"
	"github.com/c360studio/stbgraph/triplydb"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
)

// options holds the command line flags.
type options struct {
	configPath string
	logLevel   string

	source  string
	sheet   string
	output  string
	format  string
	engine  string
	backend string
	watch   bool
}

// App wires the configuration into the pipeline and the uploader.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *pipeline.Metrics
	out     io.Writer
}

func newApp(opts *options, out, errOut io.Writer) (*App, error) {
	logger := newLogger(opts.logLevel, errOut)
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: pipeline.NewMetrics(),
		out:     out,
	}, nil
}

// newLogger returns a text logger on w at the named level.
func newLogger(level string, w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig layers the flags over the loaded configuration.
func loadConfig(opts *options, logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	if opts.configPath != "" {
		loader.SetConfigFile(opts.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	flags := &config.Config{
		Source: config.SourceConfig{Path: opts.source, Sheet: opts.sheet},
		Output: config.OutputConfig{Path: opts.output, Format: opts.format},
		Store:  config.StoreConfig{Backend: opts.backend},
		Reasoner: config.ReasonerConfig{
			Engine: opts.engine,
		},
	}
	if opts.output != "" && opts.format == "" {
		// A new output path without --format takes its format from the extension.
		cfg.Output.Format = ""
	}
	cfg.Merge(flags)
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid configuration"), "check the command line flags")
	}
	return cfg, nil
}

// newPipeline builds the pipeline, connecting to NATS when configured. The
// returned function releases the connection.
func (a *App) newPipeline() (*pipeline.Pipeline, func(), error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	}
	closer := func() {}

	if a.cfg.NATS.URL != "" {
		pub, err := graph.ConnectNATS(a.cfg.NATS.URL)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("Connected to NATS", "url", a.cfg.NATS.URL, "subject", a.cfg.NATS.Subject)
		opts = append(opts, pipeline.WithPublisher(pub))
		closer = func() {
			if err := pub.Close(); err != nil {
				a.logger.Warn("Failed to close NATS connection", "error", err)
			}
		}
	}

	p, err := pipeline.New(a.cfg, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return p, closer, nil
}

// Transform runs the pipeline once and prints the summary.
func (a *App) Transform(ctx context.Context) (*pipeline.Result, error) {
	p, closer, err := a.newPipeline()
	if err != nil {
		return nil, err
	}
	defer closer()

	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	a.printSummary(res)
	return res, nil
}

// Watch runs the pipeline on every input change until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	p, closer, err := a.newPipeline()
	if err != nil {
		return err
	}
	defer closer()

	return p.Watch(ctx, func(res *pipeline.Result, err error) {
		if err != nil {
			a.logger.Error("Run failed", "error", err)
			for _, hint := range errors.GetAllHints(err) {
				a.logger.Info("Hint: " + hint)
			}
			return
		}
		a.printSummary(res)
	})
}

// Upload sends the output file to the configured TriplyDB dataset.
func (a *App) Upload(ctx context.Context) (*triplydb.UploadResult, error) {
	if err := a.cfg.ValidateUpload(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(a.cfg.Output.Path); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "output %s", a.cfg.Output.Path),
			"run `stbgraph transform` first")
	}

	client := triplydb.NewClient(a.cfg.TriplyDB.URL, a.cfg.TriplyDB.Token,
		triplydb.WithPollInterval(a.cfg.TriplyDB.PollInterval.D()),
		triplydb.WithLogger(a.logger))

	res, err := client.Upload(ctx, triplydb.UploadRequest{
		Account:     a.cfg.TriplyDB.Account,
		Dataset:     a.cfg.TriplyDB.Dataset,
		AccessLevel: a.cfg.TriplyDB.AccessLevel,
		Files:       []string{a.cfg.Output.Path},
	})
	if err != nil {
		return nil, errors.Wrap(err, "upload to TriplyDB")
	}
	_, _ = fmt.Fprintf(a.out, "Dataset: %s\n", res.DatasetURL)
	return res, nil
}

// printSummary renders the counts of a run as a table.
func (a *App) printSummary(res *pipeline.Result) {
	data := pterm.TableData{
		{"Run", res.RunID},
		{"Inputs", strings.Join(res.Inputs, ", ")},
		{"Rows", fmt.Sprint(res.Rows)},
		{"Raw quads", fmt.Sprint(res.RawQuads)},
		{"Ontology quads", fmt.Sprint(res.OntologyQuads)},
		{"Inferred quads", fmt.Sprint(res.InferredQuads)},
		{"Total quads", fmt.Sprint(res.TotalQuads)},
		{"Expansion", fmt.Sprintf("%.2f×", res.ExpansionRatio)},
		{"Engine", res.Engine},
		{"Output", fmt.Sprintf("%s (%s)", res.OutputPath, res.Format)},
		{"Duration", res.Duration.Round(time.Millisecond).String()},
	}
	table, err := pterm.DefaultTable.WithBoxed().WithData(data).Srender()
	if err != nil {
		a.logger.Warn("Failed to render summary", "error", err)
		return
	}
	_, _ = fmt.Fprintln(a.out, table)
}

// writeDefaultConfig writes the default configuration to path unless a file
// already exists there.
func writeDefaultConfig(path string, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return errors.WithHint(
			errors.Newf("%s already exists", path),
			"remove it or pass another path")
	}
	if err := config.DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
