// Package pipeline runs the STB transformation end to end: read the
// workbooks, emit statements, add the ontology, infer, and write the graph.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/stbgraph/config"
	"github.com/c360studio/stbgraph/export"
	"github.com/c360studio/stbgraph/graph"
	ontologyloader "github.com/c360studio/stbgraph/processor/ontology-loader"
	quademitter "github.com/c360studio/stbgraph/processor/quad-emitter"
	rdfexport "github.com/c360studio/stbgraph/processor/rdf-export"
	"github.com/c360studio/stbgraph/processor/reasoner"
	"github.com/c360studio/stbgraph/processor/reasoner/eye"
	"github.com/c360studio/stbgraph/processor/reasoner/rules"
	"github.com/c360studio/stbgraph/source"
	"github.com/c360studio/stbgraph/storage"
	"github.com/c360studio/stbgraph/vocabulary/stb"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Row kinds, used as metric labels.
const (
	RowTask   = "task"
	RowHeader = "header"
	RowBlank  = "blank"
)

// Result summarizes a finished run.
type Result struct {
	RunID  string
	Inputs []string

	// Rows is the number of task rows; header and blank rows are not counted.
	Rows int

	RawQuads      int
	OntologyQuads int
	InferredQuads int
	TotalQuads    int

	// ExpansionRatio is TotalQuads / RawQuads, zero when nothing was read.
	ExpansionRatio float64

	OutputPath  string
	Format      export.Format
	Engine      string
	CompletedAt time.Time
	Duration    time.Duration
}

// Event returns the completion message for r.
func (r *Result) Event() *graph.RunCompleted {
	return &graph.RunCompleted{
		RunID:          r.RunID,
		OutputPath:     r.OutputPath,
		Format:         string(r.Format),
		RawQuads:       r.RawQuads,
		OntologyQuads:  r.OntologyQuads,
		InferredQuads:  r.InferredQuads,
		TotalQuads:     r.TotalQuads,
		ExpansionRatio: r.ExpansionRatio,
		CompletedAt:    r.CompletedAt,
	}
}

// Pipeline runs the transformation for one configuration. Runs are
// sequential; a Pipeline must not be run concurrently.
type Pipeline struct {
	cfg       *config.Config
	vocab     stb.Vocabulary
	sink      *rdfexport.Sink
	engine    reasoner.Engine
	publisher graph.Publisher
	metrics   *Metrics
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEngine replaces the engine selected by the configuration.
func WithEngine(engine reasoner.Engine) Option {
	return func(p *Pipeline) {
		p.engine = engine
	}
}

// WithPublisher sets where the completion event goes. Without one no event
// is published.
func WithPublisher(pub graph.Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// WithMetrics records runs in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	p := &Pipeline{
		cfg:    cfg,
		vocab:  stb.NewVocabulary(cfg.Namespaces),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	sink, err := rdfexport.NewSink(rdfexport.Config{
		Path:   cfg.Output.Path,
		Format: cfg.Output.Format,
	}, p.logger)
	if err != nil {
		return nil, err
	}
	p.sink = sink

	if p.engine == nil {
		engine, err := NewEngine(cfg.Reasoner, p.logger)
		if err != nil {
			return nil, err
		}
		p.engine = engine
	}
	return p, nil
}

// NewEngine returns the inference engine named in cfg.
func NewEngine(cfg config.ReasonerConfig, logger *slog.Logger) (reasoner.Engine, error) {
	switch cfg.Engine {
	case "", config.EngineBuiltin:
		return rules.New(rules.WithLogger(logger)), nil
	case config.EngineEye:
		return eye.New(
			eye.WithBinary(cfg.EyePath),
			eye.WithArgs(cfg.EyeArgs...),
			eye.WithLogger(logger),
		), nil
	default:
		return nil, errors.Newf("unknown reasoner engine %q", cfg.Engine)
	}
}

// Output returns the path of the written graph.
func (p *Pipeline) Output() string {
	return p.sink.Path()
}

// Run executes one transformation.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	started := time.Now()
	res = &Result{
		RunID:      uuid.NewString(),
		OutputPath: p.sink.Path(),
		Format:     p.sink.Format(),
		Engine:     p.engine.Name(),
	}
	logger := p.logger.With("run_id", res.RunID)
	defer func() {
		if err != nil {
			p.metrics.RunFailed()
		}
	}()

	res.Inputs, err = source.Resolve(p.cfg.Source.Path)
	if err != nil {
		return nil, errors.WithHint(err, "check source.path in the configuration")
	}
	ruleSet, err := reasoner.LoadRuleSet(p.cfg.Rules.Path)
	if err != nil {
		return nil, err
	}

	store, err := p.openStore()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close store")
		}
	}()

	// Read
	stageStart := time.Now()
	emitter := quademitter.New(p.vocab)
	for _, path := range res.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run canceled")
		}
		rows, err := p.readWorkbook(path, emitter, store)
		if err != nil {
			return nil, err
		}
		logger.Debug("Read workbook", "path", path, "rows", rows)
		res.Rows += rows
	}
	if res.RawQuads, err = store.Count(); err != nil {
		return nil, errors.Wrap(err, "count statements")
	}
	p.metrics.ObserveStage(StageRead, time.Since(stageStart))
	logger.Info("Raw: # quads", "quads", res.RawQuads, "rows", res.Rows)

	// Ontology
	stageStart = time.Now()
	if res.OntologyQuads, err = ontologyloader.Load(p.cfg.Ontology.Path, store); err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(StageOntology, time.Since(stageStart))

	// Reason
	stageStart = time.Now()
	r := reasoner.New(p.engine, logger, reasoner.WithInferredGraph(p.vocab.InferredGraph()))
	if res.InferredQuads, err = r.Infer(ctx, store, ruleSet); err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(StageReason, time.Since(stageStart))

	if res.TotalQuads, err = store.Count(); err != nil {
		return nil, errors.Wrap(err, "count statements")
	}
	res.ExpansionRatio = ExpansionRatio(res.RawQuads, res.TotalQuads)
	logger.Info("With reasoning: # quads", "quads", res.TotalQuads)
	logger.Info("Expansion ratio", "ratio", fmt.Sprintf("%.2f×", res.ExpansionRatio))

	// Write
	stageStart = time.Now()
	if _, err := p.sink.Write(store); err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(StageWrite, time.Since(stageStart))

	res.CompletedAt = time.Now().UTC()
	res.Duration = time.Since(started)
	p.metrics.SetResult(res)
	if err := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		return nil, err
	}

	// Publish
	stageStart = time.Now()
	if err := graph.PublishRunCompleted(ctx, p.publisher, p.cfg.NATS.Subject, res.Event()); err != nil {
		return nil, err
	}
	if p.publisher != nil {
		p.metrics.ObserveStage(StagePublish, time.Since(stageStart))
	}

	logger.Info("Run complete",
		"output", res.OutputPath,
		"inferred", res.InferredQuads,
		"duration", res.Duration)
	return res, nil
}

// ExpansionRatio returns total/raw, or zero when raw is zero.
func ExpansionRatio(raw, total int) float64 {
	if raw == 0 {
		return 0
	}
	return float64(total) / float64(raw)
}

func (p *Pipeline) openStore() (graph.Store, error) {
	switch p.cfg.Store.Backend {
	case config.BackendSQLite:
		store, err := storage.OpenSQLite(p.cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		// A file-backed store starts every run empty.
		if err := store.Reset(); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return graph.NewMemoryStore(), nil
	}
}

// readWorkbook emits the statements of every row of the configured sheet
// into store and returns the number of task rows.
func (p *Pipeline) readWorkbook(path string, emitter *quademitter.Emitter, store graph.Store) (rows int, err error) {
	wb, err := source.OpenWorkbook(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close workbook %s", path)
		}
	}()

	var readErr error
	var header, blank int
	records := func(yield func(source.Record) bool) {
		for cells, err := range wb.Rows(p.cfg.Source.Sheet) {
			if err != nil {
				readErr = err
				return
			}
			rec := source.ParseValues(cells)
			switch {
			case rec.IsHeader():
				header++
				continue
			case rec.IsBlank():
				blank++
				continue
			}
			rows++
			if !yield(rec) {
				return
			}
		}
	}

	_, err = store.Append(emitter.EmitAll(records))
	if readErr != nil {
		if errors.Is(readErr, source.ErrSheetNotFound) {
			readErr = errors.WithHintf(readErr, "%s has sheets %q; check source.sheet", path, wb.Sheets())
		}
		return 0, errors.Wrapf(readErr, "read %s", path)
	}
	if err != nil {
		return 0, errors.Wrap(err, "store statements")
	}

	p.metrics.AddRows(RowTask, rows)
	p.metrics.AddRows(RowHeader, header)
	p.metrics.AddRows(RowBlank, blank)
	return rows, nil
}

// Watch runs the pipeline once, then again after every content change of
// the workbooks, the ontology or the rules. Each result is passed to report;
// a failing run does not stop watching. Watch returns when ctx is done.
func (p *Pipeline) Watch(ctx context.Context, report func(*Result, error)) error {
	report(p.Run(ctx))

	w, err := NewWatcher(
		[]string{p.cfg.Source.Path, p.cfg.Ontology.Path, p.cfg.Rules.Path},
		p.cfg.Watch.Debounce.D(),
		p.logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return err
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case changes, ok := <-w.Changes():
			if !ok {
				return nil
			}
			for _, c := range changes {
				p.logger.Info("Input changed", "path", c.Path, "op", c.Operation)
			}
			res, err := p.Run(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			report(res, err)
		}
	}
}
