// Package reasoner runs rule-based inference over a graph store.
//
// An Engine receives the current statements and a rule set and returns the
// statements it could derive. The Reasoner labels every derived statement
// with the inferred graph and merges it back into the store. Two engines are
// provided: an embedded forward chainer (package rules) and an adapter for
// the EYE reasoner (package eye).
package reasoner

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/vocabulary/stb"
	"github.com/cockroachdb/errors"
)

// DefaultRulesPath is the location of the RDFS rule set.
const DefaultRulesPath = "ontology/rdfs.n3"

// ErrEngineFailed marks errors raised by an inference engine.
var ErrEngineFailed = errors.New("inference engine failed")

// RuleSet is an N3 rule document.
type RuleSet struct {
	// Path is where the rules were read from, if anywhere.
	Path string

	// Text is the document content, kept verbatim.
	Text string
}

// LoadRuleSet reads the rule document at path.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, errors.WithHint(
			errors.Wrapf(err, "read rules %s", path),
			"check rules.path in the configuration")
	}
	return RuleSet{Path: path, Text: string(data)}, nil
}

// Engine derives statements from facts and rules.
type Engine interface {
	// Name identifies the engine in logs and errors.
	Name() string

	// Reason returns the statements entailed by facts and rules. Graph
	// labels on the result are ignored by the caller.
	Reason(ctx context.Context, facts []graph.Quad, rules RuleSet) ([]graph.Quad, error)
}

// Reasoner merges engine output into a store.
type Reasoner struct {
	engine   Engine
	logger   *slog.Logger
	inferred graph.Term
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithInferredGraph sets the graph label of derived statements.
func WithInferredGraph(g graph.Term) Option {
	return func(r *Reasoner) {
		r.inferred = g
	}
}

// New creates a Reasoner. A nil logger uses slog.Default().
func New(engine Engine, logger *slog.Logger, opts ...Option) *Reasoner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reasoner{
		engine:   engine,
		logger:   logger,
		inferred: graph.IRI(stb.DefaultInferredGraph),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Infer runs the engine once over the full store content and appends the
// derived statements, each labelled with the inferred graph and each at
// most once. It returns the number of statements added. On engine failure
// the store is left untouched.
func (r *Reasoner) Infer(ctx context.Context, store graph.Store, rules RuleSet) (int, error) {
	facts, err := graph.Collect(store)
	if err != nil {
		return 0, errors.Wrap(err, "read facts")
	}

	start := time.Now()
	derived, err := r.engine.Reason(ctx, facts, rules)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "%s engine", r.engine.Name()), ErrEngineFailed)
	}

	batch := Retag(derived, r.inferred)
	n, err := store.Append(graph.Values(batch))
	if err != nil {
		return n, errors.Wrap(err, "store inferred statements")
	}

	r.logger.Debug("Inference complete",
		"engine", r.engine.Name(),
		"facts", len(facts),
		"returned", len(derived),
		"added", n,
		"duration", time.Since(start))
	return n, nil
}

// Retag moves every statement to graph g and drops repeats, keeping the
// first occurrence order.
func Retag(quads []graph.Quad, g graph.Term) []graph.Quad {
	seen := make(map[graph.Quad]struct{}, len(quads))
	out := make([]graph.Quad, 0, len(quads))
	for _, q := range quads {
		q = q.InGraph(g)
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
