// Package rules is an embedded forward-chaining engine for N3 rule sets.
//
// It covers the rule shapes used for RDFS entailment: conjunctive premises
// over triple patterns and conclusions built from the bound variables.
// Evaluation repeats until no rule adds a new statement.
package rules

import (
	"context"
	"log/slog"

	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/processor/reasoner"
	"github.com/cockroachdb/errors"
)

// EngineName identifies the embedded engine.
const EngineName = "builtin"

// DefaultMaxRounds bounds the number of evaluation rounds.
const DefaultMaxRounds = 64

// Engine evaluates N3 rules in process.
type Engine struct {
	maxRounds int
	logger    *slog.Logger
}

var _ reasoner.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRounds caps the number of evaluation rounds. Zero or less keeps the default.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxRounds: DefaultMaxRounds,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns EngineName.
func (e *Engine) Name() string {
	return EngineName
}

// Reason parses rules and returns the statements they entail that are not
// among facts. Graph labels of facts are ignored; results are in the
// default graph, in derivation order.
func (e *Engine) Reason(ctx context.Context, facts []graph.Quad, rules reasoner.RuleSet) ([]graph.Quad, error) {
	prog, err := Parse(rules.Text)
	if err != nil {
		return nil, errors.Wrapf(err, "parse rules %s", rules.Path)
	}
	return e.Evaluate(ctx, prog, facts)
}

// Evaluate runs prog to a fixpoint over facts.
func (e *Engine) Evaluate(ctx context.Context, prog *Program, facts []graph.Quad) ([]graph.Quad, error) {
	kb := newIndex()
	for _, q := range facts {
		kb.add(q.Triple())
	}
	for _, q := range prog.Facts {
		kb.add(q)
	}

	var derived []graph.Quad
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "inference canceled")
		}
		if round > e.maxRounds {
			return nil, errors.Newf("no fixpoint after %d rounds", e.maxRounds)
		}

		var added []graph.Quad
		for _, rule := range prog.Rules {
			kb.solve(rule.Premises, binding{}, func(b binding) {
				for _, c := range rule.Conclusions {
					q, ok := instantiate(c, b)
					if !ok || kb.has(q) {
						continue
					}
					kb.add(q)
					added = append(added, q)
				}
			})
		}

		e.logger.Debug("Inference round", "round", round, "added", len(added))
		if len(added) == 0 {
			return derived, nil
		}
		derived = append(derived, added...)
	}
}

// binding maps variable names to terms.
type binding map[string]graph.Term

func (b binding) with(name string, t graph.Term) binding {
	nb := make(binding, len(b)+1)
	for k, v := range b {
		nb[k] = v
	}
	nb[name] = t
	return nb
}

// resolve returns the term for n under b.
func (b binding) resolve(n Node) (graph.Term, bool) {
	if !n.IsVar() {
		return n.Term, true
	}
	t, ok := b[n.Var]
	return t, ok
}

// instantiate builds a statement from a conclusion pattern. Conclusions
// with unbound variables, a literal subject or a non-IRI predicate are not
// valid statements.
func instantiate(p Pattern, b binding) (graph.Quad, bool) {
	s, ok1 := b.resolve(p.S)
	pr, ok2 := b.resolve(p.P)
	o, ok3 := b.resolve(p.O)
	if !ok1 || !ok2 || !ok3 {
		return graph.Quad{}, false
	}
	if s.IsLiteral() || !pr.IsIRI() {
		return graph.Quad{}, false
	}
	return graph.NewQuad(s, pr, o), true
}

type predObj struct {
	p, o graph.Term
}

// index is the fact set with lookups by predicate and by predicate+object.
type index struct {
	all       []graph.Quad
	set       map[graph.Quad]struct{}
	byPred    map[graph.Term][]int
	byPredObj map[predObj][]int
}

func newIndex() *index {
	return &index{
		set:       make(map[graph.Quad]struct{}),
		byPred:    make(map[graph.Term][]int),
		byPredObj: make(map[predObj][]int),
	}
}

func (x *index) has(q graph.Quad) bool {
	_, ok := x.set[q]
	return ok
}

func (x *index) add(q graph.Quad) {
	if x.has(q) {
		return
	}
	i := len(x.all)
	x.all = append(x.all, q)
	x.set[q] = struct{}{}
	x.byPred[q.Predicate] = append(x.byPred[q.Predicate], i)
	key := predObj{q.Predicate, q.Object}
	x.byPredObj[key] = append(x.byPredObj[key], i)
}

// candidates returns the positions of facts that may match p under b. The
// slice is captured up front so facts added while solving are only seen in
// the next round.
func (x *index) candidates(p Pattern, b binding) []int {
	pred, pOK := b.resolve(p.P)
	obj, oOK := b.resolve(p.O)
	switch {
	case pOK && oOK:
		return x.byPredObj[predObj{pred, obj}]
	case pOK:
		return x.byPred[pred]
	default:
		ids := make([]int, len(x.all))
		for i := range ids {
			ids[i] = i
		}
		return ids
	}
}

// solve calls emit for every binding extending b that satisfies all patterns.
func (x *index) solve(patterns []Pattern, b binding, emit func(binding)) {
	if len(patterns) == 0 {
		emit(b)
		return
	}
	first, rest := patterns[0], patterns[1:]

	ids := x.candidates(first, b)
	ids = ids[:len(ids):len(ids)]
	for _, i := range ids {
		q := x.all[i]
		nb, ok := match(first, q, b)
		if !ok {
			continue
		}
		x.solve(rest, nb, emit)
	}
}

// match unifies p with q under b.
func match(p Pattern, q graph.Quad, b binding) (binding, bool) {
	nb := b
	for _, pair := range [3]struct {
		n Node
		t graph.Term
	}{{p.S, q.Subject}, {p.P, q.Predicate}, {p.O, q.Object}} {
		if !pair.n.IsVar() {
			if pair.n.Term != pair.t {
				return nil, false
			}
			continue
		}
		if bound, ok := nb[pair.n.Var]; ok {
			if bound != pair.t {
				return nil, false
			}
			continue
		}
		nb = nb.with(pair.n.Var, pair.t)
	}
	return nb, true
}
