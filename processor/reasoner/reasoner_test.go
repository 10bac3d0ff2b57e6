package reasoner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/stbgraph/graph"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine returns a fixed answer.
type stubEngine struct {
	out   []graph.Quad
	err   error
	facts []graph.Quad
	rules RuleSet
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Reason(_ context.Context, facts []graph.Quad, rules RuleSet) ([]graph.Quad, error) {
	e.facts = facts
	e.rules = rules
	return e.out, e.err
}

var (
	s       = graph.IRI("urn:s")
	rdfType = graph.IRI(graph.RDFType)
	fact    = graph.NewQuad(s, graph.IRI("urn:p"), graph.Literal("o"))
)

func TestInferRetagsAndDeduplicates(t *testing.T) {
	derivedA := graph.NewQuad(s, rdfType, graph.IRI("urn:A"))
	derivedB := graph.NewQuad(s, rdfType, graph.IRI("urn:B")).InGraph(graph.IRI("urn:engine-graph"))

	engine := &stubEngine{out: []graph.Quad{derivedA, derivedB, derivedA}}
	store := graph.NewMemoryStore()
	store.Add(fact)

	rules := RuleSet{Text: "{ ?s ?p ?o } => { ?s ?p ?o } ."}
	n, err := New(engine, nil).Infer(context.Background(), store, rules)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []graph.Quad{fact}, engine.facts)
	assert.Equal(t, rules, engine.rules)

	got, err := graph.Collect(store)
	require.NoError(t, err)
	inferred := graph.IRI("urn:inferred")
	assert.Equal(t, []graph.Quad{
		fact,
		derivedA.InGraph(inferred),
		derivedB.InGraph(inferred),
	}, got)
}

func TestInferCustomGraph(t *testing.T) {
	engine := &stubEngine{out: []graph.Quad{graph.NewQuad(s, rdfType, graph.IRI("urn:A"))}}
	store := graph.NewMemoryStore()

	g := graph.IRI("https://example.org/graphs/inferred")
	_, err := New(engine, nil, WithInferredGraph(g)).Infer(context.Background(), store, RuleSet{})
	require.NoError(t, err)

	got, err := graph.Collect(store)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, g, got[0].Graph)
}

func TestInferEngineFailure(t *testing.T) {
	engine := &stubEngine{
		out: []graph.Quad{graph.NewQuad(s, rdfType, graph.IRI("urn:A"))},
		err: errors.New("syntax error in rules"),
	}
	store := graph.NewMemoryStore()
	store.Add(fact)

	_, err := New(engine, nil).Infer(context.Background(), store, RuleSet{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineFailed))
	assert.Contains(t, err.Error(), "syntax error in rules")

	n, _ := store.Count()
	assert.Equal(t, 1, n, "nothing merged on failure")
}

func TestInferNothingDerived(t *testing.T) {
	store := graph.NewMemoryStore()
	store.Add(fact)

	n, err := New(&stubEngine{}, nil).Infer(context.Background(), store, RuleSet{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.n3")
	text := "@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, RuleSet{Path: path, Text: text}, rs)

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.n3"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}
