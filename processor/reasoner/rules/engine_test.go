package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/processor/reasoner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rdfsRules = mustRead("../../../ontology/rdfs.n3")

func mustRead(path string) string {
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		panic(err)
	}
	return string(data)
}

var (
	rdfType       = graph.IRI(graph.RDFType)
	subClassOf    = graph.IRI(rdfsNS + "subClassOf")
	subPropertyOf = graph.IRI(rdfsNS + "subPropertyOf")
	domain        = graph.IRI(rdfsNS + "domain")
	rangeIRI      = graph.IRI(rdfsNS + "range")

	taak     = graph.IRI("urn:standaardtaakbeschrijving:id/taak/1")
	fase     = graph.IRI("urn:standaardtaakbeschrijving:id/fase/2")
	defTaak  = graph.IRI("urn:standaardtaakbeschrijving:def/Taak")
	defFase  = graph.IRI("urn:standaardtaakbeschrijving:def/Fase")
	onderdl  = graph.IRI("urn:standaardtaakbeschrijving:def/Onderdeel")
	predFase = graph.IRI("urn:standaardtaakbeschrijving:def/fase")
	predDesc = graph.IRI("urn:standaardtaakbeschrijving:def/taakomschrijving")
	predOms  = graph.IRI("urn:standaardtaakbeschrijving:def/omschrijving")
)

func reason(t *testing.T, facts []graph.Quad) []graph.Quad {
	t.Helper()
	out, err := New().Reason(context.Background(), facts, reasoner.RuleSet{Text: rdfsRules})
	require.NoError(t, err)
	return out
}

func TestRDFSEntailment(t *testing.T) {
	desc := graph.LangLiteral("Omschrijving", "nl")
	facts := []graph.Quad{
		graph.NewQuad(defTaak, subClassOf, onderdl),
		graph.NewQuad(predFase, domain, defTaak),
		graph.NewQuad(predFase, rangeIRI, defFase),
		graph.NewQuad(predDesc, subPropertyOf, predOms),
		graph.NewQuad(taak, predFase, fase),
		graph.NewQuad(taak, predDesc, desc),
	}

	out := reason(t, facts)

	assert.ElementsMatch(t, []graph.Quad{
		graph.NewQuad(taak, rdfType, defTaak),
		graph.NewQuad(fase, rdfType, defFase),
		graph.NewQuad(taak, rdfType, onderdl),
		graph.NewQuad(taak, predOms, desc),
	}, out)
}

func TestTransitiveSubClass(t *testing.T) {
	a, b, c, d := graph.IRI("urn:A"), graph.IRI("urn:B"), graph.IRI("urn:C"), graph.IRI("urn:D")
	facts := []graph.Quad{
		graph.NewQuad(a, subClassOf, b),
		graph.NewQuad(b, subClassOf, c),
		graph.NewQuad(c, subClassOf, d),
		graph.NewQuad(graph.IRI("urn:x"), rdfType, a),
	}

	out := reason(t, facts)

	for _, want := range []graph.Quad{
		graph.NewQuad(a, subClassOf, c),
		graph.NewQuad(a, subClassOf, d),
		graph.NewQuad(b, subClassOf, d),
		graph.NewQuad(graph.IRI("urn:x"), rdfType, b),
		graph.NewQuad(graph.IRI("urn:x"), rdfType, c),
		graph.NewQuad(graph.IRI("urn:x"), rdfType, d),
	} {
		assert.Contains(t, out, want)
	}
	assert.Len(t, out, 6)
}

func TestOnlyNewStatementsReturned(t *testing.T) {
	facts := []graph.Quad{
		graph.NewQuad(predFase, domain, defTaak),
		graph.NewQuad(taak, predFase, fase),
		// Already present, labelled with another graph.
		graph.NewQuad(taak, rdfType, defTaak).InGraph(graph.IRI("urn:inferred")),
	}
	assert.Empty(t, reason(t, facts))
}

func TestRangeOnLiteralSkipped(t *testing.T) {
	facts := []graph.Quad{
		graph.NewQuad(predDesc, rangeIRI, graph.IRI("urn:Tekst")),
		graph.NewQuad(taak, predDesc, graph.Literal("x")),
	}
	assert.Empty(t, reason(t, facts), "a literal cannot be typed")
}

func TestBackgroundFactsFromRules(t *testing.T) {
	rules := `
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
<urn:A> rdfs:subClassOf <urn:B> .
{ ?C rdfs:subClassOf ?D . ?S a ?C . } => { ?S a ?D . } .
`
	facts := []graph.Quad{graph.NewQuad(graph.IRI("urn:x"), rdfType, graph.IRI("urn:A"))}

	out, err := New().Reason(context.Background(), facts, reasoner.RuleSet{Text: rules})
	require.NoError(t, err)
	assert.Equal(t, []graph.Quad{graph.NewQuad(graph.IRI("urn:x"), rdfType, graph.IRI("urn:B"))}, out)
}

func TestReasonCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Reason(ctx, nil, reasoner.RuleSet{Text: rdfsRules})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReasonMalformedRules(t *testing.T) {
	_, err := New().Reason(context.Background(), nil, reasoner.RuleSet{Path: "bad.n3", Text: "{ ?s ?p ?o => { } ."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.n3")
}

func TestMaxRounds(t *testing.T) {
	// Each round adds one link of the chain.
	rules := `{ ?a <urn:next> ?b . ?b <urn:next> ?c . } => { ?a <urn:next> ?c . } .`
	var facts []graph.Quad
	for i := range 40 {
		facts = append(facts, graph.NewQuad(
			graph.IRI("urn:n"+string(rune('a'+i%26))+string(rune('a'+i/26))),
			graph.IRI("urn:next"),
			graph.IRI("urn:n"+string(rune('a'+(i+1)%26))+string(rune('a'+(i+1)/26))),
		))
	}

	_, err := New(WithMaxRounds(1)).Reason(context.Background(), facts, reasoner.RuleSet{Text: rules})
	assert.Error(t, err)

	out, err := New().Reason(context.Background(), facts, reasoner.RuleSet{Text: rules})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestEngineName(t *testing.T) {
	assert.Equal(t, "builtin", New().Name())
}
