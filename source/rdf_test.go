package source

import (
	"strings"
	"testing"

	"github.com/c360studio/stbgraph/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const turtleDoc = `@prefix stb: <urn:standaardtaakbeschrijving:def/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

stb:Taak a rdfs:Class ;
    rdfs:label "Taak"@nl .
stb:fase rdfs:domain stb:Taak .
`

func TestDecodeTurtle(t *testing.T) {
	var got []graph.Quad
	for q, err := range DecodeTurtle(strings.NewReader(turtleDoc)) {
		require.NoError(t, err)
		got = append(got, q)
	}

	require.Len(t, got, 3)
	assert.Contains(t, got, graph.NewQuad(
		graph.IRI("urn:standaardtaakbeschrijving:def/Taak"),
		graph.IRI(graph.RDFType),
		graph.IRI("http://www.w3.org/2000/01/rdf-schema#Class"),
	))
	assert.Contains(t, got, graph.NewQuad(
		graph.IRI("urn:standaardtaakbeschrijving:def/Taak"),
		graph.IRI("http://www.w3.org/2000/01/rdf-schema#label"),
		graph.LangLiteral("Taak", "nl"),
	))
	for _, q := range got {
		assert.True(t, q.IsDefaultGraph())
	}
}

func TestDecodeTurtleMalformed(t *testing.T) {
	var decodeErr error
	for _, err := range DecodeTurtle(strings.NewReader("stb:Taak a ;;; .")) {
		if err != nil {
			decodeErr = err
			break
		}
	}
	assert.Error(t, decodeErr)
}

func TestDecodeNQuads(t *testing.T) {
	doc := strings.Join([]string{
		`<urn:s> <urn:p> "1"^^<http://www.w3.org/2001/XMLSchema#string> .`,
		`<urn:s> <urn:p> "true"^^<http://www.w3.org/2001/XMLSchema#boolean> <urn:inferred> .`,
	}, "\n") + "\n"

	var got []graph.Quad
	for q, err := range DecodeNQuads(strings.NewReader(doc)) {
		require.NoError(t, err)
		got = append(got, q)
	}

	require.Len(t, got, 2)
	assert.Equal(t, graph.Literal("1"), got[0].Object)
	assert.True(t, got[0].IsDefaultGraph())
	assert.Equal(t, graph.BoolLiteral(true), got[1].Object)
	assert.Equal(t, graph.IRI("urn:inferred"), got[1].Graph)
}
