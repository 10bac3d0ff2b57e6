package rdfexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/stbgraph/export"
	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/source"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore() *graph.MemoryStore {
	taak := graph.IRI("urn:standaardtaakbeschrijving:id/taak/1")
	s := graph.NewMemoryStore()
	s.Add(
		graph.NewQuad(taak, graph.IRI(graph.RDFType), graph.IRI("urn:standaardtaakbeschrijving:def/Taak")),
		graph.NewQuad(taak, graph.IRI("urn:standaardtaakbeschrijving:def/code"), graph.Literal("T1")),
		graph.NewQuad(taak, graph.IRI("urn:standaardtaakbeschrijving:def/taakomschrijving"), graph.LangLiteral("Omschrijving met \"quotes\"\tand tab", "nl")),
		graph.NewQuad(taak, graph.IRI("urn:standaardtaakbeschrijving:def/noodzaak"), graph.BoolLiteral(true)),
		graph.NewQuad(taak, graph.IRI("urn:standaardtaakbeschrijving:def/code"), graph.Literal("T1")),
		graph.NewQuad(taak, graph.IRI(graph.RDFType), graph.IRI("http://www.w3.org/2000/01/rdf-schema#Resource")).
			InGraph(graph.IRI("urn:inferred")),
	)
	return s
}

// counts turns a statement list into a multiset.
func counts(quads []graph.Quad) map[string]int {
	m := make(map[string]int, len(quads))
	for _, q := range quads {
		m[q.String()]++
	}
	return m
}

func TestWriteFileRoundTrip(t *testing.T) {
	store := sampleStore()
	path := filepath.Join(t.TempDir(), "out", "transformed.nq")

	n, err := WriteFile(path, store, export.FormatNQuads)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var decoded []graph.Quad
	for q, err := range source.DecodeNQuads(f) {
		require.NoError(t, err)
		decoded = append(decoded, q)
	}

	want, err := graph.Collect(store)
	require.NoError(t, err)
	if diff := cmp.Diff(counts(want), counts(decoded)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFileNTriples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nt")

	_, err := WriteFile(path, sampleStore(), export.FormatNTriples)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "urn:inferred")
	assert.Equal(t, 6, strings.Count(string(data), "\n"))
}

func TestWriteFileUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := WriteFile(filepath.Join(blocker, "out.nq"), sampleStore(), export.FormatNQuads)
	assert.Error(t, err)
}

func TestSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.ttl")

	sink, err := NewSink(Config{Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, export.FormatTurtle, sink.Format(), "format follows the extension")

	n, err := sink.Write(sampleStore())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "@prefix"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"empty path", Config{Format: "nquads"}, true},
		{"bad format", Config{Path: "x.nq", Format: "jsonld"}, true},
		{"format from extension", Config{Path: "x.nt"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := Config{Path: "x.nt"}
	assert.Equal(t, export.FormatNTriples, cfg.GetFormat())
	defCfg := DefaultConfig()
	assert.Equal(t, export.FormatNQuads, defCfg.GetFormat())
}
