// Package ontologyloader adds the STB ontology to a graph store.
package ontologyloader

import (
	"iter"
	"os"

	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/source"
	"github.com/cockroachdb/errors"
)

// DefaultPath is the location of the STB ontology.
const DefaultPath = "ontology/stb.ttl"

// Load parses the Turtle document at path and appends its statements to
// store in the default graph. It returns the number of statements added.
// Nothing is added when the document fails to parse.
func Load(path string, store graph.Store) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.WithHint(
			errors.Wrapf(err, "open ontology %s", path),
			"check ontology.path in the configuration")
	}
	defer f.Close()

	var quads []graph.Quad
	for q, err := range source.DecodeTurtle(f) {
		if err != nil {
			return 0, errors.Wrapf(err, "parse ontology %s", path)
		}
		quads = append(quads, q)
	}

	n, err := store.Append(defaultGraph(quads))
	if err != nil {
		return n, errors.Wrap(err, "store ontology")
	}
	return n, nil
}

func defaultGraph(quads []graph.Quad) iter.Seq[graph.Quad] {
	return func(yield func(graph.Quad) bool) {
		for _, q := range quads {
			if !yield(q.Triple()) {
				return
			}
		}
	}
}
