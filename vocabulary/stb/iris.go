package stb

import (
	"net/url"
	"strings"

	"github.com/c360studio/stbgraph/graph"
)

// Default namespaces of the STB ontology and its instances.
const (
	// DefaultDefinitionNamespace is the base IRI for classes and predicates.
	DefaultDefinitionNamespace = "urn:standaardtaakbeschrijving:def/"

	// DefaultIdentifierNamespace is the base IRI for entity instances.
	DefaultIdentifierNamespace = "urn:standaardtaakbeschrijving:id/"

	// DefaultInferredGraph labels statements derived by the reasoner.
	DefaultInferredGraph = "urn:inferred"
)

// NEN2660Namespace is the base IRI of the NEN 2660 containment vocabulary.
const NEN2660Namespace = "https://w3id.org/nen2660/def#"

// HasPart links a whole to one of its parts (Phase→Theme, Theme→Task).
const HasPart = NEN2660Namespace + "hasPart"

// Identifier path segments, one per entity kind.
const (
	segmentTask     = "taak/"
	segmentPhase    = "fase/"
	segmentTheme    = "thema/"
	segmentActivity = "act/"
	segmentDocument = "doc/"
)

// Namespaces holds the configurable IRI prefixes.
type Namespaces struct {
	Definitions   string `yaml:"definitions" toml:"definitions" mapstructure:"definitions"`
	Identifiers   string `yaml:"identifiers" toml:"identifiers" mapstructure:"identifiers"`
	InferredGraph string `yaml:"inferred_graph" toml:"inferred_graph" mapstructure:"inferred_graph"`
}

// DefaultNamespaces returns the namespaces used by the published STB dataset.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Definitions:   DefaultDefinitionNamespace,
		Identifiers:   DefaultIdentifierNamespace,
		InferredGraph: DefaultInferredGraph,
	}
}

// Vocabulary mints IRIs for a fixed set of namespaces. It is a value type and
// safe to share.
type Vocabulary struct {
	ns Namespaces
}

// NewVocabulary returns a Vocabulary for ns. Empty fields fall back to the defaults.
func NewVocabulary(ns Namespaces) Vocabulary {
	def := DefaultNamespaces()
	if ns.Definitions == "" {
		ns.Definitions = def.Definitions
	}
	if ns.Identifiers == "" {
		ns.Identifiers = def.Identifiers
	}
	if ns.InferredGraph == "" {
		ns.InferredGraph = def.InferredGraph
	}
	return Vocabulary{ns: ns}
}

// Namespaces returns the namespaces the vocabulary was built with.
func (v Vocabulary) Namespaces() Namespaces {
	return v.ns
}

// Class returns the IRI of an ontology class, e.g. Class(ClassTask).
func (v Vocabulary) Class(name string) graph.Term {
	return graph.IRI(v.ns.Definitions + name)
}

// Predicate returns the IRI of an ontology predicate.
func (v Vocabulary) Predicate(name string) graph.Term {
	return graph.IRI(v.ns.Definitions + name)
}

// InferredGraph returns the graph label for reasoner output.
func (v Vocabulary) InferredGraph() graph.Term {
	return graph.IRI(v.ns.InferredGraph)
}

// Task returns the identifier of the task with the given number.
func (v Vocabulary) Task(taaknr string) graph.Term {
	return v.instance(segmentTask, taaknr)
}

// Phase returns the identifier of the phase with the given number.
func (v Vocabulary) Phase(fasenr string) graph.Term {
	return v.instance(segmentPhase, fasenr)
}

// Theme returns the identifier of the theme with the given number.
func (v Vocabulary) Theme(themanr string) graph.Term {
	return v.instance(segmentTheme, themanr)
}

// Activity returns the identifier of the activity with the given number.
func (v Vocabulary) Activity(activiteitnr string) graph.Term {
	return v.instance(segmentActivity, activiteitnr)
}

// Document returns the identifier of the document with the given number.
func (v Vocabulary) Document(documentnr string) graph.Term {
	return v.instance(segmentDocument, documentnr)
}

// instance builds namespace + segment + key. The key is path-escaped so keys
// containing spaces or reserved characters still form a valid IRI.
func (v Vocabulary) instance(segment, key string) graph.Term {
	return graph.IRI(v.ns.Identifiers + segment + url.PathEscape(strings.TrimSpace(key)))
}
