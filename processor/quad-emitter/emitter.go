// Package quademitter turns parsed STB rows into RDF statements.
//
// Each row describes one task together with the phase, theme, activity and
// optional document it belongs to. The emitter produces the statements for
// all of them, in a fixed order, as a lazy sequence. Shared entities (a phase
// referenced by many tasks) are emitted again for every referencing row.
package quademitter

import (
	"iter"

	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/source"
	"github.com/c360studio/stbgraph/vocabulary/stb"
)

// Emitter maps records to statements. It holds no per-row state and can be
// reused for any number of rows.
type Emitter struct {
	vocab   stb.Vocabulary
	rdfType graph.Term
	hasPart graph.Term
}

// New creates an Emitter minting IRIs from vocab.
func New(vocab stb.Vocabulary) *Emitter {
	return &Emitter{
		vocab:   vocab,
		rdfType: graph.IRI(graph.RDFType),
		hasPart: graph.IRI(stb.HasPart),
	}
}

// Emit returns the statements for rec. A header row yields nothing. Each call
// returns a fresh sequence; it stops as soon as the consumer stops.
func (e *Emitter) Emit(rec source.Record) iter.Seq[graph.Quad] {
	return func(yield func(graph.Quad) bool) {
		if rec.IsHeader() {
			return
		}

		v := e.vocab
		taak := v.Task(rec.TaskNumber.Value)
		fase := v.Phase(rec.PhaseNumber.Value)
		thema := v.Theme(rec.ThemeNumber.Value)
		activiteit := v.Activity(rec.ActivityNumber.Value)
		document := v.Document(rec.DocumentNumber.Value)

		emit := func(s graph.Term, pred string, o graph.Term) bool {
			return yield(graph.NewQuad(s, v.Predicate(pred), o))
		}
		typed := func(s graph.Term, class string) bool {
			return yield(graph.NewQuad(s, e.rdfType, v.Class(class)))
		}
		nl := func(c source.Cell) graph.Term {
			return graph.LangLiteral(c.Value, stb.DescriptionLang)
		}
		// str is for columns always written as xsd:string.
		str := func(c source.Cell) graph.Term {
			return graph.Literal(c.Value)
		}
		// plain follows the cell: numbers become xsd:integer or xsd:double.
		plain := func(c source.Cell) graph.Term {
			switch c.Kind {
			case source.CellInteger:
				return graph.TypedLiteral(c.Value, graph.XSDInteger)
			case source.CellDouble:
				return graph.TypedLiteral(c.Value, graph.XSDDouble)
			default:
				return graph.Literal(c.Value)
			}
		}

		// Task
		if !emit(taak, stb.Code, plain(rec.Code)) ||
			!emit(taak, stb.TaskNumber, str(rec.TaskNumber)) ||
			!typed(taak, stb.ClassTask) ||
			!emit(taak, stb.TaskDescription, nl(rec.TaskDescription)) {
			return
		}
		if rec.Necessity.Is(stb.NecessityRequired) && !emit(taak, stb.Necessity, graph.BoolLiteral(true)) {
			return
		}
		if rec.OrderInTheme.Truthy() && !emit(taak, stb.OrderInTheme, plain(rec.OrderInTheme)) {
			return
		}
		if rec.OrderInCluster.Truthy() && !emit(taak, stb.OrderInCluster, plain(rec.OrderInCluster)) {
			return
		}
		if rec.PartOfTaskCluster.Truthy() && !emit(taak, stb.PartOfTaskCluster, v.Task(rec.PartOfTaskCluster.Value)) {
			return
		}
		if rec.Necessity.Is(stb.NecessityMTask) && !emit(taak, stb.MTask, graph.BoolLiteral(true)) {
			return
		}
		if rec.Remark.Truthy() && !emit(taak, stb.Remark, nl(rec.Remark)) {
			return
		}

		// Fase
		if !emit(taak, stb.TaskPhase, fase) ||
			!typed(fase, stb.ClassPhase) ||
			!emit(fase, stb.PhaseNumber, str(rec.PhaseNumber)) ||
			!emit(fase, stb.PhaseDescription, nl(rec.PhaseDescription)) {
			return
		}

		// Thema
		if !emit(taak, stb.TaskTheme, thema) ||
			!typed(thema, stb.ClassTheme) ||
			!emit(thema, stb.ThemeNumber, str(rec.ThemeNumber)) ||
			!emit(thema, stb.ThemeDescription, plain(rec.ThemeDescription)) ||
			!yield(graph.NewQuad(fase, e.hasPart, thema)) ||
			!yield(graph.NewQuad(thema, e.hasPart, taak)) {
			return
		}

		// Activiteit
		if !emit(taak, stb.TaskActivity, activiteit) ||
			!typed(activiteit, stb.ClassActivity) ||
			!emit(activiteit, stb.ActivityNumber, str(rec.ActivityNumber)) ||
			!emit(activiteit, stb.ActivityOrder, plain(rec.ActivityOrder)) ||
			!emit(activiteit, stb.ActivityDescription, nl(rec.ActivityDescription)) {
			return
		}

		// Document
		if !rec.DocumentNumber.Truthy() {
			return
		}
		if !emit(taak, stb.TaskDocument, document) ||
			!typed(document, stb.ClassDocument) ||
			!emit(document, stb.DocumentNumber, str(rec.DocumentNumber)) ||
			!emit(document, stb.DocumentDescription, nl(rec.DocumentDescription)) ||
			!emit(document, stb.DocumentType, plain(rec.DocumentType)) {
			return
		}
		if rec.DocumentKind.Truthy() && !emit(document, stb.DocumentKind, plain(rec.DocumentKind)) {
			return
		}
		if rec.DocumentContent.Truthy() {
			emit(document, stb.DocumentContent, plain(rec.DocumentContent))
		}
	}
}

// EmitAll chains the statements of every record in recs.
func (e *Emitter) EmitAll(recs iter.Seq[source.Record]) iter.Seq[graph.Quad] {
	return func(yield func(graph.Quad) bool) {
		for rec := range recs {
			for q := range e.Emit(rec) {
				if !yield(q) {
					return
				}
			}
		}
	}
}
