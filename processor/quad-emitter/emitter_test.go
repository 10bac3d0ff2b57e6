package quademitter

import (
	"slices"
	"testing"

	"github.com/c360studio/stbgraph/graph"
	"github.com/c360studio/stbgraph/source"
	"github.com/c360studio/stbgraph/vocabulary/stb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var endToEndRow = []string{"T1", "1", "Desc", "2", "PhaseDesc", "3", "ThemeDesc", "N", "1", "1", "", "", "", "", "5", "1", "ActDesc", "", "", "", "", ""}

func newEmitter() (*Emitter, stb.Vocabulary) {
	vocab := stb.NewVocabulary(stb.DefaultNamespaces())
	return New(vocab), vocab
}

func emitRow(t *testing.T, cells []string) []graph.Quad {
	t.Helper()
	e, _ := newEmitter()
	return slices.Collect(e.Emit(source.ParseRow(cells)))
}

// withRow copies endToEndRow and sets the given columns.
func withRow(overrides map[int]string) []string {
	row := slices.Clone(endToEndRow)
	for i, v := range overrides {
		row[i] = v
	}
	return row
}

func count(quads []graph.Quad, pred graph.Term) int {
	n := 0
	for _, q := range quads {
		if q.Predicate == pred {
			n++
		}
	}
	return n
}

func TestEmitEndToEndRow(t *testing.T) {
	_, v := newEmitter()
	quads := emitRow(t, endToEndRow)

	taak := v.Task("1")
	fase := v.Phase("2")
	thema := v.Theme("3")
	act := v.Activity("5")
	hasPart := graph.IRI(stb.HasPart)
	rdfType := graph.IRI(graph.RDFType)

	want := []graph.Quad{
		graph.NewQuad(taak, v.Predicate(stb.Code), graph.Literal("T1")),
		graph.NewQuad(taak, rdfType, v.Class(stb.ClassTask)),
		graph.NewQuad(taak, v.Predicate(stb.Necessity), graph.BoolLiteral(true)),
		graph.NewQuad(taak, v.Predicate(stb.TaskPhase), fase),
		graph.NewQuad(taak, v.Predicate(stb.TaskTheme), thema),
		graph.NewQuad(taak, v.Predicate(stb.TaskActivity), act),
		graph.NewQuad(fase, hasPart, thema),
		graph.NewQuad(thema, hasPart, taak),
		graph.NewQuad(fase, rdfType, v.Class(stb.ClassPhase)),
		graph.NewQuad(thema, rdfType, v.Class(stb.ClassTheme)),
		graph.NewQuad(act, rdfType, v.Class(stb.ClassActivity)),
		graph.NewQuad(fase, v.Predicate(stb.PhaseDescription), graph.LangLiteral("PhaseDesc", "nl")),
		graph.NewQuad(thema, v.Predicate(stb.ThemeDescription), graph.Literal("ThemeDesc")),
		graph.NewQuad(act, v.Predicate(stb.ActivityDescription), graph.LangLiteral("ActDesc", "nl")),
	}
	for _, q := range want {
		assert.Contains(t, quads, q)
	}

	assert.Len(t, quads, 22)
	assert.Zero(t, count(quads, v.Predicate(stb.MTask)))
	assert.Zero(t, count(quads, v.Predicate(stb.TaskDocument)))
	for _, q := range quads {
		assert.True(t, q.IsDefaultGraph(), "unexpected graph on %s", q)
		assert.NotEqual(t, v.Class(stb.ClassDocument), q.Object)
	}
}

func TestEmitOrderStartsWithTask(t *testing.T) {
	_, v := newEmitter()
	quads := emitRow(t, endToEndRow)

	require.GreaterOrEqual(t, len(quads), 4)
	assert.Equal(t, v.Predicate(stb.Code), quads[0].Predicate)
	assert.Equal(t, v.Predicate(stb.TaskNumber), quads[1].Predicate)
	assert.Equal(t, graph.IRI(graph.RDFType), quads[2].Predicate)
	assert.Equal(t, v.Predicate(stb.TaskDescription), quads[3].Predicate)
}

func TestEmitHeaderRow(t *testing.T) {
	header := []string{"code", "taaknr", "taakomschrijving"}
	assert.Empty(t, emitRow(t, header))
}

func TestEmitNecessity(t *testing.T) {
	_, v := newEmitter()

	tests := []struct {
		noodzaak  string
		necessity int
		mtaak     int
	}{
		{"N", 1, 0},
		{"M", 0, 1},
		{"", 0, 0},
		{"X", 0, 0},
		{"n", 0, 0},
	}
	for _, tt := range tests {
		t.Run("noodzaak="+tt.noodzaak, func(t *testing.T) {
			quads := emitRow(t, withRow(map[int]string{7: tt.noodzaak}))
			assert.Equal(t, tt.necessity, count(quads, v.Predicate(stb.Necessity)))
			assert.Equal(t, tt.mtaak, count(quads, v.Predicate(stb.MTask)))
		})
	}
}

func TestEmitDocument(t *testing.T) {
	_, v := newEmitter()

	t.Run("absent", func(t *testing.T) {
		quads := emitRow(t, endToEndRow)
		for _, q := range quads {
			assert.NotEqual(t, v.Document(""), q.Subject)
			assert.NotEqual(t, v.Predicate(stb.TaskDocument), q.Predicate)
		}
	})

	t.Run("present", func(t *testing.T) {
		quads := emitRow(t, withRow(map[int]string{17: "D7", 18: "Plan van aanpak", 19: "rapport"}))
		doc := v.Document("D7")

		assert.Contains(t, quads, graph.NewQuad(v.Task("1"), v.Predicate(stb.TaskDocument), doc))
		assert.Contains(t, quads, graph.NewQuad(doc, graph.IRI(graph.RDFType), v.Class(stb.ClassDocument)))
		assert.Contains(t, quads, graph.NewQuad(doc, v.Predicate(stb.DocumentNumber), graph.Literal("D7")))
		assert.Contains(t, quads, graph.NewQuad(doc, v.Predicate(stb.DocumentDescription), graph.LangLiteral("Plan van aanpak", "nl")))
		assert.Contains(t, quads, graph.NewQuad(doc, v.Predicate(stb.DocumentType), graph.Literal("rapport")))
		assert.Zero(t, count(quads, v.Predicate(stb.DocumentKind)))
		assert.Zero(t, count(quads, v.Predicate(stb.DocumentContent)))
		assert.Len(t, quads, 22+5)
	})

	t.Run("with kind and content", func(t *testing.T) {
		quads := emitRow(t, withRow(map[int]string{17: "D7", 20: "extern", 21: "tekening"}))
		assert.Equal(t, 1, count(quads, v.Predicate(stb.DocumentKind)))
		assert.Equal(t, 1, count(quads, v.Predicate(stb.DocumentContent)))
		// An absent documenttype still yields its statement, with an empty value.
		assert.Contains(t, quads, graph.NewQuad(v.Document("D7"), v.Predicate(stb.DocumentType), graph.Literal("")))
	})
}

func TestEmitOptionalTaskFields(t *testing.T) {
	_, v := newEmitter()
	quads := emitRow(t, withRow(map[int]string{8: "", 9: "", 11: "T0", 13: "zie bijlage"}))

	assert.Zero(t, count(quads, v.Predicate(stb.OrderInTheme)))
	assert.Zero(t, count(quads, v.Predicate(stb.OrderInCluster)))
	assert.Contains(t, quads, graph.NewQuad(v.Task("1"), v.Predicate(stb.PartOfTaskCluster), v.Task("T0")))
	assert.Contains(t, quads, graph.NewQuad(v.Task("1"), v.Predicate(stb.Remark), graph.LangLiteral("zie bijlage", "nl")))
}

func TestEmitStopsEarly(t *testing.T) {
	e, _ := newEmitter()

	n := 0
	for range e.Emit(source.ParseRow(endToEndRow)) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestEmitIsRestartable(t *testing.T) {
	e, _ := newEmitter()
	seq := e.Emit(source.ParseRow(endToEndRow))

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
}

func TestEmitAllTaskCount(t *testing.T) {
	e, v := newEmitter()

	rows := [][]string{
		{"code", "taaknr"},
		withRow(map[int]string{1: "1"}),
		withRow(map[int]string{1: "2"}),
		withRow(map[int]string{1: "3", 17: "D1"}),
	}
	recs := func(yield func(source.Record) bool) {
		for _, r := range rows {
			if !yield(source.ParseRow(r)) {
				return
			}
		}
	}

	quads := slices.Collect(e.EmitAll(recs))

	tasks := 0
	phases := 0
	for _, q := range quads {
		if q.Predicate.Value == graph.RDFType && q.Object == v.Class(stb.ClassTask) {
			tasks++
		}
		if q.Subject == v.Phase("2") && q.Predicate.Value == graph.RDFType {
			phases++
		}
	}
	assert.Equal(t, 3, tasks, "one task type per data row")
	assert.Equal(t, 3, phases, "shared phase repeated per row")
}

func TestEmitNumericCells(t *testing.T) {
	e, v := newEmitter()
	vals := source.TextValues(endToEndRow)
	vals[1] = source.NumberValue(1)
	vals[8] = source.NumberValue(0)
	vals[9] = source.NumberValue(7)
	vals[15] = source.NumberValue(1.5)
	vals[17] = source.NumberValue(0)

	quads := slices.Collect(e.Emit(source.ParseValues(vals)))
	taak := v.Task("1")

	assert.Zero(t, count(quads, v.Predicate(stb.OrderInTheme)), "numeric zero counts as absent")
	assert.Contains(t, quads, graph.NewQuad(taak, v.Predicate(stb.OrderInCluster), graph.TypedLiteral("7", graph.XSDInteger)))
	assert.Contains(t, quads, graph.NewQuad(v.Activity("5"), v.Predicate(stb.ActivityOrder), graph.TypedLiteral("1.5", graph.XSDDouble)))
	assert.Contains(t, quads, graph.NewQuad(taak, v.Predicate(stb.TaskNumber), graph.Literal("1")))
	assert.Zero(t, count(quads, v.Predicate(stb.TaskDocument)))
}

func TestEmitTextZeroIsPresent(t *testing.T) {
	_, v := newEmitter()
	quads := emitRow(t, withRow(map[int]string{8: "0", 17: "0"}))

	assert.Contains(t, quads, graph.NewQuad(v.Task("1"), v.Predicate(stb.OrderInTheme), graph.Literal("0")))
	assert.Equal(t, 1, count(quads, v.Predicate(stb.TaskDocument)))
}
