package graph

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// RunCompletedType identifies RunCompleted messages on the bus.
const RunCompletedType = "stbgraph.run.completed.v1"

// RunCompleted announces a finished pipeline run and the counts it produced.
type RunCompleted struct {
	Type           string    `json:"type"`
	RunID          string    `json:"run_id"`
	OutputPath     string    `json:"output_path"`
	Format         string    `json:"format"`
	RawQuads       int       `json:"raw_quads"`
	OntologyQuads  int       `json:"ontology_quads"`
	InferredQuads  int       `json:"inferred_quads"`
	TotalQuads     int       `json:"total_quads"`
	ExpansionRatio float64   `json:"expansion_ratio"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Validate checks that the event identifies its run and output.
func (e *RunCompleted) Validate() error {
	if e.RunID == "" {
		return errors.New("run ID is required")
	}
	if e.OutputPath == "" {
		return errors.New("output path is required")
	}
	if e.TotalQuads < e.RawQuads {
		return errors.Newf("total quads %d below raw quads %d", e.TotalQuads, e.RawQuads)
	}
	return nil
}

// MarshalJSON implements json.Marshaler and stamps the message type.
func (e *RunCompleted) MarshalJSON() ([]byte, error) {
	type Alias RunCompleted
	a := (*Alias)(e)
	if a.Type == "" {
		cp := *a
		cp.Type = RunCompletedType
		a = &cp
	}
	return json.Marshal(a)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *RunCompleted) UnmarshalJSON(data []byte) error {
	type Alias RunCompleted
	return json.Unmarshal(data, (*Alias)(e))
}
