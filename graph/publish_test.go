package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func sampleEvent() *RunCompleted {
	return &RunCompleted{
		RunID:          "run-1",
		OutputPath:     "data/transformed.nq",
		Format:         "nquads",
		RawQuads:       100,
		OntologyQuads:  20,
		InferredQuads:  80,
		TotalQuads:     200,
		ExpansionRatio: 2,
		CompletedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishRunCompleted(t *testing.T) {
	pub := &recordingPublisher{}

	err := PublishRunCompleted(context.Background(), pub, "", sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, DefaultRunCompletedSubject, pub.subject)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	assert.Equal(t, RunCompletedType, decoded["type"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 200, decoded["total_quads"])
	assert.EqualValues(t, 2, decoded["expansion_ratio"])

	var ev RunCompleted
	require.NoError(t, json.Unmarshal(pub.data, &ev))
	assert.Equal(t, 80, ev.InferredQuads)
}

func TestPublishRunCompletedNilPublisher(t *testing.T) {
	assert.NoError(t, PublishRunCompleted(context.Background(), nil, "x", sampleEvent()))
}

func TestPublishRunCompletedInvalid(t *testing.T) {
	pub := &recordingPublisher{}
	ev := sampleEvent()
	ev.RunID = ""

	err := PublishRunCompleted(context.Background(), pub, "x", ev)
	assert.Error(t, err)
	assert.Nil(t, pub.data, "invalid events are not sent")
}

func TestPublishRunCompletedPublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("no responders")}

	err := PublishRunCompleted(context.Background(), pub, "custom.subject", sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
	assert.Equal(t, "custom.subject", pub.subject)
}

func TestRunCompletedValidate(t *testing.T) {
	ev := sampleEvent()
	ev.TotalQuads = 10
	assert.Error(t, ev.Validate())

	ev = sampleEvent()
	ev.OutputPath = ""
	assert.Error(t, ev.Validate())

	assert.NoError(t, sampleEvent().Validate())
}
