package db

import (
	"encoding/json"
	"testing"
	"time"

	"bifurcation/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRunDocument_RoundTripThroughBSON(t *testing.T) {
	run := models.Run{
		ID:          "run-9",
		CreatedAt:   time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC),
		Spectrum:    "pink",
		Seed:        3,
		StepSize:    0.05,
		Alpha:       0.5,
		Samples:     1000,
		Transitions: 12,
		FinalState:  -6.2,
		Stats:       json.RawMessage(`{"mean":80.5}`),
	}

	raw, err := bson.Marshal(toRunDocument(run))
	assert.NoError(t, err)

	var doc runDocument
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	got := fromRunDocument(doc)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Spectrum, got.Spectrum)
	assert.Equal(t, run.FinalState, got.FinalState)
	assert.JSONEq(t, string(run.Stats), string(got.Stats))

	var asMap bson.M
	assert.NoError(t, bson.Unmarshal(raw, &asMap))
	assert.Equal(t, "run-9", asMap["_id"])
	_, hasSeries := asMap["seriesPath"]
	assert.False(t, hasSeries, "empty series path must be omitted")
}

func TestToRunDocument_StampsCreation(t *testing.T) {
	doc := toRunDocument(models.Run{ID: "x"})
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Empty(t, doc.Stats)
	assert.Nil(t, fromRunDocument(doc).Stats)
}
